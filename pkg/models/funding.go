package models

import (
	"fmt"
	"time"
)

// FundingStatus defines the possible states of a funding request.
type FundingStatus string

const (
	FundingPending     FundingStatus = "pending"
	FundingUnderReview FundingStatus = "under_review"
	FundingApproved    FundingStatus = "approved"
	FundingRejected    FundingStatus = "rejected"
	FundingCompleted   FundingStatus = "completed"
)

// ParseFundingStatus rejects any value outside the closed set.
func ParseFundingStatus(s string) (FundingStatus, error) {
	switch FundingStatus(s) {
	case FundingPending, FundingUnderReview, FundingApproved, FundingRejected, FundingCompleted:
		return FundingStatus(s), nil
	}
	return "", fmt.Errorf("unknown funding status %q", s)
}

// IsOpen reports whether the request still awaits an admin decision.
func (s FundingStatus) IsOpen() bool {
	switch s {
	case FundingPending, FundingUnderReview:
		return true
	case FundingApproved, FundingRejected, FundingCompleted:
		return false
	}
	return false
}

// CountsAsAllocation reports whether the approved amount is drawn from the pool.
func (s FundingStatus) CountsAsAllocation() bool {
	switch s {
	case FundingApproved, FundingCompleted:
		return true
	case FundingPending, FundingUnderReview, FundingRejected:
		return false
	}
	return false
}

// FundingDecision is an admin action on a funding request.
type FundingDecision string

const (
	FundingDecisionUnderReview FundingDecision = "under_review"
	FundingDecisionApprove     FundingDecision = "approve"
	FundingDecisionReject      FundingDecision = "reject"
	FundingDecisionComplete    FundingDecision = "complete"
)

// ParseFundingDecision rejects any value outside the closed set.
func ParseFundingDecision(s string) (FundingDecision, error) {
	switch FundingDecision(s) {
	case FundingDecisionUnderReview, FundingDecisionApprove, FundingDecisionReject, FundingDecisionComplete:
		return FundingDecision(s), nil
	}
	return "", fmt.Errorf("unknown funding decision %q", s)
}

// FundingRequest is an NGO's ask for money from the shared pool. NgoTier is
// the tier the NGO held at submission; its monthly cap applies at approval.
type FundingRequest struct {
	Id              string        `dynamodbav:"id"`
	NgoId           string        `dynamodbav:"ngo_id"`
	NgoTier         int           `dynamodbav:"ngo_tier"`
	Purpose         string        `dynamodbav:"purpose"`
	RequestedAmount int64         `dynamodbav:"requested_amount"`
	ApprovedAmount  int64         `dynamodbav:"approved_amount"`
	AdminStatus     FundingStatus `dynamodbav:"admin_status"`
	RejectionReason string        `dynamodbav:"rejection_reason,omitempty"`
	AdminReviewedAt *time.Time    `dynamodbav:"admin_reviewed_at,omitempty"`
	CompletedAt     *time.Time    `dynamodbav:"completed_at,omitempty"`
	CreatedAt       time.Time     `dynamodbav:"created_at"`
	UpdatedAt       time.Time     `dynamodbav:"updated_at"`
}

// ContributionStatus defines the settlement state of a money donation.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionCompleted ContributionStatus = "completed"
	ContributionFailed    ContributionStatus = "failed"
)

// ParseContributionStatus rejects any value outside the closed set.
func ParseContributionStatus(s string) (ContributionStatus, error) {
	switch ContributionStatus(s) {
	case ContributionPending, ContributionCompleted, ContributionFailed:
		return ContributionStatus(s), nil
	}
	return "", fmt.Errorf("unknown contribution status %q", s)
}

// ContributionsPartition is the GSI partition every contribution is indexed under.
const ContributionsPartition = "CONTRIBUTIONS"

// MonetaryDonation is a donor's money contribution. Only completed rows feed the pool.
type MonetaryDonation struct {
	Id          string             `json:"id" dynamodbav:"id"`
	DonorId     string             `json:"donor_id" dynamodbav:"donor_id"`
	Amount      int64              `json:"amount" dynamodbav:"amount"`
	Status      ContributionStatus `json:"status" dynamodbav:"status"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" dynamodbav:"completed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" dynamodbav:"created_at"`
	GSI1PK      string             `json:"-" dynamodbav:"gsi1pk"`
}

// AllocationCommit is everything needed to commit an approval atomically.
type AllocationCommit struct {
	RequestId       string
	NgoId           string
	Amount          int64
	ExpectedVersion int64
	At              time.Time
}

// PoolSnapshot is a consistent read of the pool aggregates and the
// version they were computed under.
type PoolSnapshot struct {
	Version             int64
	TotalDonations      int64
	TotalAllocations    int64
	NgoAllocatedInMonth int64
}

// Balance is the derived pool balance.
func (p PoolSnapshot) Balance() int64 {
	return p.TotalDonations - p.TotalAllocations
}
