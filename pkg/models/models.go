package models

import (
	"fmt"
	"math"
	"time"
)

// AdminStatus defines the review outcome of an item donation.
type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
)

// ParseAdminStatus rejects any value outside the closed set.
func ParseAdminStatus(s string) (AdminStatus, error) {
	switch AdminStatus(s) {
	case AdminPending, AdminApproved, AdminRejected:
		return AdminStatus(s), nil
	}
	return "", fmt.Errorf("unknown admin status %q", s)
}

// DeliveryStatus tracks the physical handoff of an accepted donation.
type DeliveryStatus string

const (
	DeliveryNotPickedUp DeliveryStatus = "not_picked_up"
	DeliveryPickedUp    DeliveryStatus = "picked_up"
	DeliveryReceived    DeliveryStatus = "received"
)

// ParseDeliveryStatus rejects any value outside the closed set.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case DeliveryNotPickedUp, DeliveryPickedUp, DeliveryReceived:
		return DeliveryStatus(s), nil
	}
	return "", fmt.Errorf("unknown delivery status %q", s)
}

// Next returns the only status reachable from d. ok is false once received.
func (d DeliveryStatus) Next() (next DeliveryStatus, ok bool) {
	switch d {
	case DeliveryNotPickedUp:
		return DeliveryPickedUp, true
	case DeliveryPickedUp:
		return DeliveryReceived, true
	case DeliveryReceived:
		return "", false
	}
	return "", false
}

// ReviewDecision is an admin's verdict on a pending donation.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ParseReviewDecision rejects any value outside the closed set.
func ParseReviewDecision(s string) (ReviewDecision, error) {
	switch ReviewDecision(s) {
	case DecisionApprove, DecisionReject:
		return ReviewDecision(s), nil
	}
	return "", fmt.Errorf("unknown review decision %q", s)
}

// Target maps a decision onto the admin status it commits.
func (d ReviewDecision) Target() AdminStatus {
	switch d {
	case DecisionApprove:
		return AdminApproved
	case DecisionReject:
		return AdminRejected
	}
	return ""
}

// DonationItem is a single line of an item donation.
type DonationItem struct {
	Name           string `json:"name" dynamodbav:"name"`
	Quantity       int    `json:"quantity" dynamodbav:"quantity"`
	EstimatedValue int64  `json:"estimated_value" dynamodbav:"estimated_value"`
}

// DonationRecord represents the internal domain model for an item donation.
// It includes dynamodbav tags for marshalling.
type DonationRecord struct {
	Id              string         `dynamodbav:"id"`
	DonorId         string         `dynamodbav:"donor_id"`
	Items           []DonationItem `dynamodbav:"items"`
	Category        string         `dynamodbav:"category"`
	MediaRefs       []string       `dynamodbav:"media_refs,omitempty"`
	AdminStatus     AdminStatus    `dynamodbav:"admin_status"`
	RejectionReason string         `dynamodbav:"rejection_reason,omitempty"`
	IsActive        bool           `dynamodbav:"is_active"`
	AcceptedBy      *string        `dynamodbav:"accepted_by,omitempty"`
	AcceptedAt      *time.Time     `dynamodbav:"accepted_at,omitempty"`
	DeliveryStatus  DeliveryStatus `dynamodbav:"delivery_status,omitempty"`
	PickupDate      *time.Time     `dynamodbav:"pickup_date,omitempty"`
	ReceivedDate    *time.Time     `dynamodbav:"received_date,omitempty"`
	ReviewedAt      *time.Time     `dynamodbav:"reviewed_at,omitempty"`
	CreatedAt       time.Time      `dynamodbav:"created_at"`
	UpdatedAt       time.Time      `dynamodbav:"updated_at"`
}

// TotalValue is the summed estimated value of every item line. A sum that
// cannot be represented saturates at math.MaxInt64.
func (d *DonationRecord) TotalValue() int64 {
	total, ok := ItemsValue(d.Items)
	if !ok {
		return math.MaxInt64
	}
	return total
}

// IsAccepted reports whether an NGO holds the donation.
func (d *DonationRecord) IsAccepted() bool {
	return d.AcceptedBy != nil && *d.AcceptedBy != ""
}
