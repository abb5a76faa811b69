// Package api holds the HTTP wire types and the chi server binding.
package api

import "time"

// DonationItem is one line of an item donation.
type DonationItem struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	EstimatedValue int64  `json:"estimated_value"`
}

// NewDonation is the body of POST /donations.
type NewDonation struct {
	Items     []DonationItem `json:"items"`
	Category  string         `json:"category"`
	MediaRefs *[]string      `json:"media_refs,omitempty"`
}

// Donation is an item donation as returned to callers.
type Donation struct {
	Id              string         `json:"id"`
	DonorId         string         `json:"donor_id"`
	Items           []DonationItem `json:"items"`
	Category        string         `json:"category"`
	MediaRefs       []string       `json:"media_refs,omitempty"`
	AdminStatus     string         `json:"admin_status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	IsActive        bool           `json:"is_active"`
	AcceptedBy      *string        `json:"accepted_by,omitempty"`
	AcceptedAt      *time.Time     `json:"accepted_at,omitempty"`
	DeliveryStatus  *string        `json:"delivery_status,omitempty"`
	PickupDate      *time.Time     `json:"pickup_date,omitempty"`
	ReceivedDate    *time.Time     `json:"received_date,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	TotalValue      int64          `json:"total_value"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DonationReview is the body of POST /donations/{donationId}/review.
type DonationReview struct {
	Decision string  `json:"decision"`
	Reason   *string `json:"reason,omitempty"`
}

// DeliveryUpdate is the body of POST /donations/{donationId}/delivery.
type DeliveryUpdate struct {
	Status string `json:"status"`
}

// NewFundingRequest is the body of POST /funding-requests.
type NewFundingRequest struct {
	Amount  int64  `json:"amount"`
	Purpose string `json:"purpose"`
}

// FundingRequest is a funding request as returned to callers.
type FundingRequest struct {
	Id              string     `json:"id"`
	NgoId           string     `json:"ngo_id"`
	Purpose         string     `json:"purpose"`
	RequestedAmount int64      `json:"requested_amount"`
	ApprovedAmount  *int64     `json:"approved_amount,omitempty"`
	AdminStatus     string     `json:"admin_status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	AdminReviewedAt *time.Time `json:"admin_reviewed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FundingReview is the body of POST /funding-requests/{requestId}/review.
type FundingReview struct {
	Decision string  `json:"decision"`
	Amount   *int64  `json:"amount,omitempty"`
	Reason   *string `json:"reason,omitempty"`
}

// PoolBalance is the response of GET /pool/balance.
type PoolBalance struct {
	Balance int64 `json:"balance"`
}

// QuotaStatus is the response of GET /quota/{limitType}.
type QuotaStatus struct {
	LimitType string     `json:"limit_type"`
	Limit     int64      `json:"limit"`
	Current   int64      `json:"current"`
	Remaining int64      `json:"remaining"`
	ResetsOn  *time.Time `json:"resets_on,omitempty"`
}

// NewItemRequest is the body of POST /item-requests.
type NewItemRequest struct {
	Category       string `json:"category"`
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	EstimatedValue int64  `json:"estimated_value"`
}

// ItemRequest is an NGO item request as returned to callers.
type ItemRequest struct {
	Id             string     `json:"id"`
	NgoId          string     `json:"ngo_id"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	Quantity       int        `json:"quantity"`
	EstimatedValue int64      `json:"estimated_value"`
	Status         string     `json:"status"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ItemRequestClose is the body of POST /item-requests/{requestId}/close.
type ItemRequestClose struct {
	Status string `json:"status"`
}

// NewContribution is the body of POST /contributions and of the ingestion
// queue messages. Status defaults to completed.
type NewContribution struct {
	Id      *string `json:"id,omitempty"`
	DonorId string  `json:"donor_id"`
	Amount  int64   `json:"amount"`
	Status  *string `json:"status,omitempty"`
}

// Contribution is a money donation as returned to callers.
type Contribution struct {
	Id          string     `json:"id"`
	DonorId     string     `json:"donor_id"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListContributionsParams defines parameters for ListContributions.
type ListContributionsParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Health is the response of GET /healthz.
type Health struct {
	Status string `json:"status"`
}
