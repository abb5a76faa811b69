package models

import (
	"fmt"
	"math"
	"time"
)

// ItemRequestStatus defines the possible states of an NGO item request.
type ItemRequestStatus string

const (
	ItemRequestOpen      ItemRequestStatus = "open"
	ItemRequestFulfilled ItemRequestStatus = "fulfilled"
	ItemRequestCancelled ItemRequestStatus = "cancelled"
	ItemRequestRejected  ItemRequestStatus = "rejected"
	ItemRequestExpired   ItemRequestStatus = "expired"
)

// ParseClosingStatus accepts only the terminal statuses an open request may move to.
func ParseClosingStatus(s string) (ItemRequestStatus, error) {
	switch ItemRequestStatus(s) {
	case ItemRequestFulfilled, ItemRequestCancelled, ItemRequestRejected, ItemRequestExpired:
		return ItemRequestStatus(s), nil
	case ItemRequestOpen:
		return "", fmt.Errorf("%q is not a closing status", s)
	}
	return "", fmt.Errorf("unknown item request status %q", s)
}

// ItemRequest is an NGO's posted need. While open it occupies one
// activeRequests slot.
type ItemRequest struct {
	Id             string            `dynamodbav:"id"`
	NgoId          string            `dynamodbav:"ngo_id"`
	Category       string            `dynamodbav:"category"`
	Title          string            `dynamodbav:"title"`
	Quantity       int               `dynamodbav:"quantity"`
	EstimatedValue int64             `dynamodbav:"estimated_value"`
	Status         ItemRequestStatus `dynamodbav:"status"`
	ClosedAt       *time.Time        `dynamodbav:"closed_at,omitempty"`
	CreatedAt      time.Time         `dynamodbav:"created_at"`
	UpdatedAt      time.Time         `dynamodbav:"updated_at"`
}

// TotalValue is quantity times the per-unit estimate, saturating at
// math.MaxInt64.
func (r *ItemRequest) TotalValue() int64 {
	total, ok := LineValue(r.Quantity, r.EstimatedValue)
	if !ok {
		return math.MaxInt64
	}
	return total
}
