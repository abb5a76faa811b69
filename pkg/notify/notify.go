// Package notify publishes broker events to downstream consumers. Delivery
// is best-effort: callers log failures and never roll back a transition.
package notify

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	DonationSubmitted    EventType = "donation_submitted"
	DonationReviewed     EventType = "donation_reviewed"
	DonationAccepted     EventType = "donation_accepted"
	DeliveryAdvanced     EventType = "delivery_advanced"
	FundingSubmitted     EventType = "funding_submitted"
	FundingReviewed      EventType = "funding_reviewed"
	ItemRequestCreated   EventType = "item_request_created"
	ItemRequestClosed    EventType = "item_request_closed"
	ContributionRecorded EventType = "contribution_recorded"
	PoolBalanceNegative  EventType = "pool_balance_negative"
)

// Event is the JSON body every notifier publishes.
type Event struct {
	Type       EventType `json:"event_type"`
	EntityId   string    `json:"entity_id"`
	ActorId    string    `json:"actor_id,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	Status     string    `json:"status,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier defines the interface for publishing events.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// NoOp drops every event.
type NoOp struct{}

var _ Notifier = NoOp{}

func (NoOp) Publish(context.Context, Event) error { return nil }
