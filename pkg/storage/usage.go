package storage

import (
	"context"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// UsageStore holds per-NGO usage counters.
type UsageStore interface {
	// GetUsage returns the NGO's usage. An NGO with no record yet gets a
	// zero-valued usage whose LastResetDate is the zero time.
	GetUsage(ctx context.Context, ngoID string) (*models.SubscriptionUsage, error)

	// ResetUsage zeroes the monthly counters and sets LastResetDate to now,
	// only if LastResetDate still equals observed. It reports whether this
	// call performed the reset.
	ResetUsage(ctx context.Context, ngoID string, observed, now time.Time) (bool, error)

	// IncrementCounter atomically adds one to the counter behind limit.
	IncrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error

	// DecrementCounter atomically subtracts one, never going below zero.
	DecrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error
}
