// Package quota tracks per-NGO usage counters against tier limits.
//
// Checking and charging are separate steps: CheckAndReserve only reads, and
// callers Increment once the guarded action has committed, so a failed
// action never consumes quota. Monthly counters roll over lazily on the
// first read after the usage window has elapsed.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/chris/donation-broker/pkg/tiers"
)

// Ledger is the quota service.
type Ledger struct {
	Store  storage.UsageStore
	Logger *slog.Logger
	Now    func() time.Time
}

// NewLedger creates a Ledger using the wall clock.
func NewLedger(store storage.UsageStore, logger *slog.Logger) *Ledger {
	return &Ledger{Store: store, Logger: logger, Now: time.Now}
}

// Status is the current position of one counter against its limit.
type Status struct {
	LimitType models.LimitType
	Limit     int64
	Current   int64
	ResetsOn  time.Time
}

// Remaining is how many more actions the limit allows.
func (s Status) Remaining() int64 {
	if s.Current >= s.Limit {
		return 0
	}
	return s.Limit - s.Current
}

// Usage returns the NGO's counters with any due rollover applied.
func (l *Ledger) Usage(ctx context.Context, ngoID string) (*models.SubscriptionUsage, error) {
	u, err := l.Store.GetUsage(ctx, ngoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage for %s: %w", ngoID, err)
	}

	now := l.Now().UTC()
	if !u.NeedsReset(now) {
		return u, nil
	}

	// Conditional on the date we observed; concurrent callers that lose the
	// race simply re-read the winner's result.
	reset, err := l.Store.ResetUsage(ctx, ngoID, u.LastResetDate, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reset usage for %s: %w", ngoID, err)
	}
	if reset {
		l.Logger.Info("monthly usage reset", slog.String("ngo_id", ngoID), slog.Time("previous_reset", u.LastResetDate))
	}

	u, err = l.Store.GetUsage(ctx, ngoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage for %s: %w", ngoID, err)
	}
	return u, nil
}

// Status reports where the NGO stands on one counter.
func (l *Ledger) Status(ctx context.Context, ngoID string, tier int, limit models.LimitType) (Status, error) {
	if limit.Attribute() == "" {
		return Status{}, apperrors.Validation("limitType", fmt.Sprintf("%q is not a counted limit", limit))
	}
	plan, err := tiers.ResolvePlan(tier)
	if err != nil {
		return Status{}, err
	}
	u, err := l.Usage(ctx, ngoID)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		LimitType: limit,
		Limit:     plan.Limit(limit),
		Current:   int64(u.Counter(limit)),
	}
	if limit.Monthly() {
		st.ResetsOn = u.ResetsOn()
	}
	return st, nil
}

// CheckAndReserve fails with a QuotaExceededError when the counter is at
// its limit. It does not charge the counter.
func (l *Ledger) CheckAndReserve(ctx context.Context, ngoID string, tier int, limit models.LimitType) error {
	st, err := l.Status(ctx, ngoID, tier, limit)
	if err != nil {
		return err
	}
	if st.Current >= st.Limit {
		return &apperrors.QuotaExceededError{
			LimitType: string(limit),
			Limit:     st.Limit,
			Current:   st.Current,
			ResetsOn:  st.ResetsOn,
		}
	}
	return nil
}

// CheckItemValue enforces the tier's per-item value ceiling.
func (l *Ledger) CheckItemValue(tier int, value int64) error {
	plan, err := tiers.ResolvePlan(tier)
	if err != nil {
		return err
	}
	if value > plan.Limits.MaxItemValue {
		return &apperrors.QuotaExceededError{
			LimitType: string(models.LimitMaxItemValue),
			Limit:     plan.Limits.MaxItemValue,
			Current:   value,
		}
	}
	return nil
}

// Increment charges one unit against limit.
func (l *Ledger) Increment(ctx context.Context, ngoID string, limit models.LimitType) error {
	if err := l.Store.IncrementCounter(ctx, ngoID, limit); err != nil {
		return fmt.Errorf("failed to increment %s for %s: %w", limit, ngoID, err)
	}
	return nil
}

// Decrement releases one unit of limit. The counter never goes below zero.
func (l *Ledger) Decrement(ctx context.Context, ngoID string, limit models.LimitType) error {
	if err := l.Store.DecrementCounter(ctx, ngoID, limit); err != nil {
		return fmt.Errorf("failed to decrement %s for %s: %w", limit, ngoID, err)
	}
	return nil
}
