package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// GetUsage derives the open funding slot from the funding table rather
// than storing it.
func (s *Store) GetUsage(ctx context.Context, ngoID string) (*models.SubscriptionUsage, error) {
	u := models.SubscriptionUsage{NgoId: ngoID}
	var lastReset *time.Time
	err := s.DB.QueryRow(ctx, `
		SELECT
			COALESCE(u.active_requests, 0),
			COALESCE(u.monthly_accepted_items, 0),
			COALESCE(u.financial_requests_this_month, 0),
			u.last_reset_date,
			COALESCE((SELECT f.id FROM funding_requests f
				WHERE f.ngo_id = $1 AND f.admin_status IN `+openStatuses+` LIMIT 1), '')
		FROM (SELECT $1::text AS ngo_id) k
		LEFT JOIN subscription_usage u ON u.ngo_id = k.ngo_id`, ngoID,
	).Scan(&u.ActiveRequests, &u.MonthlyAcceptedItems, &u.FinancialRequestsThisMonth, &lastReset, &u.OpenFundingRequestId)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage for %s: %w", ngoID, err)
	}
	if lastReset != nil {
		u.LastResetDate = lastReset.UTC()
	}
	return &u, nil
}

// ResetUsage compares last_reset_date with IS NOT DISTINCT FROM so a
// never-reset row matches a zero observed time.
func (s *Store) ResetUsage(ctx context.Context, ngoID string, observed, now time.Time) (bool, error) {
	var prev *time.Time
	if !observed.IsZero() {
		prev = &observed
	}
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO subscription_usage (ngo_id, last_reset_date)
		VALUES ($1, $3)
		ON CONFLICT (ngo_id) DO UPDATE
		SET monthly_accepted_items = 0,
			financial_requests_this_month = 0,
			last_reset_date = EXCLUDED.last_reset_date
		WHERE subscription_usage.last_reset_date IS NOT DISTINCT FROM $2::timestamptz`,
		ngoID, prev, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reset usage for %s: %w", ngoID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func counterColumn(limit models.LimitType) (string, error) {
	col := limit.Attribute()
	if col == "" {
		return "", fmt.Errorf("limit %s has no counter", limit)
	}
	return col, nil
}

func (s *Store) IncrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error {
	col, err := counterColumn(limit)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO subscription_usage (ngo_id, %[1]s) VALUES ($1, 1)
		ON CONFLICT (ngo_id) DO UPDATE SET %[1]s = subscription_usage.%[1]s + 1`, col), ngoID)
	if err != nil {
		return fmt.Errorf("failed to increment %s for %s: %w", col, ngoID, err)
	}
	return nil
}

// DecrementCounter is a no-op when the counter is already zero.
func (s *Store) DecrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error {
	col, err := counterColumn(limit)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, fmt.Sprintf(`
		UPDATE subscription_usage SET %[1]s = %[1]s - 1
		WHERE ngo_id = $1 AND %[1]s > 0`, col), ngoID)
	if err != nil {
		return fmt.Errorf("failed to decrement %s for %s: %w", col, ngoID, err)
	}
	return nil
}
