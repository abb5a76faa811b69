package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

// PoolSnapshot reads the version and every sum in one statement, so they
// share a single MVCC snapshot.
func (s *Store) PoolSnapshot(ctx context.Context, ngoID string, monthStart time.Time) (models.PoolSnapshot, error) {
	var snap models.PoolSnapshot
	err := s.DB.QueryRow(ctx, `
		SELECT
			(SELECT version FROM pool_meta WHERE id = 1),
			(SELECT COALESCE(SUM(amount), 0) FROM contributions WHERE status = $1),
			(SELECT COALESCE(SUM(approved_amount), 0) FROM funding_requests
				WHERE admin_status IN ('approved', 'completed')),
			(SELECT COALESCE(SUM(approved_amount), 0) FROM funding_requests
				WHERE admin_status IN ('approved', 'completed')
				AND ngo_id = $2 AND admin_reviewed_at >= $3)`,
		models.ContributionCompleted, ngoID, monthStart,
	).Scan(&snap.Version, &snap.TotalDonations, &snap.TotalAllocations, &snap.NgoAllocatedInMonth)
	if err != nil {
		return models.PoolSnapshot{}, fmt.Errorf("failed to read pool snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) RecordContribution(ctx context.Context, d *models.MonetaryDonation) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO contributions (id, donor_id, amount, status, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.Id, d.DonorId, d.Amount, d.Status, d.CompletedAt, d.CreatedAt,
	)
	if _, dup := uniqueViolationOn(err); dup {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

func (s *Store) ListContributions(ctx context.Context, limit int32) ([]models.MonetaryDonation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, donor_id, amount, status, completed_at, created_at
		FROM contributions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return collect(rows, func(scan func(dest ...any) error) (*models.MonetaryDonation, error) {
		var d models.MonetaryDonation
		if err := scan(&d.Id, &d.DonorId, &d.Amount, &d.Status, &d.CompletedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.GSI1PK = models.ContributionsPartition
		return &d, nil
	})
}
