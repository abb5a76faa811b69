package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/jackc/pgx/v5"
)

const fundingCols = `id, ngo_id, ngo_tier, purpose, requested_amount, approved_amount,
	admin_status, COALESCE(rejection_reason, ''), admin_reviewed_at, completed_at,
	created_at, updated_at`

const openStatuses = `('pending', 'under_review')`

func scanFunding(scan func(dest ...any) error) (*models.FundingRequest, error) {
	var r models.FundingRequest
	err := scan(
		&r.Id, &r.NgoId, &r.NgoTier, &r.Purpose, &r.RequestedAmount, &r.ApprovedAmount,
		&r.AdminStatus, &r.RejectionReason, &r.AdminReviewedAt, &r.CompletedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetFundingRequest(ctx context.Context, id string) (*models.FundingRequest, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+fundingCols+` FROM funding_requests WHERE id = $1`, id)
	r, err := scanFunding(row.Scan)
	if err != nil {
		return nil, notFound(err, "funding_requests", id)
	}
	return r, nil
}

func (s *Store) ListFundingRequestsByNGO(ctx context.Context, ngoID string) ([]models.FundingRequest, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+fundingCols+` FROM funding_requests
		WHERE ngo_id = $1
		ORDER BY created_at`, ngoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funding requests for %s: %w", ngoID, err)
	}
	return collect(rows, scanFunding)
}

// CreateFundingRequest relies on the partial unique index over open
// requests to hold the NGO's single slot.
func (s *Store) CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO funding_requests (id, ngo_id, ngo_tier, purpose, requested_amount,
			approved_amount, admin_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.Id, req.NgoId, req.NgoTier, req.Purpose, req.RequestedAmount,
		req.ApprovedAmount, req.AdminStatus, req.CreatedAt, req.UpdatedAt,
	)
	if constraint, dup := uniqueViolationOn(err); dup {
		if constraint == openRequestIndex {
			return storage.ErrOpenRequestExists
		}
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert funding request: %w", err)
	}
	return nil
}

func (s *Store) MarkFundingUnderReview(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE funding_requests SET admin_status = $2, updated_at = $3
		WHERE id = $1 AND admin_status = $4
		RETURNING `+fundingCols,
		id, models.FundingUnderReview, at, models.FundingPending,
	)
	r, err := scanFunding(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "funding_requests", id)
	}
	return r, nil
}

// RejectFundingRequest frees the NGO's slot as a side effect of leaving the open set.
func (s *Store) RejectFundingRequest(ctx context.Context, id, reason string, at time.Time) (*models.FundingRequest, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE funding_requests
		SET admin_status = $2, rejection_reason = NULLIF($3::text, ''),
			admin_reviewed_at = $4, updated_at = $4
		WHERE id = $1 AND admin_status IN `+openStatuses+`
		RETURNING `+fundingCols,
		id, models.FundingRejected, reason, at,
	)
	r, err := scanFunding(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "funding_requests", id)
	}
	return r, nil
}

func (s *Store) CompleteFundingRequest(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE funding_requests SET admin_status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND admin_status = $4
		RETURNING `+fundingCols,
		id, models.FundingCompleted, at, models.FundingApproved,
	)
	r, err := scanFunding(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "funding_requests", id)
	}
	return r, nil
}

// CommitAllocation locks the pool version row for the length of the
// transaction, so concurrent approvals serialize on it.
func (s *Store) CommitAllocation(ctx context.Context, c models.AllocationCommit) (_ *models.FundingRequest, err error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin allocation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var version int64
	if err = tx.QueryRow(ctx, `SELECT version FROM pool_meta WHERE id = 1 FOR UPDATE`).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to lock pool version: %w", err)
	}
	if version != c.ExpectedVersion {
		return nil, storage.ErrPoolVersionConflict
	}

	row := tx.QueryRow(ctx, `
		UPDATE funding_requests
		SET admin_status = $2, approved_amount = $3, admin_reviewed_at = $4, updated_at = $4
		WHERE id = $1 AND admin_status IN `+openStatuses+`
		RETURNING `+fundingCols,
		c.RequestId, models.FundingApproved, c.Amount, c.At,
	)
	r, err := scanFunding(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.guardFailed(ctx, "funding_requests", c.RequestId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve funding request %s: %w", c.RequestId, err)
	}

	if _, err = tx.Exec(ctx, `UPDATE pool_meta SET version = version + 1 WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("failed to advance pool version: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return r, nil
}
