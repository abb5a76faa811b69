package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

const itemRequestCols = `id, ngo_id, category, title, quantity, estimated_value,
	status, closed_at, created_at, updated_at`

func scanItemRequest(scan func(dest ...any) error) (*models.ItemRequest, error) {
	var r models.ItemRequest
	err := scan(
		&r.Id, &r.NgoId, &r.Category, &r.Title, &r.Quantity, &r.EstimatedValue,
		&r.Status, &r.ClosedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateItemRequest(ctx context.Context, r *models.ItemRequest) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO item_requests (id, ngo_id, category, title, quantity, estimated_value,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.Id, r.NgoId, r.Category, r.Title, r.Quantity, r.EstimatedValue,
		r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if _, dup := uniqueViolationOn(err); dup {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert item request: %w", err)
	}
	return nil
}

func (s *Store) GetItemRequest(ctx context.Context, id string) (*models.ItemRequest, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+itemRequestCols+` FROM item_requests WHERE id = $1`, id)
	r, err := scanItemRequest(row.Scan)
	if err != nil {
		return nil, notFound(err, "item_requests", id)
	}
	return r, nil
}

func (s *Store) CloseItemRequest(ctx context.Context, id string, status models.ItemRequestStatus, at time.Time) (*models.ItemRequest, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE item_requests SET status = $2, closed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+itemRequestCols,
		id, status, at, models.ItemRequestOpen,
	)
	r, err := scanItemRequest(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "item_requests", id)
	}
	return r, nil
}
