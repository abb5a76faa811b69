package storage

import (
	"context"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// ItemRequestStore holds NGO item requests.
type ItemRequestStore interface {
	CreateItemRequest(ctx context.Context, r *models.ItemRequest) error
	GetItemRequest(ctx context.Context, id string) (*models.ItemRequest, error)

	// CloseItemRequest moves an open request to status. ErrConditionFailed
	// if it was already closed, so exactly one caller sees success.
	CloseItemRequest(ctx context.Context, id string, status models.ItemRequestStatus, at time.Time) (*models.ItemRequest, error)
}
