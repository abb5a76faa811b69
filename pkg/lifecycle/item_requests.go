package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/chris/donation-broker/pkg/tiers"
	"github.com/google/uuid"
)

const entityItemRequest = "item request"

// ItemRequests is the board of NGO item needs.
type ItemRequests struct {
	Store  storage.ItemRequestStore
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// NewItemRequests creates an ItemRequests service.
func NewItemRequests(store storage.ItemRequestStore, logger *slog.Logger) *ItemRequests {
	return &ItemRequests{Store: store, Logger: logger, Now: time.Now, NewID: uuid.NewString}
}

// ValidateItemRequest checks a posted need, including that its total value
// fits in an int64.
func ValidateItemRequest(category, title string, quantity int, estimatedValue int64) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.Validation("title", "required")
	}
	if quantity <= 0 {
		return apperrors.Validation("quantity", "must be positive")
	}
	if estimatedValue < 0 {
		return apperrors.Validation("estimatedValue", "must not be negative")
	}
	if _, ok := models.LineValue(quantity, estimatedValue); !ok {
		return apperrors.Validation("estimatedValue", "total value is too large")
	}
	_, err := tiers.RequiredTier(category)
	return err
}

// Create validates and stores an open request.
func (b *ItemRequests) Create(ctx context.Context, ngoID, category, title string, quantity int, estimatedValue int64) (*models.ItemRequest, error) {
	if err := ValidateItemRequest(category, title, quantity, estimatedValue); err != nil {
		return nil, err
	}

	now := b.Now().UTC()
	req := &models.ItemRequest{
		Id:             b.NewID(),
		NgoId:          ngoID,
		Category:       tiers.NormalizeCategory(category),
		Title:          strings.TrimSpace(title),
		Quantity:       quantity,
		EstimatedValue: estimatedValue,
		Status:         models.ItemRequestOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := b.Store.CreateItemRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create item request: %w", err)
	}
	return req, nil
}

// Get returns a request or a NotFoundError.
func (b *ItemRequests) Get(ctx context.Context, id string) (*models.ItemRequest, error) {
	req, err := b.Store.GetItemRequest(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NotFound(entityItemRequest, id)
		}
		return nil, fmt.Errorf("failed to get item request: %w", err)
	}
	return req, nil
}

// Close moves an open request to a terminal status. Only one caller can
// close a given request.
func (b *ItemRequests) Close(ctx context.Context, id string, status models.ItemRequestStatus) (*models.ItemRequest, error) {
	if status == models.ItemRequestOpen {
		return nil, apperrors.Validation("status", "must be a closing status")
	}
	req, err := b.Store.CloseItemRequest(ctx, id, status, b.Now().UTC())
	if err == nil {
		b.Logger.Info("item request closed", slog.String("request_id", id), slog.String("status", string(status)))
		return req, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound(entityItemRequest, id)
	}
	if !errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("failed to close item request: %w", err)
	}

	cur, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.InvalidTransition(entityItemRequest, id, string(cur.Status), string(status), "request is already closed")
}
