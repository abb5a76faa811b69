// Package lifecycle implements the item donation state machine and the NGO
// item request board. Every transition is committed with a conditional write;
// when the guard fails the record is re-read only to classify the error.
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

const entityDonation = "donation"

// Donations drives DonationRecord through review, acceptance and delivery.
type Donations struct {
	Store  storage.DonationStore
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// NewDonations creates a Donations service.
func NewDonations(store storage.DonationStore, logger *slog.Logger) *Donations {
	return &Donations{Store: store, Logger: logger, Now: time.Now, NewID: uuid.NewString}
}

// Submit validates a donor's items and stores a pending donation.
func (d *Donations) Submit(ctx context.Context, donorID string, items []models.DonationItem, category string, media []string) (*models.DonationRecord, error) {
	if strings.TrimSpace(donorID) == "" {
		return nil, apperrors.Validation("donorId", "required")
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d].name", i), "required")
		}
		if item.Quantity <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.EstimatedValue < 0 {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d].estimatedValue", i), "must not be negative")
		}
	}
	if _, ok := models.ItemsValue(items); !ok {
		return nil, apperrors.Validation("items", "total value is too large")
	}
	if _, err := tiers.RequiredTier(category); err != nil {
		return nil, err
	}

	now := d.Now().UTC()
	rec := &models.DonationRecord{
		Id:          d.NewID(),
		DonorId:     donorID,
		Items:       items,
		Category:    tiers.NormalizeCategory(category),
		MediaRefs:   media,
		AdminStatus: models.AdminPending,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.Store.CreateDonation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}
	return rec, nil
}

// Get returns a donation or a NotFoundError.
func (d *Donations) Get(ctx context.Context, id string) (*models.DonationRecord, error) {
	rec, err := d.Store.GetDonation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NotFound(entityDonation, id)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return rec, nil
}

// ListByDonor returns every donation a donor submitted.
func (d *Donations) ListByDonor(ctx context.Context, donorID string) ([]models.DonationRecord, error) {
	recs, err := d.Store.ListDonationsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return recs, nil
}

// ListAvailable returns approved donations still open for acceptance.
func (d *Donations) ListAvailable(ctx context.Context) ([]models.DonationRecord, error) {
	recs, err := d.Store.ListAvailableDonations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available donations: %w", err)
	}
	return recs, nil
}

// Review applies an admin decision to a pending donation. Rejection needs a reason.
func (d *Donations) Review(ctx context.Context, id string, decision models.ReviewDecision, reason string) (*models.DonationRecord, error) {
	target := decision.Target()
	switch decision {
	case models.DecisionApprove:
		reason = ""
	case models.DecisionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, apperrors.Validation("reason", "required when rejecting")
		}
	default:
		return nil, apperrors.Validation("decision", fmt.Sprintf("unknown decision %q", decision))
	}

	rec, err := d.Store.ReviewDonation(ctx, id, target, reason, d.Now().UTC())
	if err == nil {
		d.Logger.Info("donation reviewed", slog.String("donation_id", id), slog.String("status", string(target)))
		return rec, nil
	}
	if !errors.Is(err, storage.ErrConditionFailed) {
		return nil, d.storeErr(id, "review", err)
	}

	cur, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.InvalidTransition(entityDonation, id, string(cur.AdminStatus), string(target), "only pending donations can be reviewed")
}

// Accept assigns an approved donation to ngoID. Exactly one concurrent
// caller wins; the rest get an AlreadyAcceptedError.
func (d *Donations) Accept(ctx context.Context, id, ngoID string) (*models.DonationRecord, error) {
	rec, err := d.Store.AcceptDonation(ctx, id, ngoID, d.Now().UTC())
	if err == nil {
		d.Logger.Info("donation accepted", slog.String("donation_id", id), slog.String("ngo_id", ngoID))
		return rec, nil
	}
	if !errors.Is(err, storage.ErrConditionFailed) {
		return nil, d.storeErr(id, "accept", err)
	}

	cur, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.IsAccepted() {
		return nil, &apperrors.AlreadyAcceptedError{DonationId: id}
	}
	return nil, apperrors.InvalidTransition(entityDonation, id, string(cur.AdminStatus), "accepted", "only approved donations can be accepted")
}

// AdvanceDelivery moves delivery one step forward. Only the accepting NGO may call it.
func (d *Donations) AdvanceDelivery(ctx context.Context, id, ngoID string, target models.DeliveryStatus) (*models.DonationRecord, error) {
	cur, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.IsAccepted() {
		return nil, apperrors.InvalidTransition(entityDonation, id, string(cur.DeliveryStatus), string(target), "donation has not been accepted")
	}
	if *cur.AcceptedBy != ngoID {
		return nil, apperrors.Unauthorized(ngoID, "update delivery", "donation was accepted by another ngo")
	}
	next, ok := cur.DeliveryStatus.Next()
	if !ok || next != target {
		return nil, apperrors.InvalidTransition(entityDonation, id, string(cur.DeliveryStatus), string(target), "delivery only advances one step")
	}

	rec, err := d.Store.AdvanceDelivery(ctx, id, ngoID, cur.DeliveryStatus, target, d.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return nil, apperrors.InvalidTransition(entityDonation, id, string(cur.DeliveryStatus), string(target), "delivery status changed concurrently")
		}
		return nil, d.storeErr(id, "advance delivery", err)
	}
	d.Logger.Info("delivery advanced", slog.String("donation_id", id), slog.String("status", string(target)))
	return rec, nil
}

func (d *Donations) storeErr(id, op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound(entityDonation, id)
	}
	return fmt.Errorf("failed to %s donation: %w", op, err)
}
