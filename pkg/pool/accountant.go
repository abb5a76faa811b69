// Package pool accounts for the shared money pool. The balance is never
// stored: it is the sum of completed contributions minus the sum of
// approved allocations, read together with a pool version that every
// approval must still match when it commits.
package pool

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

const entityFunding = "funding request"

// MaxCommitAttempts bounds how often an approval is re-evaluated after
// losing a pool version race.
const MaxCommitAttempts = 3

// Store is the slice of storage the accountant needs.
type Store interface {
	storage.FundingStore
	storage.PoolReader
	storage.ContributionStore
}

// Accountant is the FundingPoolAccountant service.
type Accountant struct {
	Store  Store
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// NewAccountant creates an Accountant.
func NewAccountant(store Store, logger *slog.Logger) *Accountant {
	return &Accountant{Store: store, Logger: logger, Now: time.Now, NewID: uuid.NewString}
}

// MonthStart is the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AvailableBalance is total completed contributions minus total approved allocations.
func (a *Accountant) AvailableBalance(ctx context.Context) (int64, error) {
	snap, err := a.Store.PoolSnapshot(ctx, "", MonthStart(a.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to read pool aggregates: %w", err)
	}
	return snap.Balance(), nil
}

// Get returns a funding request or a NotFoundError.
func (a *Accountant) Get(ctx context.Context, id string) (*models.FundingRequest, error) {
	req, err := a.Store.GetFundingRequest(ctx, id)
	if err != nil {
		return nil, a.storeErr(id, "get", err)
	}
	return req, nil
}

// ListByNGO returns an NGO's funding requests.
func (a *Accountant) ListByNGO(ctx context.Context, ngoID string) ([]models.FundingRequest, error) {
	reqs, err := a.Store.ListFundingRequestsByNGO(ctx, ngoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funding requests: %w", err)
	}
	return reqs, nil
}

// SubmitRequest opens a funding request for an NGO whose plan allows it.
// An NGO may hold only one open request at a time.
func (a *Accountant) SubmitRequest(ctx context.Context, ngoID string, tier int, amount int64, purpose string) (*models.FundingRequest, error) {
	plan, err := tiers.ResolvePlan(tier)
	if err != nil {
		return nil, err
	}
	if !plan.Permissions.CanRequestFinancial {
		return nil, apperrors.Unauthorized(ngoID, "request funding", fmt.Sprintf("%s tier cannot request funding", plan.Name))
	}
	if amount <= 0 {
		return nil, apperrors.Validation("amount", "must be positive")
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, apperrors.Validation("purpose", "required")
	}

	now := a.Now().UTC()
	req := &models.FundingRequest{
		Id:              a.NewID(),
		NgoId:           ngoID,
		NgoTier:         tier,
		Purpose:         purpose,
		RequestedAmount: amount,
		AdminStatus:     models.FundingPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.Store.CreateFundingRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrOpenRequestExists) {
			return nil, apperrors.InvalidTransition(entityFunding, req.Id, "", string(models.FundingPending), "open funding request exists")
		}
		return nil, fmt.Errorf("failed to create funding request: %w", err)
	}
	a.Logger.Info("funding request submitted", slog.String("request_id", req.Id), slog.String("ngo_id", ngoID), slog.Int64("amount", amount))
	return req, nil
}

// MarkUnderReview moves a pending request to under_review.
func (a *Accountant) MarkUnderReview(ctx context.Context, id string) (*models.FundingRequest, error) {
	req, err := a.Store.MarkFundingUnderReview(ctx, id, a.Now().UTC())
	if err != nil {
		return nil, a.transitionErr(ctx, id, models.FundingUnderReview, "only pending requests can be put under review", err)
	}
	return req, nil
}

// Reject closes an open request. A reason is required.
func (a *Accountant) Reject(ctx context.Context, id, reason string) (*models.FundingRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("reason", "required when rejecting")
	}
	req, err := a.Store.RejectFundingRequest(ctx, id, reason, a.Now().UTC())
	if err != nil {
		return nil, a.transitionErr(ctx, id, models.FundingRejected, "only open requests can be rejected", err)
	}
	return req, nil
}

// Complete marks an approved request as paid out.
func (a *Accountant) Complete(ctx context.Context, id string) (*models.FundingRequest, error) {
	req, err := a.Store.CompleteFundingRequest(ctx, id, a.Now().UTC())
	if err != nil {
		return nil, a.transitionErr(ctx, id, models.FundingCompleted, "only approved requests can be completed", err)
	}
	return req, nil
}

// ApproveAllocation approves amount for an open request. The pool balance
// and the NGO's monthly cap are evaluated against fresh aggregates, and the
// approval commits only if no other allocation landed in between. Any
// violation leaves every record unchanged.
func (a *Accountant) ApproveAllocation(ctx context.Context, requestID string, amount int64) (*models.FundingRequest, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("amount", "must be positive")
	}
	req, err := a.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.AdminStatus.IsOpen() {
		return nil, apperrors.InvalidTransition(entityFunding, requestID, string(req.AdminStatus), string(models.FundingApproved), "only open requests can be approved")
	}
	if amount > req.RequestedAmount {
		return nil, apperrors.Validation("amount", fmt.Sprintf("exceeds requested amount %d", req.RequestedAmount))
	}
	plan, err := tiers.ResolvePlan(req.NgoTier)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxCommitAttempts; attempt++ {
		now := a.Now().UTC()
		snap, err := a.Store.PoolSnapshot(ctx, req.NgoId, MonthStart(now))
		if err != nil {
			return nil, fmt.Errorf("failed to read pool aggregates: %w", err)
		}

		if available := snap.Balance(); amount > available {
			return nil, &apperrors.InsufficientPoolBalanceError{Requested: amount, Available: max(available, 0)}
		}
		if amount > plan.Limits.MonthlyFundingCap-snap.NgoAllocatedInMonth {
			return nil, &apperrors.MonthlyFundingCapExceededError{
				NgoId:           req.NgoId,
				Cap:             plan.Limits.MonthlyFundingCap,
				AlreadyApproved: snap.NgoAllocatedInMonth,
				Requested:       amount,
			}
		}

		approved, err := a.Store.CommitAllocation(ctx, models.AllocationCommit{
			RequestId:       requestID,
			NgoId:           req.NgoId,
			Amount:          amount,
			ExpectedVersion: snap.Version,
			At:              now,
		})
		if err == nil {
			a.Logger.Info("allocation approved",
				slog.String("request_id", requestID),
				slog.String("ngo_id", req.NgoId),
				slog.Int64("amount", amount),
				slog.Int64("pool_version", snap.Version+1),
			)
			return approved, nil
		}
		if errors.Is(err, storage.ErrPoolVersionConflict) {
			a.Logger.Debug("pool version moved, re-evaluating approval", slog.String("request_id", requestID), slog.Int("attempt", attempt))
			continue
		}
		return nil, a.transitionErr(ctx, requestID, models.FundingApproved, "only open requests can be approved", err)
	}
	return nil, fmt.Errorf("failed to approve funding request %s: %w", requestID, storage.ErrConcurrentModification)
}

// RecordContribution adds a money donation to the pool ledger. Recording
// the same ID twice is a no-op and reports false.
func (a *Accountant) RecordContribution(ctx context.Context, d *models.MonetaryDonation) (bool, error) {
	if d.Amount <= 0 {
		return false, apperrors.Validation("amount", "must be positive")
	}
	if strings.TrimSpace(d.DonorId) == "" {
		return false, apperrors.Validation("donorId", "required")
	}
	if _, err := models.ParseContributionStatus(string(d.Status)); err != nil {
		return false, apperrors.Validation("status", err.Error())
	}
	now := a.Now().UTC()
	if d.Id == "" {
		d.Id = a.NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.Status == models.ContributionCompleted && d.CompletedAt == nil {
		d.CompletedAt = &now
	}
	d.GSI1PK = models.ContributionsPartition

	if err := a.Store.RecordContribution(ctx, d); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			a.Logger.Info("duplicate contribution ignored", slog.String("contribution_id", d.Id))
			return false, nil
		}
		return false, fmt.Errorf("failed to record contribution: %w", err)
	}
	return true, nil
}

// ListContributions returns the most recent contributions.
func (a *Accountant) ListContributions(ctx context.Context, limit int32) ([]models.MonetaryDonation, error) {
	out, err := a.Store.ListContributions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return out, nil
}

// transitionErr classifies a failed conditional write on a funding request.
func (a *Accountant) transitionErr(ctx context.Context, id string, to models.FundingStatus, detail string, err error) error {
	if !errors.Is(err, storage.ErrConditionFailed) {
		return a.storeErr(id, "update", err)
	}
	cur, getErr := a.Get(ctx, id)
	if getErr != nil {
		return getErr
	}
	return apperrors.InvalidTransition(entityFunding, id, string(cur.AdminStatus), string(to), detail)
}

func (a *Accountant) storeErr(id, op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound(entityFunding, id)
	}
	return fmt.Errorf("failed to %s funding request: %w", op, err)
}
