// Package broker is the operation surface callers use. Each mutating call
// resolves the caller's tier, runs the gate, quota and pool checks, commits
// the transition, charges quota, and finally publishes a best-effort event.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/lifecycle"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
	"github.com/chris/donation-broker/pkg/pool"
	"github.com/chris/donation-broker/pkg/quota"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/chris/donation-broker/pkg/tiers"
)

// NotifyTimeout bounds how long a transition waits on the notifier.
const NotifyTimeout = 2 * time.Second

// DonationService covers the item donation lifecycle.
type DonationService interface {
	SubmitDonation(ctx context.Context, caller models.Caller, in SubmitDonationInput) (*models.DonationRecord, error)
	GetDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error)
	ListAvailableDonations(ctx context.Context, caller models.Caller) ([]models.DonationRecord, error)
	ReviewDonation(ctx context.Context, caller models.Caller, id string, decision models.ReviewDecision, reason string) (*models.DonationRecord, error)
	AcceptDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error)
	AdvanceDelivery(ctx context.Context, caller models.Caller, id string, target models.DeliveryStatus) (*models.DonationRecord, error)
}

// FundingService covers funding requests and the shared pool.
type FundingService interface {
	SubmitFundingRequest(ctx context.Context, caller models.Caller, amount int64, purpose string) (*models.FundingRequest, error)
	GetFundingRequest(ctx context.Context, caller models.Caller, id string) (*models.FundingRequest, error)
	ReviewFundingRequest(ctx context.Context, caller models.Caller, id string, in ReviewFundingInput) (*models.FundingRequest, error)
	GetPoolBalance(ctx context.Context, caller models.Caller) (int64, error)
	RecordContribution(ctx context.Context, caller models.Caller, d *models.MonetaryDonation) (bool, error)
	ListContributions(ctx context.Context, caller models.Caller, limit int32) ([]models.MonetaryDonation, error)
}

// QuotaService covers quota reads and the item request board.
type QuotaService interface {
	CheckQuota(ctx context.Context, caller models.Caller, limit models.LimitType) (quota.Status, error)
	SubmitItemRequest(ctx context.Context, caller models.Caller, in ItemRequestInput) (*models.ItemRequest, error)
	CloseItemRequest(ctx context.Context, caller models.Caller, id string, status models.ItemRequestStatus) (*models.ItemRequest, error)
}

// Service is the broker's full operation surface.
type Service interface {
	DonationService
	FundingService
	QuotaService
}

// SubmitDonationInput is a donor's item donation.
type SubmitDonationInput struct {
	Items     []models.DonationItem
	Category  string
	MediaRefs []string
}

// ReviewFundingInput is an admin decision on a funding request. Amount
// defaults to the requested amount on approval.
type ReviewFundingInput struct {
	Decision models.FundingDecision
	Amount   *int64
	Reason   string
}

// ItemRequestInput is an NGO's posted item need.
type ItemRequestInput struct {
	Category       string
	Title          string
	Quantity       int
	EstimatedValue int64
}

// Broker implements Service on top of the core services.
type Broker struct {
	Donations    *lifecycle.Donations
	ItemRequests *lifecycle.ItemRequests
	Quota        *quota.Ledger
	Pool         *pool.Accountant
	Notifier     notify.Notifier
	Logger       *slog.Logger
	Now          func() time.Time
}

var _ Service = (*Broker)(nil)

// New wires every core service to one store.
func New(store storage.Storage, notifier notify.Notifier, logger *slog.Logger) *Broker {
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	return &Broker{
		Donations:    lifecycle.NewDonations(store, logger),
		ItemRequests: lifecycle.NewItemRequests(store, logger),
		Quota:        quota.NewLedger(store, logger),
		Pool:         pool.NewAccountant(store, logger),
		Notifier:     notifier,
		Logger:       logger,
		Now:          time.Now,
	}
}

// SetClock points every service at now. Used by tests.
func (b *Broker) SetClock(now func() time.Time) {
	b.Now = now
	b.Donations.Now = now
	b.ItemRequests.Now = now
	b.Quota.Now = now
	b.Pool.Now = now
}

func requireRole(caller models.Caller, action string, roles ...models.Role) error {
	for _, r := range roles {
		if caller.Role == r {
			return nil
		}
	}
	return apperrors.Unauthorized(caller.Id, action, fmt.Sprintf("role %q is not permitted", caller.Role))
}

// ngoPlan checks the caller is an NGO and resolves its plan.
func ngoPlan(caller models.Caller, action string) (tiers.TierPlan, error) {
	if err := requireRole(caller, action, models.RoleNGO); err != nil {
		return tiers.TierPlan{}, err
	}
	return tiers.ResolvePlan(caller.Tier)
}

// gateCategory fails with Unauthorized when the NGO's tier is below the category's.
func gateCategory(caller models.Caller, category, action string) error {
	ok, required, err := tiers.CanAccessCategory(caller.Tier, category)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Unauthorized(caller.Id, action, fmt.Sprintf("category %s requires tier %d", category, required))
	}
	return nil
}

// publish sends e and swallows any failure.
func (b *Broker) publish(ctx context.Context, e notify.Event) {
	e.OccurredAt = b.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
	defer cancel()
	if err := b.Notifier.Publish(ctx, e); err != nil {
		b.Logger.Warn("failed to publish event (non-fatal)",
			slog.String("event_type", string(e.Type)),
			slog.String("entity_id", e.EntityId),
			slog.Any("error", err),
		)
	}
}

// charge applies a quota change for an action that already committed. A
// failure here cannot undo the action, so it is logged rather than returned.
func (b *Broker) charge(ctx context.Context, ngoID string, limit models.LimitType, increment bool) {
	var err error
	if increment {
		err = b.Quota.Increment(ctx, ngoID, limit)
	} else {
		err = b.Quota.Decrement(ctx, ngoID, limit)
	}
	if err != nil {
		b.Logger.Error("failed to update quota counter",
			slog.String("ngo_id", ngoID),
			slog.String("limit_type", string(limit)),
			slog.Bool("increment", increment),
			slog.Any("error", err),
		)
	}
}
