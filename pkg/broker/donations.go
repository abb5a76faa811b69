package broker

import (
	"context"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
	"github.com/chris/donation-broker/pkg/tiers"
)

func (b *Broker) SubmitDonation(ctx context.Context, caller models.Caller, in SubmitDonationInput) (*models.DonationRecord, error) {
	if err := requireRole(caller, "submit donation", models.RoleDonor); err != nil {
		return nil, err
	}
	rec, err := b.Donations.Submit(ctx, caller.Id, in.Items, in.Category, in.MediaRefs)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, notify.Event{Type: notify.DonationSubmitted, EntityId: rec.Id, ActorId: caller.Id, Status: string(rec.AdminStatus)})
	return rec, nil
}

// GetDonation lets donors read their own donations, NGOs read approved ones
// and admins read everything.
func (b *Broker) GetDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error) {
	rec, err := b.Donations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case models.RoleAdmin:
		return rec, nil
	case models.RoleDonor:
		if rec.DonorId == caller.Id {
			return rec, nil
		}
	case models.RoleNGO:
		if rec.AdminStatus == models.AdminApproved {
			return rec, nil
		}
	}
	return nil, apperrors.Unauthorized(caller.Id, "view donation", "not visible to caller")
}

// ListAvailableDonations lists approved, unaccepted donations. NGOs only
// see categories their tier can accept.
func (b *Broker) ListAvailableDonations(ctx context.Context, caller models.Caller) ([]models.DonationRecord, error) {
	if err := requireRole(caller, "list donations", models.RoleNGO, models.RoleAdmin); err != nil {
		return nil, err
	}
	if caller.Role == models.RoleNGO {
		if _, err := tiers.ResolvePlan(caller.Tier); err != nil {
			return nil, err
		}
	}
	recs, err := b.Donations.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleAdmin {
		return recs, nil
	}
	out := recs[:0]
	for _, rec := range recs {
		if ok, _, err := tiers.CanAccessCategory(caller.Tier, rec.Category); err == nil && ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *Broker) ReviewDonation(ctx context.Context, caller models.Caller, id string, decision models.ReviewDecision, reason string) (*models.DonationRecord, error) {
	if err := requireRole(caller, "review donation", models.RoleAdmin); err != nil {
		return nil, err
	}
	rec, err := b.Donations.Review(ctx, id, decision, reason)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, notify.Event{
		Type:       notify.DonationReviewed,
		EntityId:   rec.Id,
		ActorId:    caller.Id,
		Recipients: []string{rec.DonorId},
		Status:     string(rec.AdminStatus),
	})
	return rec, nil
}

// AcceptDonation gates on category tier, item value and the monthly
// acceptance quota before attempting the exclusive acceptance. The quota is
// charged only after the acceptance commits.
func (b *Broker) AcceptDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error) {
	if _, err := ngoPlan(caller, "accept donation"); err != nil {
		return nil, err
	}
	cur, err := b.Donations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gateCategory(caller, cur.Category, "accept donation"); err != nil {
		return nil, err
	}
	if err := b.Quota.CheckItemValue(caller.Tier, cur.TotalValue()); err != nil {
		return nil, err
	}
	if err := b.Quota.CheckAndReserve(ctx, caller.Id, caller.Tier, models.LimitMonthlyAccepted); err != nil {
		return nil, err
	}

	rec, err := b.Donations.Accept(ctx, id, caller.Id)
	if err != nil {
		return nil, err
	}
	b.charge(ctx, caller.Id, models.LimitMonthlyAccepted, true)
	b.publish(ctx, notify.Event{
		Type:       notify.DonationAccepted,
		EntityId:   rec.Id,
		ActorId:    caller.Id,
		Recipients: []string{rec.DonorId},
		Status:     string(rec.DeliveryStatus),
	})
	return rec, nil
}

func (b *Broker) AdvanceDelivery(ctx context.Context, caller models.Caller, id string, target models.DeliveryStatus) (*models.DonationRecord, error) {
	if err := requireRole(caller, "update delivery", models.RoleNGO); err != nil {
		return nil, err
	}
	rec, err := b.Donations.AdvanceDelivery(ctx, id, caller.Id, target)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, notify.Event{
		Type:       notify.DeliveryAdvanced,
		EntityId:   rec.Id,
		ActorId:    caller.Id,
		Recipients: []string{rec.DonorId},
		Status:     string(rec.DeliveryStatus),
	})
	return rec, nil
}
