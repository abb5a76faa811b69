package broker

import (
	"context"
	"fmt"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
)

// SubmitFundingRequest checks the plan and the monthly financial-request
// quota, opens the request, then charges the quota.
func (b *Broker) SubmitFundingRequest(ctx context.Context, caller models.Caller, amount int64, purpose string) (*models.FundingRequest, error) {
	plan, err := ngoPlan(caller, "request funding")
	if err != nil {
		return nil, err
	}
	if !plan.Permissions.CanRequestFinancial {
		return nil, apperrors.Unauthorized(caller.Id, "request funding", fmt.Sprintf("%s tier cannot request funding", plan.Name))
	}
	if err := b.Quota.CheckAndReserve(ctx, caller.Id, caller.Tier, models.LimitFinancialRequests); err != nil {
		return nil, err
	}

	req, err := b.Pool.SubmitRequest(ctx, caller.Id, caller.Tier, amount, purpose)
	if err != nil {
		return nil, err
	}
	b.charge(ctx, caller.Id, models.LimitFinancialRequests, true)
	b.publish(ctx, notify.Event{Type: notify.FundingSubmitted, EntityId: req.Id, ActorId: caller.Id, Status: string(req.AdminStatus), Amount: amount})
	return req, nil
}

// GetFundingRequest is visible to admins and the requesting NGO.
func (b *Broker) GetFundingRequest(ctx context.Context, caller models.Caller, id string) (*models.FundingRequest, error) {
	if err := requireRole(caller, "view funding request", models.RoleAdmin, models.RoleNGO); err != nil {
		return nil, err
	}
	req, err := b.Pool.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleNGO && req.NgoId != caller.Id {
		return nil, apperrors.Unauthorized(caller.Id, "view funding request", "request belongs to another ngo")
	}
	return req, nil
}

func (b *Broker) ReviewFundingRequest(ctx context.Context, caller models.Caller, id string, in ReviewFundingInput) (*models.FundingRequest, error) {
	if err := requireRole(caller, "review funding request", models.RoleAdmin); err != nil {
		return nil, err
	}

	var (
		req *models.FundingRequest
		err error
	)
	switch in.Decision {
	case models.FundingDecisionUnderReview:
		req, err = b.Pool.MarkUnderReview(ctx, id)
	case models.FundingDecisionApprove:
		var amount int64
		if in.Amount != nil {
			amount = *in.Amount
		} else {
			cur, getErr := b.Pool.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			amount = cur.RequestedAmount
		}
		req, err = b.Pool.ApproveAllocation(ctx, id, amount)
	case models.FundingDecisionReject:
		req, err = b.Pool.Reject(ctx, id, in.Reason)
	case models.FundingDecisionComplete:
		req, err = b.Pool.Complete(ctx, id)
	default:
		return nil, apperrors.Validation("decision", fmt.Sprintf("unknown decision %q", in.Decision))
	}
	if err != nil {
		return nil, err
	}

	b.publish(ctx, notify.Event{
		Type:       notify.FundingReviewed,
		EntityId:   req.Id,
		ActorId:    caller.Id,
		Recipients: []string{req.NgoId},
		Status:     string(req.AdminStatus),
		Amount:     req.ApprovedAmount,
	})
	return req, nil
}

func (b *Broker) GetPoolBalance(ctx context.Context, caller models.Caller) (int64, error) {
	if err := requireRole(caller, "view pool balance", models.RoleAdmin, models.RoleNGO, models.RoleDonor); err != nil {
		return 0, err
	}
	return b.Pool.AvailableBalance(ctx)
}

// RecordContribution ingests a money donation into the pool ledger.
func (b *Broker) RecordContribution(ctx context.Context, caller models.Caller, d *models.MonetaryDonation) (bool, error) {
	if err := requireRole(caller, "record contribution", models.RoleAdmin); err != nil {
		return false, err
	}
	created, err := b.Pool.RecordContribution(ctx, d)
	if err != nil {
		return false, err
	}
	if created {
		b.publish(ctx, notify.Event{Type: notify.ContributionRecorded, EntityId: d.Id, ActorId: d.DonorId, Status: string(d.Status), Amount: d.Amount})
	}
	return created, nil
}

func (b *Broker) ListContributions(ctx context.Context, caller models.Caller, limit int32) ([]models.MonetaryDonation, error) {
	if err := requireRole(caller, "list contributions", models.RoleAdmin); err != nil {
		return nil, err
	}
	return b.Pool.ListContributions(ctx, limit)
}
