package broker

import (
	"context"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/lifecycle"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
	"github.com/chris/donation-broker/pkg/quota"
)

func (b *Broker) CheckQuota(ctx context.Context, caller models.Caller, limit models.LimitType) (quota.Status, error) {
	if _, err := ngoPlan(caller, "check quota"); err != nil {
		return quota.Status{}, err
	}
	return b.Quota.Status(ctx, caller.Id, caller.Tier, limit)
}

// SubmitItemRequest posts an item need and charges one active-request slot.
func (b *Broker) SubmitItemRequest(ctx context.Context, caller models.Caller, in ItemRequestInput) (*models.ItemRequest, error) {
	if _, err := ngoPlan(caller, "request items"); err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateItemRequest(in.Category, in.Title, in.Quantity, in.EstimatedValue); err != nil {
		return nil, err
	}
	if err := gateCategory(caller, in.Category, "request items"); err != nil {
		return nil, err
	}
	total, _ := models.LineValue(in.Quantity, in.EstimatedValue)
	if err := b.Quota.CheckItemValue(caller.Tier, total); err != nil {
		return nil, err
	}
	if err := b.Quota.CheckAndReserve(ctx, caller.Id, caller.Tier, models.LimitActiveRequests); err != nil {
		return nil, err
	}

	req, err := b.ItemRequests.Create(ctx, caller.Id, in.Category, in.Title, in.Quantity, in.EstimatedValue)
	if err != nil {
		return nil, err
	}
	b.charge(ctx, caller.Id, models.LimitActiveRequests, true)
	b.publish(ctx, notify.Event{Type: notify.ItemRequestCreated, EntityId: req.Id, ActorId: caller.Id, Status: string(req.Status)})
	return req, nil
}

// CloseItemRequest releases the active-request slot exactly once. The
// owning NGO may fulfil or cancel; admins may apply any closing status.
func (b *Broker) CloseItemRequest(ctx context.Context, caller models.Caller, id string, status models.ItemRequestStatus) (*models.ItemRequest, error) {
	if err := requireRole(caller, "close item request", models.RoleNGO, models.RoleAdmin); err != nil {
		return nil, err
	}
	cur, err := b.ItemRequests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleNGO {
		if cur.NgoId != caller.Id {
			return nil, apperrors.Unauthorized(caller.Id, "close item request", "request belongs to another ngo")
		}
		if status != models.ItemRequestFulfilled && status != models.ItemRequestCancelled {
			return nil, apperrors.Unauthorized(caller.Id, "close item request", "ngos may only fulfil or cancel")
		}
	}

	req, err := b.ItemRequests.Close(ctx, id, status)
	if err != nil {
		return nil, err
	}
	b.charge(ctx, req.NgoId, models.LimitActiveRequests, false)
	b.publish(ctx, notify.Event{Type: notify.ItemRequestClosed, EntityId: req.Id, ActorId: caller.Id, Recipients: []string{req.NgoId}, Status: string(req.Status)})
	return req, nil
}
