package mocks

import (
	"context"

	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/quota"
	"github.com/stretchr/testify/mock"
)

// Service is a mock type for the broker.Service type.
type Service struct {
	mock.Mock
}

var _ broker.Service = (*Service)(nil)

func (m *Service) donation(args mock.Arguments) (*models.DonationRecord, error) {
	if v := args.Get(0); v != nil {
		return v.(*models.DonationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Service) funding(args mock.Arguments) (*models.FundingRequest, error) {
	if v := args.Get(0); v != nil {
		return v.(*models.FundingRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Service) itemRequest(args mock.Arguments) (*models.ItemRequest, error) {
	if v := args.Get(0); v != nil {
		return v.(*models.ItemRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

// SubmitDonation provides a mock function with given fields: ctx, caller, in
func (m *Service) SubmitDonation(ctx context.Context, caller models.Caller, in broker.SubmitDonationInput) (*models.DonationRecord, error) {
	return m.donation(m.Called(ctx, caller, in))
}

// GetDonation provides a mock function with given fields: ctx, caller, id
func (m *Service) GetDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error) {
	return m.donation(m.Called(ctx, caller, id))
}

// ListAvailableDonations provides a mock function with given fields: ctx, caller
func (m *Service) ListAvailableDonations(ctx context.Context, caller models.Caller) ([]models.DonationRecord, error) {
	args := m.Called(ctx, caller)
	if v := args.Get(0); v != nil {
		return v.([]models.DonationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// ReviewDonation provides a mock function with given fields: ctx, caller, id, decision, reason
func (m *Service) ReviewDonation(ctx context.Context, caller models.Caller, id string, decision models.ReviewDecision, reason string) (*models.DonationRecord, error) {
	return m.donation(m.Called(ctx, caller, id, decision, reason))
}

// AcceptDonation provides a mock function with given fields: ctx, caller, id
func (m *Service) AcceptDonation(ctx context.Context, caller models.Caller, id string) (*models.DonationRecord, error) {
	return m.donation(m.Called(ctx, caller, id))
}

// AdvanceDelivery provides a mock function with given fields: ctx, caller, id, target
func (m *Service) AdvanceDelivery(ctx context.Context, caller models.Caller, id string, target models.DeliveryStatus) (*models.DonationRecord, error) {
	return m.donation(m.Called(ctx, caller, id, target))
}

// SubmitFundingRequest provides a mock function with given fields: ctx, caller, amount, purpose
func (m *Service) SubmitFundingRequest(ctx context.Context, caller models.Caller, amount int64, purpose string) (*models.FundingRequest, error) {
	return m.funding(m.Called(ctx, caller, amount, purpose))
}

// GetFundingRequest provides a mock function with given fields: ctx, caller, id
func (m *Service) GetFundingRequest(ctx context.Context, caller models.Caller, id string) (*models.FundingRequest, error) {
	return m.funding(m.Called(ctx, caller, id))
}

// ReviewFundingRequest provides a mock function with given fields: ctx, caller, id, in
func (m *Service) ReviewFundingRequest(ctx context.Context, caller models.Caller, id string, in broker.ReviewFundingInput) (*models.FundingRequest, error) {
	return m.funding(m.Called(ctx, caller, id, in))
}

// GetPoolBalance provides a mock function with given fields: ctx, caller
func (m *Service) GetPoolBalance(ctx context.Context, caller models.Caller) (int64, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(int64), args.Error(1)
}

// RecordContribution provides a mock function with given fields: ctx, caller, d
func (m *Service) RecordContribution(ctx context.Context, caller models.Caller, d *models.MonetaryDonation) (bool, error) {
	args := m.Called(ctx, caller, d)
	return args.Bool(0), args.Error(1)
}

// ListContributions provides a mock function with given fields: ctx, caller, limit
func (m *Service) ListContributions(ctx context.Context, caller models.Caller, limit int32) ([]models.MonetaryDonation, error) {
	args := m.Called(ctx, caller, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.MonetaryDonation), args.Error(1)
	}
	return nil, args.Error(1)
}

// CheckQuota provides a mock function with given fields: ctx, caller, limit
func (m *Service) CheckQuota(ctx context.Context, caller models.Caller, limit models.LimitType) (quota.Status, error) {
	args := m.Called(ctx, caller, limit)
	return args.Get(0).(quota.Status), args.Error(1)
}

// SubmitItemRequest provides a mock function with given fields: ctx, caller, in
func (m *Service) SubmitItemRequest(ctx context.Context, caller models.Caller, in broker.ItemRequestInput) (*models.ItemRequest, error) {
	return m.itemRequest(m.Called(ctx, caller, in))
}

// CloseItemRequest provides a mock function with given fields: ctx, caller, id, status
func (m *Service) CloseItemRequest(ctx context.Context, caller models.Caller, id string, status models.ItemRequestStatus) (*models.ItemRequest, error) {
	return m.itemRequest(m.Called(ctx, caller, id, status))
}
