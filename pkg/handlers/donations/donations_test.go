package donations_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/broker/mocks"
	"github.com/chris/donation-broker/pkg/handlers/donations"
	"github.com/chris/donation-broker/pkg/middleware"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	donor = models.Caller{Id: "donor-1", Role: models.RoleDonor}
	admin = models.Caller{Id: "admin-1", Role: models.RoleAdmin}
	ngo   = models.Caller{Id: "ngo-1", Role: models.RoleNGO, Tier: 2}
)

func newRequest(t *testing.T, method, target string, caller *models.Caller, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if caller != nil {
		req = req.WithContext(middleware.WithCaller(req.Context(), *caller))
	}
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.Error {
	t.Helper()
	var out api.Error
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestSubmitDonation(t *testing.T) {
	body := api.NewDonation{
		Items:    []api.DonationItem{{Name: "blanket", Quantity: 2, EstimatedValue: 800}},
		Category: "clothing",
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		created := &models.DonationRecord{
			Id:          uuid.NewString(),
			DonorId:     donor.Id,
			Items:       []models.DonationItem{{Name: "blanket", Quantity: 2, EstimatedValue: 800}},
			Category:    "clothing",
			AdminStatus: models.AdminPending,
			IsActive:    true,
		}
		svc.On("SubmitDonation", mock.Anything, donor, broker.SubmitDonationInput{
			Items:    created.Items,
			Category: "clothing",
		}).Return(created, nil)
		rr := httptest.NewRecorder()

		// Act
		h.SubmitDonation(rr, newRequest(t, http.MethodPost, "/donations", &donor, body))

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)
		var out api.Donation
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.Equal(t, created.Id, out.Id)
		assert.Equal(t, "pending", out.AdminStatus)
		assert.Equal(t, int64(1_600), out.TotalValue)
		svc.AssertExpectations(t)
	})

	t.Run("No Caller", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		rr := httptest.NewRecorder()

		h.SubmitDonation(rr, newRequest(t, http.MethodPost, "/donations", nil, body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "SubmitDonation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewBufferString("{"))
		req = req.WithContext(middleware.WithCaller(req.Context(), donor))
		rr := httptest.NewRecorder()

		h.SubmitDonation(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Validation Error", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("SubmitDonation", mock.Anything, donor, mock.Anything).Return(nil, apperrors.Validation("items", "at least one item is required"))
		rr := httptest.NewRecorder()

		h.SubmitDonation(rr, newRequest(t, http.MethodPost, "/donations", &donor, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeError(t, rr).Error)
	})
}

func TestReviewDonation(t *testing.T) {
	id := uuid.New()

	t.Run("Reject With Reason", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		reason := "blurry photos"
		svc.On("ReviewDonation", mock.Anything, admin, id.String(), models.DecisionReject, reason).
			Return(&models.DonationRecord{Id: id.String(), AdminStatus: models.AdminRejected, RejectionReason: reason}, nil)
		rr := httptest.NewRecorder()

		h.ReviewDonation(rr, newRequest(t, http.MethodPost, "/donations/"+id.String()+"/review", &admin,
			api.DonationReview{Decision: "reject", Reason: &reason}), id)

		assert.Equal(t, http.StatusOK, rr.Code)
		var out api.Donation
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		require.NotNil(t, out.RejectionReason)
		assert.Equal(t, reason, *out.RejectionReason)
		svc.AssertExpectations(t)
	})

	t.Run("Unknown Decision", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		rr := httptest.NewRecorder()

		h.ReviewDonation(rr, newRequest(t, http.MethodPost, "/", &admin, api.DonationReview{Decision: "maybe"}), id)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Not Pending", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("ReviewDonation", mock.Anything, admin, id.String(), models.DecisionApprove, "").
			Return(nil, apperrors.InvalidTransition("donation", id.String(), "approved", "approved", ""))
		rr := httptest.NewRecorder()

		h.ReviewDonation(rr, newRequest(t, http.MethodPost, "/", &admin, api.DonationReview{Decision: "approve"}), id)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "invalid_transition", decodeError(t, rr).Error)
	})
}

func TestAcceptDonation(t *testing.T) {
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("AcceptDonation", mock.Anything, ngo, id.String()).
			Return(&models.DonationRecord{Id: id.String(), AcceptedBy: &ngo.Id, DeliveryStatus: models.DeliveryNotPickedUp}, nil)
		rr := httptest.NewRecorder()

		h.AcceptDonation(rr, newRequest(t, http.MethodPost, "/", &ngo, nil), id)

		assert.Equal(t, http.StatusOK, rr.Code)
		var out api.Donation
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		require.NotNil(t, out.DeliveryStatus)
		assert.Equal(t, "not_picked_up", *out.DeliveryStatus)
	})

	t.Run("Lost Race", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("AcceptDonation", mock.Anything, ngo, id.String()).Return(nil, &apperrors.AlreadyAcceptedError{DonationId: id.String()})
		rr := httptest.NewRecorder()

		h.AcceptDonation(rr, newRequest(t, http.MethodPost, "/", &ngo, nil), id)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "already_accepted", decodeError(t, rr).Error)
	})

	t.Run("Quota Exceeded", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("AcceptDonation", mock.Anything, ngo, id.String()).
			Return(nil, &apperrors.QuotaExceededError{LimitType: "monthlyAcceptedItems", Limit: 30, Current: 30})
		rr := httptest.NewRecorder()

		h.AcceptDonation(rr, newRequest(t, http.MethodPost, "/", &ngo, nil), id)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		out := decodeError(t, rr)
		assert.Equal(t, "quota_exceeded", out.Error)
		assert.Equal(t, float64(30), out.Details["limit"])
	})
}

func TestAdvanceDelivery(t *testing.T) {
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("AdvanceDelivery", mock.Anything, ngo, id.String(), models.DeliveryPickedUp).
			Return(&models.DonationRecord{Id: id.String(), DeliveryStatus: models.DeliveryPickedUp}, nil)
		rr := httptest.NewRecorder()

		h.AdvanceDelivery(rr, newRequest(t, http.MethodPost, "/", &ngo, api.DeliveryUpdate{Status: "picked_up"}), id)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Unknown Status", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		rr := httptest.NewRecorder()

		h.AdvanceDelivery(rr, newRequest(t, http.MethodPost, "/", &ngo, api.DeliveryUpdate{Status: "lost"}), id)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetAndList(t *testing.T) {
	id := uuid.New()

	t.Run("Get Not Found", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("GetDonation", mock.Anything, donor, id.String()).Return(nil, apperrors.NotFound("donation", id.String()))
		rr := httptest.NewRecorder()

		h.GetDonation(rr, newRequest(t, http.MethodGet, "/", &donor, nil), id)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("List Available", func(t *testing.T) {
		svc := new(mocks.Service)
		h := donations.NewDonationsHandler(svc)
		svc.On("ListAvailableDonations", mock.Anything, ngo).Return([]models.DonationRecord{
			{Id: "a", Category: "food"},
			{Id: "b", Category: "furniture"},
		}, nil)
		rr := httptest.NewRecorder()

		h.ListAvailableDonations(rr, newRequest(t, http.MethodGet, "/donations/available", &ngo, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var out []api.Donation
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.Len(t, out, 2)
	})
}
