package donations

import (
	"encoding/json"
	"net/http"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/handlers/respond"
	"github.com/chris/donation-broker/pkg/mapping"
	"github.com/chris/donation-broker/pkg/middleware"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/oapi-codegen/runtime/types"
)

// DonationsHandler holds the dependencies for item donation handlers.
type DonationsHandler struct {
	Service broker.DonationService
}

// NewDonationsHandler creates a new DonationsHandler.
func NewDonationsHandler(service broker.DonationService) *DonationsHandler {
	return &DonationsHandler{Service: service}
}

// SubmitDonation handles a donor posting an item donation.
func (h *DonationsHandler) SubmitDonation(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.NewDonation
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	in := broker.SubmitDonationInput{
		Items:    mapping.ToDomainItems(body.Items),
		Category: body.Category,
	}
	if body.MediaRefs != nil {
		in.MediaRefs = *body.MediaRefs
	}

	d, err := h.Service.SubmitDonation(r.Context(), caller, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiDonation(d))
}

// GetDonation handles reading a single donation.
func (h *DonationsHandler) GetDonation(w http.ResponseWriter, r *http.Request, donationId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	d, err := h.Service.GetDonation(r.Context(), caller, donationId.String())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiDonation(d))
}

// ListAvailableDonations handles an NGO browsing approved, unclaimed donations.
func (h *DonationsHandler) ListAvailableDonations(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	ds, err := h.Service.ListAvailableDonations(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiDonations(ds))
}

// ReviewDonation handles an admin approving or rejecting a pending donation.
func (h *DonationsHandler) ReviewDonation(w http.ResponseWriter, r *http.Request, donationId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.DonationReview
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}
	decision, err := models.ParseReviewDecision(body.Decision)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("decision", err.Error()))
		return
	}
	var reason string
	if body.Reason != nil {
		reason = *body.Reason
	}

	d, err := h.Service.ReviewDonation(r.Context(), caller, donationId.String(), decision, reason)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiDonation(d))
}

// AcceptDonation handles an NGO claiming an approved donation.
func (h *DonationsHandler) AcceptDonation(w http.ResponseWriter, r *http.Request, donationId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	d, err := h.Service.AcceptDonation(r.Context(), caller, donationId.String())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiDonation(d))
}

// AdvanceDelivery handles the accepting NGO moving delivery one step forward.
func (h *DonationsHandler) AdvanceDelivery(w http.ResponseWriter, r *http.Request, donationId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.DeliveryUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}
	target, err := models.ParseDeliveryStatus(body.Status)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("status", err.Error()))
		return
	}

	d, err := h.Service.AdvanceDelivery(r.Context(), caller, donationId.String(), target)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiDonation(d))
}
