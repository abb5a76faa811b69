package funding

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

const (
	defaultContributionLimit = 20
	maxContributionLimit     = 100
)

// FundingHandler holds the dependencies for funding request, pool and contribution handlers.
type FundingHandler struct {
	Service broker.FundingService
}

// NewFundingHandler creates a new FundingHandler.
func NewFundingHandler(service broker.FundingService) *FundingHandler {
	return &FundingHandler{Service: service}
}

// SubmitFundingRequest handles an NGO asking the pool for money.
func (h *FundingHandler) SubmitFundingRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.NewFundingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	fr, err := h.Service.SubmitFundingRequest(r.Context(), caller, body.Amount, body.Purpose)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiFundingRequest(fr))
}

// GetFundingRequest handles reading a single funding request.
func (h *FundingHandler) GetFundingRequest(w http.ResponseWriter, r *http.Request, requestId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	fr, err := h.Service.GetFundingRequest(r.Context(), caller, requestId.String())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiFundingRequest(fr))
}

// ReviewFundingRequest handles an admin decision on a funding request.
func (h *FundingHandler) ReviewFundingRequest(w http.ResponseWriter, r *http.Request, requestId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.FundingReview
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}
	decision, err := models.ParseFundingDecision(body.Decision)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("decision", err.Error()))
		return
	}
	in := broker.ReviewFundingInput{Decision: decision, Amount: body.Amount}
	if body.Reason != nil {
		in.Reason = *body.Reason
	}

	fr, err := h.Service.ReviewFundingRequest(r.Context(), caller, requestId.String(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiFundingRequest(fr))
}

// GetPoolBalance handles reading the derived pool balance.
func (h *FundingHandler) GetPoolBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	balance, err := h.Service.GetPoolBalance(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, api.PoolBalance{Balance: balance})
}

// RecordContribution handles an admin ingesting a money donation.
// A replayed contribution id answers 200 instead of 201.
func (h *FundingHandler) RecordContribution(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.NewContribution
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	d := mapping.ToDomainContribution(&body)
	created, err := h.Service.RecordContribution(r.Context(), caller, d)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond.JSON(w, status, mapping.ToApiContribution(d))
}

// ListContributions handles an admin reading recent contributions.
func (h *FundingHandler) ListContributions(w http.ResponseWriter, r *http.Request, params api.ListContributionsParams) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	limit := defaultContributionLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > maxContributionLimit {
		respond.Error(w, r, apperrors.Validation("limit", "must be between 1 and 100"))
		return
	}

	ds, err := h.Service.ListContributions(r.Context(), caller, int32(limit))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	out := make([]*api.Contribution, len(ds))
	for i := range ds {
		out[i] = mapping.ToApiContribution(&ds[i])
	}
	respond.JSON(w, http.StatusOK, out)
}
