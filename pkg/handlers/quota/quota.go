package quota

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

// QuotaHandler holds the dependencies for quota and item request handlers.
type QuotaHandler struct {
	Service broker.QuotaService
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(service broker.QuotaService) *QuotaHandler {
	return &QuotaHandler{Service: service}
}

// GetQuota handles an NGO reading one of its usage counters.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request, limitType string) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	limit, err := models.ParseLimitType(limitType)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("limitType", err.Error()))
		return
	}

	status, err := h.Service.CheckQuota(r.Context(), caller, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiQuotaStatus(status))
}

// SubmitItemRequest handles an NGO posting an item need.
func (h *QuotaHandler) SubmitItemRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.NewItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	ir, err := h.Service.SubmitItemRequest(r.Context(), caller, broker.ItemRequestInput{
		Category:       body.Category,
		Title:          body.Title,
		Quantity:       body.Quantity,
		EstimatedValue: body.EstimatedValue,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiItemRequest(ir))
}

// CloseItemRequest handles moving an open item request to a terminal status.
func (h *QuotaHandler) CloseItemRequest(w http.ResponseWriter, r *http.Request, requestId types.UUID) {
	caller, ok := middleware.RequireCaller(w, r)
	if !ok {
		return
	}
	var body api.ItemRequestClose
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.BadRequest(w, err)
		return
	}
	status, err := models.ParseClosingStatus(body.Status)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("status", err.Error()))
		return
	}

	ir, err := h.Service.CloseItemRequest(r.Context(), caller, requestId.String(), status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiItemRequest(ir))
}
