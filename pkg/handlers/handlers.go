package handlers

import (
	"net/http"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/handlers/donations"
	"github.com/chris/donation-broker/pkg/handlers/funding"
	"github.com/chris/donation-broker/pkg/handlers/quota"
	"github.com/chris/donation-broker/pkg/handlers/respond"
)

// ApiHandler implements the generated server interface by composing the
// per-area handlers around one broker.
type ApiHandler struct {
	*donations.DonationsHandler
	*funding.FundingHandler
	*quota.QuotaHandler
}

// NewApiHandler creates a new ApiHandler backed by service.
func NewApiHandler(service broker.Service) *ApiHandler {
	return &ApiHandler{
		DonationsHandler: donations.NewDonationsHandler(service),
		FundingHandler:   funding.NewFundingHandler(service),
		QuotaHandler:     quota.NewQuotaHandler(service),
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// GetHealth reports liveness. It is mounted outside the identity check.
func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, api.Health{Status: "ok"})
}
