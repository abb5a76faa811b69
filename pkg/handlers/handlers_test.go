package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/broker/mocks"
	"github.com/chris/donation-broker/pkg/handlers"
	"github.com/chris/donation-broker/pkg/handlers/respond"
	"github.com/chris/donation-broker/pkg/middleware"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouter(svc *mocks.Service) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Identity(middleware.HeaderIdentity{}, "/healthz"))
	return api.HandlerWithOptions(handlers.NewApiHandler(svc), api.ChiServerOptions{
		BaseRouter:       router,
		ErrorHandlerFunc: respond.ParamError,
	})
}

func TestRouter(t *testing.T) {
	t.Run("Health Is Public", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(new(mocks.Service)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var out api.Health
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.Equal(t, "ok", out.Status)
	})

	t.Run("Identity Required", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter(new(mocks.Service)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pool/balance", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Path Parameter Bound", func(t *testing.T) {
		svc := new(mocks.Service)
		caller := models.Caller{Id: "donor-1", Role: models.RoleDonor}
		id := "7f0e8a1c-2f63-4a53-9d7e-0f7c1b5d9a11"
		svc.On("GetDonation", mock.Anything, caller, id).Return(&models.DonationRecord{Id: id}, nil)
		req := httptest.NewRequest(http.MethodGet, "/donations/"+id, nil)
		req.Header.Set(middleware.HeaderCallerID, "donor-1")
		req.Header.Set(middleware.HeaderCallerRole, "donor")
		rr := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Malformed Path Parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/donations/not-a-uuid", nil)
		req.Header.Set(middleware.HeaderCallerID, "donor-1")
		req.Header.Set(middleware.HeaderCallerRole, "donor")
		rr := httptest.NewRecorder()

		newRouter(new(mocks.Service)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
