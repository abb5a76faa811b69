package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/config"
	"github.com/chris/donation-broker/pkg/middleware"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
	"github.com/chris/donation-broker/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(string) string { return "" })
	require.NoError(t, err)
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("Memory Backend", func(t *testing.T) {
		deps, err := Open(context.Background(), memoryConfig(t), discardLogger())
		require.NoError(t, err)
		defer deps.Close()

		assert.IsType(t, &memory.Store{}, deps.Store)
		assert.Equal(t, notify.NoOp{}, deps.Notifier)
	})

	t.Run("Unknown Backend", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.Storage.Backend = "cassandra"

		_, err := Open(context.Background(), cfg, discardLogger())
		assert.ErrorContains(t, err, "cassandra")
	})

	t.Run("Close Runs In Reverse", func(t *testing.T) {
		var order []int
		d := &Deps{closers: []func(){
			func() { order = append(order, 1) },
			func() { order = append(order, 2) },
		}}
		d.Close()
		d.Close()
		assert.Equal(t, []int{2, 1}, order)
	})
}

func TestIdentityProvider(t *testing.T) {
	cfg := memoryConfig(t)
	assert.IsType(t, middleware.HeaderIdentity{}, IdentityProvider(cfg))

	cfg.Identity = config.IdentityConfig{Mode: config.IdentityJWT, JWTSecret: "s3cret"}
	provider := IdentityProvider(cfg)
	require.IsType(t, middleware.JWTIdentity{}, provider)
	assert.Equal(t, []byte("s3cret"), provider.(middleware.JWTIdentity).Secret)
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path string, caller models.Caller, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderCallerID, caller.Id)
	req.Header.Set(middleware.HeaderCallerRole, string(caller.Role))
	if caller.Tier != 0 {
		req.Header.Set(middleware.HeaderCallerTier, strconv.Itoa(caller.Tier))
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func TestRouterEndToEnd(t *testing.T) {
	// Arrange
	deps, err := Open(context.Background(), memoryConfig(t), discardLogger())
	require.NoError(t, err)
	defer deps.Close()

	svc := broker.New(deps.Store, deps.Notifier, discardLogger())
	c := client{t: t, router: NewRouter(svc, middleware.HeaderIdentity{}, discardLogger())}

	admin := models.Caller{Id: "admin-1", Role: models.RoleAdmin}
	ngo := models.Caller{Id: "ngo-1", Role: models.RoleNGO, Tier: 2}

	// Act: fund the pool, then approve part of a request against it.
	rr := c.do(http.MethodPost, "/contributions", admin, api.NewContribution{DonorId: "donor-1", Amount: 1000})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/funding-requests", ngo, api.NewFundingRequest{Amount: 500, Purpose: "blankets"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created api.FundingRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	amount := int64(300)
	rr = c.do(http.MethodPost, "/funding-requests/"+created.Id+"/review", admin,
		api.FundingReview{Decision: string(models.FundingDecisionApprove), Amount: &amount})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodGet, "/pool/balance", ngo, nil)

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	var balance api.PoolBalance
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &balance))
	assert.Equal(t, int64(700), balance.Balance)
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}
