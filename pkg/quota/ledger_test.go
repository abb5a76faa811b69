package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

func newLedger(store *memory.Store) *Ledger {
	l := NewLedger(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.Now = func() time.Time { return now }
	return l
}

func TestCheckAndReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Active Requests At Limit", func(t *testing.T) {
		// Arrange
		store := memory.NewStore()
		store.SetUsage(models.SubscriptionUsage{NgoId: "ngo-1", ActiveRequests: 2, LastResetDate: now.AddDate(0, 0, -3)})
		ledger := newLedger(store)

		// Act
		err := ledger.CheckAndReserve(ctx, "ngo-1", 1, models.LimitActiveRequests)

		// Assert
		var qe *apperrors.QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
		assert.Equal(t, "activeRequests", qe.LimitType)
		assert.Equal(t, int64(2), qe.Limit)
		assert.Equal(t, int64(2), qe.Current)
		assert.True(t, qe.ResetsOn.IsZero())
	})

	t.Run("Rolls Over After Window", func(t *testing.T) {
		// Arrange
		store := memory.NewStore()
		store.SetUsage(models.SubscriptionUsage{
			NgoId:                "ngo-1",
			ActiveRequests:       1,
			MonthlyAcceptedItems: 10,
			LastResetDate:        now.AddDate(0, 0, -31),
		})
		ledger := newLedger(store)

		// Act
		err := ledger.CheckAndReserve(ctx, "ngo-1", 1, models.LimitMonthlyAccepted)

		// Assert
		require.NoError(t, err)
		u, _ := store.GetUsage(ctx, "ngo-1")
		assert.Equal(t, 0, u.MonthlyAcceptedItems)
		assert.Equal(t, 1, u.ActiveRequests)
		assert.True(t, u.LastResetDate.Equal(now))
	})

	t.Run("Monthly Limit Reports Reset Date", func(t *testing.T) {
		last := now.AddDate(0, 0, -10)
		store := memory.NewStore()
		store.SetUsage(models.SubscriptionUsage{NgoId: "ngo-1", MonthlyAcceptedItems: 10, LastResetDate: last})
		ledger := newLedger(store)

		err := ledger.CheckAndReserve(ctx, "ngo-1", 1, models.LimitMonthlyAccepted)

		var qe *apperrors.QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, last.Add(models.UsageWindow), qe.ResetsOn)
	})

	t.Run("Basic Tier Has No Financial Requests", func(t *testing.T) {
		ledger := newLedger(memory.NewStore())

		err := ledger.CheckAndReserve(ctx, "ngo-1", 1, models.LimitFinancialRequests)

		assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	})

	t.Run("Unknown Tier", func(t *testing.T) {
		ledger := newLedger(memory.NewStore())

		err := ledger.CheckAndReserve(ctx, "ngo-1", 9, models.LimitActiveRequests)

		assert.ErrorIs(t, err, apperrors.ErrUnknownTier)
	})

	t.Run("Item Value Is Not A Counter", func(t *testing.T) {
		ledger := newLedger(memory.NewStore())

		err := ledger.CheckAndReserve(ctx, "ngo-1", 1, models.LimitMaxItemValue)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestUsageResetsOncePerWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetUsage(models.SubscriptionUsage{NgoId: "ngo-1", MonthlyAcceptedItems: 7, LastResetDate: now.AddDate(0, 0, -45)})
	ledger := newLedger(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := ledger.Usage(ctx, "ngo-1")
			assert.NoError(t, err)
			assert.True(t, u.LastResetDate.Equal(now))
		}()
	}
	wg.Wait()

	// A counter charged after the reset must survive further reads in the same window.
	require.NoError(t, ledger.Increment(ctx, "ngo-1", models.LimitMonthlyAccepted))
	u, err := ledger.Usage(ctx, "ngo-1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.MonthlyAcceptedItems)
}

func TestDecrementFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(memory.NewStore())

	require.NoError(t, ledger.Decrement(ctx, "ngo-1", models.LimitActiveRequests))
	require.NoError(t, ledger.Increment(ctx, "ngo-1", models.LimitActiveRequests))
	require.NoError(t, ledger.Decrement(ctx, "ngo-1", models.LimitActiveRequests))
	require.NoError(t, ledger.Decrement(ctx, "ngo-1", models.LimitActiveRequests))

	st, err := ledger.Status(ctx, "ngo-1", 2, models.LimitActiveRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Current)
	assert.Equal(t, int64(5), st.Remaining())
}

func TestCheckItemValue(t *testing.T) {
	ledger := newLedger(memory.NewStore())

	assert.NoError(t, ledger.CheckItemValue(1, 5_000))

	err := ledger.CheckItemValue(1, 5_001)
	var qe *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "maxItemValue", qe.LimitType)
}
