package tiers

import (
	"testing"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePlan(t *testing.T) {
	t.Run("Known Tiers", func(t *testing.T) {
		for tier := MinTier; tier <= MaxTier; tier++ {
			plan, err := ResolvePlan(tier)
			require.NoError(t, err)
			assert.Equal(t, tier, plan.Tier)
		}
	})

	t.Run("Silver Plan", func(t *testing.T) {
		plan, err := ResolvePlan(2)
		require.NoError(t, err)
		assert.Equal(t, "silver", plan.Name)
		assert.Equal(t, int64(20_000), plan.Limits.MonthlyFundingCap)
		assert.Equal(t, int64(2), plan.Limit(models.LimitFinancialRequests))
		assert.True(t, plan.Permissions.CanRequestFinancial)
	})

	t.Run("Basic Plan Cannot Request Money", func(t *testing.T) {
		plan, err := ResolvePlan(1)
		require.NoError(t, err)
		assert.False(t, plan.Permissions.CanRequestFinancial)
		assert.Equal(t, int64(2), plan.Limit(models.LimitActiveRequests))
	})

	t.Run("Out Of Range", func(t *testing.T) {
		for _, tier := range []int{-1, 0, 5, 99} {
			_, err := ResolvePlan(tier)
			assert.ErrorIs(t, err, apperrors.ErrUnknownTier)
		}
	})

	t.Run("Limits Grow With Tier", func(t *testing.T) {
		all := Plans()
		for i := 1; i < len(all); i++ {
			prev, cur := all[i-1].Limits, all[i].Limits
			assert.Greater(t, cur.ActiveRequests, prev.ActiveRequests)
			assert.Greater(t, cur.MaxItemValue, prev.MaxItemValue)
			assert.Greater(t, cur.MonthlyAcceptance, prev.MonthlyAcceptance)
			assert.GreaterOrEqual(t, cur.MonthlyFundingCap, prev.MonthlyFundingCap)
		}
	})
}

func TestCanAccess(t *testing.T) {
	t.Run("Monotonic", func(t *testing.T) {
		for caller := MinTier; caller <= MaxTier; caller++ {
			for required := MinTier; required <= MaxTier; required++ {
				ok, err := CanAccess(caller, required)
				require.NoError(t, err)
				assert.Equal(t, caller >= required, ok, "caller %d required %d", caller, required)
			}
		}
	})

	t.Run("Malformed Tier", func(t *testing.T) {
		_, err := CanAccess(0, 1)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTier)

		_, err = CanAccess(2, 7)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTier)
	})
}

func TestRequiredTier(t *testing.T) {
	tier, err := RequiredTier(" Electronics ")
	require.NoError(t, err)
	assert.Equal(t, 3, tier)

	_, err = RequiredTier("spaceships")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	ok, required, err := CanAccessCategory(2, "vehicles")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, required)

	assert.Contains(t, Categories(), "food")
}
