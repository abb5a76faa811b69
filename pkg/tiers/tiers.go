// Package tiers holds the static tier plans and the category access gate.
// Every limit used elsewhere is read from here.
package tiers

import (
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
)

const (
	MinTier = 1
	MaxTier = 4
)

// Limits are the numeric ceilings attached to a tier.
type Limits struct {
	ActiveRequests           int
	MaxItemValue             int64
	MonthlyAcceptance        int
	MonthlyFundingCap        int64
	MonthlyFinancialRequests int
}

// Permissions are the feature switches attached to a tier.
type Permissions struct {
	CanRequestFinancial bool
	MaxCategoryTier     int
}

// TierPlan is the read-only reference record for one tier.
type TierPlan struct {
	Tier        int
	Name        string
	Limits      Limits
	Permissions Permissions
}

// Limit returns the ceiling for a quota-governed limit type.
func (p TierPlan) Limit(l models.LimitType) int64 {
	switch l {
	case models.LimitActiveRequests:
		return int64(p.Limits.ActiveRequests)
	case models.LimitMonthlyAccepted:
		return int64(p.Limits.MonthlyAcceptance)
	case models.LimitFinancialRequests:
		return int64(p.Limits.MonthlyFinancialRequests)
	case models.LimitMaxItemValue:
		return p.Limits.MaxItemValue
	}
	return 0
}

var plans = [...]TierPlan{
	{
		Tier: 1,
		Name: "basic",
		Limits: Limits{
			ActiveRequests:    2,
			MaxItemValue:      5_000,
			MonthlyAcceptance: 10,
		},
		Permissions: Permissions{MaxCategoryTier: 1},
	},
	{
		Tier: 2,
		Name: "silver",
		Limits: Limits{
			ActiveRequests:           5,
			MaxItemValue:             20_000,
			MonthlyAcceptance:        30,
			MonthlyFundingCap:        20_000,
			MonthlyFinancialRequests: 2,
		},
		Permissions: Permissions{CanRequestFinancial: true, MaxCategoryTier: 2},
	},
	{
		Tier: 3,
		Name: "gold",
		Limits: Limits{
			ActiveRequests:           10,
			MaxItemValue:             50_000,
			MonthlyAcceptance:        75,
			MonthlyFundingCap:        75_000,
			MonthlyFinancialRequests: 3,
		},
		Permissions: Permissions{CanRequestFinancial: true, MaxCategoryTier: 3},
	},
	{
		Tier: 4,
		Name: "platinum",
		Limits: Limits{
			ActiveRequests:           25,
			MaxItemValue:             200_000,
			MonthlyAcceptance:        200,
			MonthlyFundingCap:        250_000,
			MonthlyFinancialRequests: 10,
		},
		Permissions: Permissions{CanRequestFinancial: true, MaxCategoryTier: 4},
	},
}

// ResolvePlan returns the static plan for tier.
func ResolvePlan(tier int) (TierPlan, error) {
	if tier < MinTier || tier > MaxTier {
		return TierPlan{}, &apperrors.TierError{Tier: tier, Unknown: true}
	}
	return plans[tier-1], nil
}

// Plans lists every plan in ascending tier order.
func Plans() []TierPlan {
	out := make([]TierPlan, len(plans))
	copy(out, plans[:])
	return out
}
