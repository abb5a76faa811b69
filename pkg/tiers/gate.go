package tiers

import (
	"sort"
	"strings"

	"github.com/chris/donation-broker/pkg/apperrors"
)

var categoryTiers = map[string]int{
	"food":        1,
	"clothing":    1,
	"books":       1,
	"toys":        1,
	"furniture":   2,
	"kitchenware": 2,
	"electronics": 3,
	"medical":     3,
	"vehicles":    4,
}

func validTier(t int) error {
	if t < MinTier || t > MaxTier {
		return &apperrors.TierError{Tier: t}
	}
	return nil
}

// CanAccess reports whether callerTier meets requiredTier.
func CanAccess(callerTier, requiredTier int) (bool, error) {
	if err := validTier(callerTier); err != nil {
		return false, err
	}
	if err := validTier(requiredTier); err != nil {
		return false, err
	}
	return callerTier >= requiredTier, nil
}

// NormalizeCategory is the canonical form categories are stored in.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// RequiredTier returns the minimum tier allowed to handle category.
func RequiredTier(category string) (int, error) {
	t, ok := categoryTiers[NormalizeCategory(category)]
	if !ok {
		return 0, apperrors.Validation("category", "unknown category "+category)
	}
	return t, nil
}

// Categories lists the known categories alphabetically.
func Categories() []string {
	out := make([]string, 0, len(categoryTiers))
	for c := range categoryTiers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CanAccessCategory combines RequiredTier and CanAccess.
func CanAccessCategory(callerTier int, category string) (bool, int, error) {
	required, err := RequiredTier(category)
	if err != nil {
		return false, 0, err
	}
	ok, err := CanAccess(callerTier, required)
	return ok, required, err
}
