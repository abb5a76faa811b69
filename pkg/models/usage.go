package models

import (
	"fmt"
	"time"
)

// UsageWindow is the rolling period after which monthly counters reset.
const UsageWindow = 30 * 24 * time.Hour

// LimitType names a quota-governed limit.
type LimitType string

const (
	LimitActiveRequests    LimitType = "activeRequests"
	LimitMonthlyAccepted   LimitType = "monthlyAcceptedItems"
	LimitFinancialRequests LimitType = "financialRequestsThisMonth"
	LimitMaxItemValue      LimitType = "maxItemValue"
)

// ParseLimitType accepts only the counter-backed limits.
func ParseLimitType(s string) (LimitType, error) {
	switch LimitType(s) {
	case LimitActiveRequests, LimitMonthlyAccepted, LimitFinancialRequests:
		return LimitType(s), nil
	}
	return "", fmt.Errorf("unknown limit type %q", s)
}

// Monthly reports whether the counter is zeroed when the usage window rolls over.
func (l LimitType) Monthly() bool {
	switch l {
	case LimitMonthlyAccepted, LimitFinancialRequests:
		return true
	}
	return false
}

// Attribute is the storage attribute holding the counter.
func (l LimitType) Attribute() string {
	switch l {
	case LimitActiveRequests:
		return "active_requests"
	case LimitMonthlyAccepted:
		return "monthly_accepted_items"
	case LimitFinancialRequests:
		return "financial_requests_this_month"
	}
	return ""
}

// SubscriptionUsage holds an NGO's usage counters.
type SubscriptionUsage struct {
	NgoId                      string    `json:"ngo_id" dynamodbav:"ngo_id"`
	ActiveRequests             int       `json:"active_requests" dynamodbav:"active_requests"`
	MonthlyAcceptedItems       int       `json:"monthly_accepted_items" dynamodbav:"monthly_accepted_items"`
	FinancialRequestsThisMonth int       `json:"financial_requests_this_month" dynamodbav:"financial_requests_this_month"`
	LastResetDate              time.Time `json:"last_reset_date" dynamodbav:"last_reset_date"`
	OpenFundingRequestId       string    `json:"-" dynamodbav:"open_funding_request_id,omitempty"`
}

// Counter returns the current value of the counter behind l.
func (u *SubscriptionUsage) Counter(l LimitType) int {
	switch l {
	case LimitActiveRequests:
		return u.ActiveRequests
	case LimitMonthlyAccepted:
		return u.MonthlyAcceptedItems
	case LimitFinancialRequests:
		return u.FinancialRequestsThisMonth
	}
	return 0
}

// NeedsReset reports whether the window has elapsed at now. A usage
// record that was never reset always needs one.
func (u *SubscriptionUsage) NeedsReset(now time.Time) bool {
	if u.LastResetDate.IsZero() {
		return true
	}
	return now.Sub(u.LastResetDate) >= UsageWindow
}

// ResetsOn is when the monthly counters next roll over.
func (u *SubscriptionUsage) ResetsOn() time.Time {
	return u.LastResetDate.Add(UsageWindow)
}
