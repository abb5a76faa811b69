// Package apperrors is the error taxonomy returned by the broker core.
// Every failure is a typed value that callers match with errors.Is against
// the Err* sentinels, or errors.As against the detail structs.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation                = errors.New("validation error")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrAlreadyAccepted           = errors.New("already accepted")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrQuotaExceeded             = errors.New("quota exceeded")
	ErrInsufficientPoolBalance   = errors.New("insufficient pool balance")
	ErrMonthlyFundingCapExceeded = errors.New("monthly funding cap exceeded")
	ErrUnknownTier               = errors.New("unknown tier")
	ErrInvalidTier               = errors.New("invalid tier")
	ErrNotFound                  = errors.New("not found")
)

// ValidationError reports malformed input. Field is empty for whole-request problems.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError reports a state machine precondition violation.
type InvalidTransitionError struct {
	Entity string
	Id     string
	From   string
	To     string
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition for %s %s: %s -> %s", e.Entity, e.Id, e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// InvalidTransition builds an InvalidTransitionError.
func InvalidTransition(entity, id, from, to, detail string) error {
	return &InvalidTransitionError{Entity: entity, Id: id, From: from, To: to, Detail: detail}
}

// AlreadyAcceptedError is returned to the losers of an acceptance race.
type AlreadyAcceptedError struct {
	DonationId string
}

func (e *AlreadyAcceptedError) Error() string {
	return fmt.Sprintf("donation %s has already been accepted", e.DonationId)
}

func (e *AlreadyAcceptedError) Is(target error) bool { return target == ErrAlreadyAccepted }

// UnauthorizedError reports an actor not permitted for a record or action.
type UnauthorizedError struct {
	ActorId string
	Action  string
	Reason  string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s is not permitted to %s: %s", e.ActorId, e.Action, e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Unauthorized builds an UnauthorizedError.
func Unauthorized(actorID, action, reason string) error {
	return &UnauthorizedError{ActorId: actorID, Action: action, Reason: reason}
}

// QuotaExceededError carries enough detail to render "x of y used, resets on d".
// ResetsOn is zero for limits that do not roll over.
type QuotaExceededError struct {
	LimitType string
	Limit     int64
	Current   int64
	ResetsOn  time.Time
}

func (e *QuotaExceededError) Error() string {
	msg := fmt.Sprintf("quota exceeded for %s: %d of %d", e.LimitType, e.Current, e.Limit)
	if !e.ResetsOn.IsZero() {
		msg += fmt.Sprintf(", resets on %s", e.ResetsOn.Format(time.DateOnly))
	}
	return msg
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// InsufficientPoolBalanceError reports an approval larger than the pool.
type InsufficientPoolBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientPoolBalanceError) Error() string {
	return fmt.Sprintf("insufficient pool balance: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientPoolBalanceError) Is(target error) bool { return target == ErrInsufficientPoolBalance }

// MonthlyFundingCapExceededError reports an approval beyond the NGO's tier cap.
type MonthlyFundingCapExceededError struct {
	NgoId           string
	Cap             int64
	AlreadyApproved int64
	Requested       int64
}

func (e *MonthlyFundingCapExceededError) Error() string {
	return fmt.Sprintf("monthly funding cap exceeded for %s: cap %d, already approved %d, requested %d",
		e.NgoId, e.Cap, e.AlreadyApproved, e.Requested)
}

func (e *MonthlyFundingCapExceededError) Is(target error) bool {
	return target == ErrMonthlyFundingCapExceeded
}

// TierError covers both UnknownTier and InvalidTier.
type TierError struct {
	Tier    int
	Unknown bool
}

func (e *TierError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown tier %d", e.Tier)
	}
	return fmt.Sprintf("invalid tier %d: must be between 1 and 4", e.Tier)
}

func (e *TierError) Is(target error) bool {
	if e.Unknown {
		return target == ErrUnknownTier
	}
	return target == ErrInvalidTier
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity string
	Id     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Id)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, Id: id}
}
