// Package respond writes JSON bodies and maps broker errors onto HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/storage"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", slog.Any("error", err))
	}
}

// BadRequest reports an undecodable body.
func BadRequest(w http.ResponseWriter, err error) {
	JSON(w, http.StatusBadRequest, api.Error{
		Error:   "validation_error",
		Message: fmt.Sprintf("Invalid request body: %v", err),
	})
}

// Unauthenticated reports a request without a resolvable caller.
func Unauthenticated(w http.ResponseWriter, reason string) {
	JSON(w, http.StatusUnauthorized, api.Error{Error: "unauthenticated", Message: reason})
}

// ParamError is the ErrorHandlerFunc for parameters that fail to bind.
func ParamError(w http.ResponseWriter, _ *http.Request, err error) {
	JSON(w, http.StatusBadRequest, api.Error{Error: "validation_error", Message: err.Error()})
}

// Status maps an error onto its HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, apperrors.ErrAlreadyAccepted):
		return http.StatusConflict, "already_accepted"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, apperrors.ErrInsufficientPoolBalance):
		return http.StatusUnprocessableEntity, "insufficient_pool_balance"
	case errors.Is(err, apperrors.ErrMonthlyFundingCapExceeded):
		return http.StatusUnprocessableEntity, "monthly_funding_cap_exceeded"
	case errors.Is(err, apperrors.ErrUnknownTier):
		return http.StatusBadRequest, "unknown_tier"
	case errors.Is(err, apperrors.ErrInvalidTier):
		return http.StatusBadRequest, "invalid_tier"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	}
	return http.StatusInternalServerError, "internal_error"
}

// details extracts the structured fields of a typed error.
func details(err error) map[string]any {
	var (
		ve  *apperrors.ValidationError
		ite *apperrors.InvalidTransitionError
		qe  *apperrors.QuotaExceededError
		ipb *apperrors.InsufficientPoolBalanceError
		fce *apperrors.MonthlyFundingCapExceededError
		te  *apperrors.TierError
		nf  *apperrors.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return map[string]any{"field": ve.Field, "reason": ve.Reason}
	case errors.As(err, &ite):
		return map[string]any{"entity": ite.Entity, "id": ite.Id, "from": ite.From, "to": ite.To}
	case errors.As(err, &qe):
		d := map[string]any{"limit_type": qe.LimitType, "limit": qe.Limit, "current": qe.Current}
		if !qe.ResetsOn.IsZero() {
			d["resets_on"] = qe.ResetsOn
		}
		return d
	case errors.As(err, &ipb):
		return map[string]any{"requested": ipb.Requested, "available": ipb.Available}
	case errors.As(err, &fce):
		return map[string]any{"cap": fce.Cap, "already_approved": fce.AlreadyApproved, "requested": fce.Requested}
	case errors.As(err, &te):
		return map[string]any{"tier": te.Tier}
	case errors.As(err, &nf):
		return map[string]any{"entity": nf.Entity, "id": nf.Id}
	}
	return nil
}

// Error renders err. Internal errors are logged and their text withheld.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Status(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		JSON(w, status, api.Error{Error: code, Message: "internal server error"})
		return
	}
	JSON(w, status, api.Error{Error: code, Message: err.Error(), Details: details(err)})
}
