package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// accessRecord is filled in by inner middleware while a request is served.
type accessRecord struct {
	caller    models.Caller
	hasCaller bool
}

type accessKey struct{}

// noteCaller attaches c to the request's access record when one is kept.
func noteCaller(ctx context.Context, c models.Caller) {
	if rec, ok := ctx.Value(accessKey{}).(*accessRecord); ok {
		rec.caller, rec.hasCaller = c, true
	}
}

// AccessLog writes one line per request once the response is done. Server
// errors log at error, client errors at warn and everything else at info.
// The line names the matched route rather than the raw path, plus the caller
// once Identity has resolved one.
func AccessLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := &accessRecord{}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), accessKey{}, rec)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("route", routeOf(r)),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(began)),
			}
			if rec.hasCaller {
				attrs = append(attrs, slog.Group("caller",
					slog.String("id", rec.caller.Id),
					slog.String("role", string(rec.caller.Role)),
				))
			}
			logger.LogAttrs(r.Context(), levelFor(status), "http request", attrs...)
		})
	}
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
