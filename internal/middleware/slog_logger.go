package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/packsync/packsync/internal/auth"
)

// NewSlogLogger returns a middleware that logs each request as a structured
// line via the provided slog.Logger. Each line carries method, path, HTTP
// status and duration plus the request ID set by chi's RequestID middleware.
// Once the bearer middleware has run it also carries the caller's user ID.
// 4xx responses log at warn and 5xx at error.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// WrapResponseWriter intercepts WriteHeader so we can read the
			// status code after the downstream handler has run. It keeps
			// http.Hijacker, which the websocket upgrade needs.
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			slot := &callerSlot{}
			next.ServeHTTP(ww, r.WithContext(withCallerSlot(r.Context(), slot)))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if slot.id.UserID != "" {
				attrs = append(attrs, "user_id", slot.id.UserID)
			}
			log.Log(r.Context(), levelFor(ww.Status()), "request", attrs...)
		})
	}
}

// levelFor picks the log level for a finished request: server errors are
// errors, client errors warnings, everything else info.
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

// callerSlot lets the bearer middleware, which runs further down the chain,
// report the authenticated caller back to the request logger.
type callerSlot struct {
	id auth.Identity
}
