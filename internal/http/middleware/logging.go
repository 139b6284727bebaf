// Package middleware carries the HTTP middleware shared by the routes.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger wraps a handler chain with hlog, attaching the logger to
// the request context and emitting one access line per request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	logHandler := hlog.NewHandler(log)
	accessHandler := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		return logHandler(accessHandler(next))
	}
}
