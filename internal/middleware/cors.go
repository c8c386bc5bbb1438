// Package middleware provides reusable HTTP middleware for the Packsync API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// preflightMaxAge is how long, in seconds, browsers may cache a preflight.
const preflightMaxAge = 600

// NewCORSHandler lets browser clients at allowedOrigins call the API with a
// bearer token. Origins are full origins (scheme and host, no trailing
// slash); a single "*" allows any origin. An empty list allows none.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         preflightMaxAge,
	})
	return c.Handler
}
