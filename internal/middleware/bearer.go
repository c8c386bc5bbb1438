package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/packsync/packsync/internal/auth"
)

// Authenticator turns a bearer token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// NewBearerAuth returns a middleware that requires a valid bearer token and
// stores the caller in the request context (see auth.FromContext).
// The token is read from the Authorization header, or from the access_token
// query parameter for websocket upgrades, which browsers cannot give headers.
func NewBearerAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			id, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if slot, ok := r.Context().Value(callerSlotKey{}).(*callerSlot); ok {
				slot.id = id
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

type callerSlotKey struct{}

func withCallerSlot(ctx context.Context, slot *callerSlot) context.Context {
	return context.WithValue(ctx, callerSlotKey{}, slot)
}

// writeError writes the API's standard error body. The handler package uses
// the same shape.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
