package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packsync/packsync/internal/middleware"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSHandler_SimpleRequests(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{name: "listed origin", allowed: []string{"http://localhost:5173"}, origin: "http://localhost:5173", wantAllow: "http://localhost:5173"},
		{name: "unlisted origin", allowed: []string{"http://localhost:5173"}, origin: "http://evil.example.com", wantAllow: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://anything.example.com", wantAllow: "*"},
		{name: "no origins configured", allowed: nil, origin: "http://localhost:5173", wantAllow: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := middleware.NewCORSHandler(tc.allowed)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/v1/collections/travelPlans/documents", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			// The request itself is always served; browsers enforce the header.
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			if tc.wantAllow != "" {
				assert.Equal(t, "X-Request-Id", rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

// A PATCH with a bearer token is what a browser sends to toggle a packing
// item, so it must pass preflight.
func TestCORSHandler_PreflightForAuthorizedPatch(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/collections/trips%2Ft1%2FpackingItems/documents/i1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	// Browsers send request header names in lowercase.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.True(t, rec.Code == http.StatusNoContent || rec.Code == http.StatusOK, "got %d", rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPatch, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSHandler_PreflightRejectsUnknownMethod(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/collections/travelPlans/documents", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PROPFIND")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}
