package middleware

import (
	"net/http"
	"strings"
)

// BodyLimits caps request bodies. Uploads under BlobPrefix may be larger than
// document writes.
type BodyLimits struct {
	Default    int64
	BlobPrefix string
	Blob       int64
}

func (l BodyLimits) forPath(path string) int64 {
	if l.BlobPrefix != "" && strings.HasPrefix(path, l.BlobPrefix) {
		return l.Blob
	}
	return l.Default
}

// NewMaxBodySizeHandler rejects requests whose advertised Content-Length is
// over the route's limit with 413 before the next handler runs. Bodies of
// unknown length are wrapped in http.MaxBytesReader so reads fail past it.
func NewMaxBodySizeHandler(limits BodyLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := limits.forPath(r.URL.Path)
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
