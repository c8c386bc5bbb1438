// Package openapi embeds the OpenAPI description of the Packsync document API
// and serves it.
package openapi

import (
	_ "embed"
	"net/http"
)

// ContentType is the media type the document is served with.
const ContentType = "application/yaml"

//go:embed openapi.yaml
var document []byte

// Document returns the raw YAML bytes.
func Document() []byte { return document }

// Handler serves the document on GET and HEAD.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(document)
	})
}
