package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// BlobURLResponse is the body of GET /v1/blobs/{path}.
type BlobURLResponse struct {
	URL string `json:"url"`
}

// UploadBlob handles PUT /v1/blobs/{path}. The body is stored as-is with the
// request's Content-Type.
func (s *Server) UploadBlob(w http.ResponseWriter, r *http.Request) {
	path, ok := bindBlobPath(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.blobs.Upload(r.Context(), caller(r), path, data, r.Header.Get("Content-Type")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBlobURL handles GET /v1/blobs/{path}.
func (s *Server) GetBlobURL(w http.ResponseWriter, r *http.Request) {
	path, ok := bindBlobPath(w, r)
	if !ok {
		return
	}
	u, err := s.blobs.DownloadURL(r.Context(), path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BlobURLResponse{URL: u})
}

func bindBlobPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var path string
	err := runtime.BindStyledParameterWithOptions("simple", "path", chi.URLParam(r, "*"), &path,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid format for parameter path: %s", err))
		return "", false
	}
	return path, true
}
