package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/packsync/packsync/internal/docstore"
)

// DocumentList is the body of GET /v1/collections/{collection}/documents.
type DocumentList struct {
	Documents []docstore.Document `json:"documents"`
}

// QueryDocuments handles GET /v1/collections/{collection}/documents?filters=.
func (s *Server) QueryDocuments(w http.ResponseWriter, r *http.Request) {
	collection, filters, ok := bindQuery(w, r)
	if !ok {
		return
	}
	docs, err := s.docs.Query(r.Context(), caller(r), collection, filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentList{Documents: docs})
}

// CreateDocument handles POST /v1/collections/{collection}/documents.
// The body is the new document's fields.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	collection, ok := bindPathParam(w, r, "collection")
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	doc, err := s.docs.Create(r.Context(), caller(r), collection, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /v1/collections/{collection}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := bindDocumentPath(w, r)
	if !ok {
		return
	}
	doc, err := s.docs.Get(r.Context(), caller(r), collection, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetDocumentFields handles PATCH /v1/collections/{collection}/documents/{id}?merge=.
// merge defaults to true; merge=false replaces the stored fields.
func (s *Server) SetDocumentFields(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := bindDocumentPath(w, r)
	if !ok {
		return
	}
	var merge *bool
	if err := runtime.BindQueryParameter("form", true, false, "merge", r.URL.Query(), &merge); err != nil {
		badRequest(w, fmt.Sprintf("invalid format for parameter merge: %s", err))
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if err := s.docs.SetFields(r.Context(), caller(r), collection, id, fields, merge == nil || *merge); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocument handles DELETE /v1/collections/{collection}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := bindDocumentPath(w, r)
	if !ok {
		return
	}
	if err := s.docs.Delete(r.Context(), caller(r), collection, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bindPathParam reads and unescapes a path parameter. Collection paths arrive
// escaped (trips%2F<id>%2FpackingItems) and chi matches on the raw path.
func bindPathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid format for parameter %s: %s", name, err))
		return "", false
	}
	return v, true
}

func bindDocumentPath(w http.ResponseWriter, r *http.Request) (collection, id string, ok bool) {
	if collection, ok = bindPathParam(w, r, "collection"); !ok {
		return "", "", false
	}
	if id, ok = bindPathParam(w, r, "id"); !ok {
		return "", "", false
	}
	return collection, id, true
}

// bindQuery reads the collection and the optional filters parameter, a JSON
// object of field equality constraints.
func bindQuery(w http.ResponseWriter, r *http.Request) (string, docstore.Filters, bool) {
	collection, ok := bindPathParam(w, r, "collection")
	if !ok {
		return "", nil, false
	}
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "filters", r.URL.Query(), &raw); err != nil {
		badRequest(w, fmt.Sprintf("invalid format for parameter filters: %s", err))
		return "", nil, false
	}
	filters := docstore.Filters{}
	if raw != nil && *raw != "" {
		if err := json.Unmarshal([]byte(*raw), &filters); err != nil {
			badRequest(w, "filters must be a JSON object")
			return "", nil, false
		}
	}
	return collection, filters, true
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("payload_too_large", "request body too large"))
			return nil, false
		}
		badRequest(w, "request body must be a JSON object of fields")
		return nil, false
	}
	return fields, true
}
