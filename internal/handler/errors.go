package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/packsync/packsync/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// errorMapping is checked in order; the first sentinel matched by errors.Is wins.
var errorMapping = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrAuthRequired, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
}

// writeError translates a service error into a status code and JSON body.
// Anything unrecognised is logged and reported as a bare 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.sentinel) {
			writeJSON(w, m.status, errorBody(m.code, unwrapMessage(err, m.sentinel)))
			return
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("payload_too_large", "request body too large"))
		return
	}
	s.log.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
}

// badRequest reports input rejected before reaching the service layer
// (e.g. malformed JSON or parameters).
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody("bad_request", message))
}

// unwrapMessage extracts the human-readable part that follows the sentinel in
// a wrapped error.
// e.g. "service.DocumentService.Create: validation error: travel title is required"
// → "travel title is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	s := sentinel.Error()
	if i := strings.Index(msg, s); i >= 0 {
		if rest := strings.TrimPrefix(msg[i+len(s):], ": "); rest != "" {
			return rest
		}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
