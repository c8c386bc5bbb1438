package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by store, repo and service functions when the
// requested resource does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing travel title, malformed collection path).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrAuthRequired is returned when an operation is attempted with no
// signed-in identity. Client components return it before any network call.
// Handlers should map this to HTTP 401.
var ErrAuthRequired = errors.New("authentication required")

// ErrInvalidCredentials is returned when an email/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrForbidden is returned when the caller is signed in but does not own the
// resource it tried to modify. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a create would violate a uniqueness rule,
// e.g. signing up with an email that already has an account.
var ErrConflict = errors.New("conflict")

// SubscriptionError reports a failed live query. The previous local data is
// kept; the error is logged and surfaced without blocking.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription to %s: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// WriteError reports a failed remote update or delete.
// For packing item toggles it triggers a local rollback.
type WriteError struct {
	Op         string // "set", "create" or "delete"
	Collection string
	ID         string
	Err        error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DecodeError reports a remote document with missing or wrongly typed fields.
// The decoded value is still usable: defaults have been substituted for every
// field listed in Fields.
type DecodeError struct {
	ID     string
	Fields []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("document %s: malformed fields: %s", e.ID, strings.Join(e.Fields, ", "))
}
