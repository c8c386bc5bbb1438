// Package docstore is the generic document store behind Packsync: named
// collections of JSON-like documents, equality queries, merge writes and live
// subscriptions. The server runs it on Postgres; tests and the client-side
// fakes use the in-memory implementation. The client's remote package speaks
// the same interfaces over HTTP.
package docstore

import (
	"context"
	"reflect"
)

// Document is one stored record. Fields holds decoded JSON values: string,
// bool, float64, nil, []any and map[string]any.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Filters is a set of field equality constraints, all of which must hold.
type Filters map[string]any

// Store is the request/response half of the document store contract.
type Store interface {
	// Query returns every document in collection matching all filters, in
	// creation order.
	Query(ctx context.Context, collection string, filters Filters) ([]Document, error)

	// Get returns a single document. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create stores a new document under a store-assigned ID.
	Create(ctx context.Context, collection string, fields map[string]any) (Document, error)

	// SetFields writes fields to the document, creating it if needed.
	// With merge the given keys are overlaid on the stored ones; without it
	// the stored fields are replaced wholesale.
	SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error

	// Delete removes a document. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, collection, id string) error
}

// Listener is the live-query half of the contract.
type Listener interface {
	// Listen delivers the matching documents once immediately and again every
	// time the collection changes, until the subscription is cancelled.
	// Deliveries for one subscription never overlap and arrive in order.
	// onError receives a *domain.SubscriptionError when a refresh fails.
	Listen(collection string, filters Filters, onUpdate func([]Document), onError func(error)) Subscription
}

// Subscription is a cancelable live query.
type Subscription interface {
	// Cancel stops further deliveries. It does not wait for a delivery that is
	// already running, so it is safe to call from inside a callback.
	Cancel()
}

// LiveStore is a Store that also supports live queries.
type LiveStore interface {
	Store
	Listener
}

// Matches reports whether fields satisfy every filter.
func Matches(fields map[string]any, filters Filters) bool {
	for k, want := range filters {
		got, ok := fields[k]
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// CloneFields returns a deep copy of a field map so callers can never alias
// a store's internal state.
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
