package packinglist_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// fakeStore is a hand-written docstore.LiveStore. Listen records each
// subscription so a test can deliver snapshots by hand; the remaining
// methods are function fields, and nil fields succeed with zero values.
type fakeStore struct {
	setFields func(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	create    func(ctx context.Context, collection string, fields map[string]any) (docstore.Document, error)
	delete    func(ctx context.Context, collection, id string) error

	mu      sync.Mutex
	listens []*fakeListen
	writes  []fakeWrite
}

type fakeWrite struct {
	Collection string
	ID         string
	Fields     map[string]any
	Merge      bool
}

type fakeListen struct {
	Collection string
	Filters    docstore.Filters
	onUpdate   func([]docstore.Document)
	onError    func(error)
	cancelled  atomic.Bool
}

func (l *fakeListen) Cancel() { l.cancelled.Store(true) }

// deliver calls the subscriber even after Cancel, like a late network frame.
func (l *fakeListen) deliver(docs ...docstore.Document) { l.onUpdate(docs) }

func (l *fakeListen) fail(err error) { l.onError(err) }

func (f *fakeStore) Listen(collection string, filters docstore.Filters, onUpdate func([]docstore.Document), onError func(error)) docstore.Subscription {
	l := &fakeListen{Collection: collection, Filters: filters, onUpdate: onUpdate, onError: onError}
	f.mu.Lock()
	f.listens = append(f.listens, l)
	f.mu.Unlock()
	return l
}

func (f *fakeStore) listenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listens)
}

func (f *fakeStore) listen(i int) *fakeListen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listens[i]
}

func (f *fakeStore) recordedWrites() []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeWrite(nil), f.writes...)
}

func (f *fakeStore) Query(context.Context, string, docstore.Filters) ([]docstore.Document, error) {
	return nil, nil
}

func (f *fakeStore) Get(context.Context, string, string) (docstore.Document, error) {
	return docstore.Document{}, domain.ErrNotFound
}

func (f *fakeStore) Create(ctx context.Context, collection string, fields map[string]any) (docstore.Document, error) {
	if f.create == nil {
		return docstore.Document{ID: "new", Fields: fields}, nil
	}
	return f.create(ctx, collection, fields)
}

func (f *fakeStore) SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	f.mu.Lock()
	f.writes = append(f.writes, fakeWrite{Collection: collection, ID: id, Fields: fields, Merge: merge})
	f.mu.Unlock()
	if f.setFields == nil {
		return nil
	}
	return f.setFields(ctx, collection, id, fields, merge)
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error {
	if f.delete == nil {
		return nil
	}
	return f.delete(ctx, collection, id)
}

// compile-time check: fakeStore must satisfy docstore.LiveStore.
var _ docstore.LiveStore = (*fakeStore)(nil)

// user is a fixed Identity.
type user struct {
	id   string
	name string
}

func (u user) CurrentUserID() string      { return u.id }
func (u user) CurrentDisplayName() string { return u.name }
