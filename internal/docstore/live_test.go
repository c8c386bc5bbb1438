package docstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// recorder collects deliveries from a live subscription.
type recorder struct {
	mu      sync.Mutex
	updates [][]docstore.Document
	errs    []error
}

func (r *recorder) onUpdate(docs []docstore.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, docs)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) last() []docstore.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func TestLive_InitialSnapshotAndUpdates(t *testing.T) {
	live := docstore.NewLive(docstore.NewMemoryStore(), nil)
	ctx := context.Background()
	_, err := live.Create(ctx, "c", map[string]any{"travelId": "t1", "name": "Tent"})
	require.NoError(t, err)

	rec := &recorder{}
	sub := live.Listen("c", docstore.Filters{"travelId": "t1"}, rec.onUpdate, rec.onError)
	defer sub.Cancel()

	require.Eventually(t, func() bool { return len(rec.last()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = live.Create(ctx, "c", map[string]any{"travelId": "t1", "name": "Stove"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.last()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Stove", rec.last()[1].Fields["name"])
}

func TestLive_CancelStopsDeliveries(t *testing.T) {
	live := docstore.NewLive(docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	rec := &recorder{}
	sub := live.Listen("c", nil, rec.onUpdate, rec.onError)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	sub.Cancel()
	sub.Cancel() // idempotent
	assert.Equal(t, 0, live.Subscribers("c"))

	_, err := live.Create(ctx, "c", map[string]any{"name": "Tent"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestLive_OtherCollectionsDoNotSignal(t *testing.T) {
	live := docstore.NewLive(docstore.NewMemoryStore(), nil)

	rec := &recorder{}
	sub := live.Listen("a", nil, rec.onUpdate, rec.onError)
	defer sub.Cancel()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err := live.Create(context.Background(), "b", map[string]any{})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

// failingStore fails every query so the subscription error path is exercised.
type failingStore struct {
	docstore.Store
}

func (failingStore) Query(context.Context, string, docstore.Filters) ([]docstore.Document, error) {
	return nil, errors.New("backend unavailable")
}

func TestLive_QueryErrorIsSubscriptionError(t *testing.T) {
	live := docstore.NewLive(failingStore{Store: docstore.NewMemoryStore()}, nil)

	rec := &recorder{}
	sub := live.Listen("c", nil, rec.onUpdate, rec.onError)
	defer sub.Cancel()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.errs) == 1
	}, time.Second, 5*time.Millisecond)

	var subErr *domain.SubscriptionError
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.ErrorAs(t, rec.errs[0], &subErr)
	assert.Equal(t, "c", subErr.Collection)
	assert.Empty(t, rec.updates)
}

func TestLive_FailedWriteDoesNotSignal(t *testing.T) {
	live := docstore.NewLive(docstore.NewMemoryStore(), nil)

	rec := &recorder{}
	sub := live.Listen("c", nil, rec.onUpdate, rec.onError)
	defer sub.Cancel()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	err := live.Delete(context.Background(), "c", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}
