// Package packinglist mirrors one travel plan's packing items from the
// document store into a local ordered list that several collaborators can
// tick off at once.
package packinglist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// ErrClosed is returned by a Synchronizer after Close.
var ErrClosed = errors.New("packing list closed")

// DefaultWriteTimeout bounds a single toggle write.
const DefaultWriteTimeout = 15 * time.Second

// Identity is the signed-in user, as far as packing is concerned.
// CurrentUserID returns "" when nobody is signed in.
type Identity interface {
	CurrentUserID() string
	CurrentDisplayName() string
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

// WithRefresh registers fn to receive the whole list after every local
// change. fn runs on the synchronizer's loop and must not call Toggle.
func WithRefresh(fn func([]domain.PackingItem)) Option {
	return func(s *Synchronizer) { s.onRefresh = fn }
}

// WithErrorHandler registers fn to receive subscription, write and decode
// errors. fn runs on the synchronizer's loop and must not call Toggle.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Synchronizer) { s.onError = fn }
}

// WithWriteTimeout bounds each toggle write. d <= 0 keeps
// DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// Synchronizer keeps a local copy of a plan's packing items in step with the
// store and applies toggles optimistically.
//
// All state is owned by a single loop goroutine. Store callbacks, toggles and
// write completions are posted to it and applied one at a time, so nothing
// below the loop fields is ever locked.
type Synchronizer struct {
	store        docstore.LiveStore
	identity     Identity
	plan         domain.TravelPlan
	collection   string
	log          *slog.Logger
	onRefresh    func([]domain.PackingItem)
	onError      func(error)
	writeTimeout time.Duration

	box       *mailbox
	done      chan struct{}
	closeOnce sync.Once

	// published is a copy of items for Items, replaced after every change.
	published atomic.Pointer[[]domain.PackingItem]

	// Owned by the loop.
	items []domain.PackingItem
	sub   docstore.Subscription
	gen   uint64
}

// New returns a synchronizer for plan's packing list. Its loop goroutine
// runs from here on, but nothing is subscribed until Start. Callers must
// Close it to stop the loop.
func New(store docstore.LiveStore, identity Identity, plan domain.TravelPlan, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:        store,
		identity:     identity,
		plan:         plan,
		collection:   domain.PackingItemsCollection(plan.ID),
		log:          slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		box:          newMailbox(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("travel_id", plan.ID)
	empty := []domain.PackingItem{}
	s.published.Store(&empty)

	go s.run()
	return s
}

// Plan returns the plan this list belongs to.
func (s *Synchronizer) Plan() domain.TravelPlan {
	return s.plan
}

// Start subscribes to the plan's items. It is a no-op while a subscription
// is already open.
func (s *Synchronizer) Start() error {
	return s.post(func() {
		if s.sub == nil {
			s.subscribe()
		}
	})
}

// Resume replaces any open subscription with a fresh one. Call it when the
// list becomes visible again.
func (s *Synchronizer) Resume() error {
	return s.post(s.subscribe)
}

// Pause releases the subscription but keeps the local list.
func (s *Synchronizer) Pause() error {
	return s.post(s.release)
}

// Close releases the subscription and stops the loop. Deliveries and write
// completions that arrive afterwards are dropped. Close does not wait for
// in-flight writes and is safe to call more than once.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Items returns a copy of the local list in delivered order.
func (s *Synchronizer) Items() []domain.PackingItem {
	items := *s.published.Load()
	out := make([]domain.PackingItem, len(items))
	copy(out, items)
	return out
}

// Toggle flips the packed state of the item with itemID. The local list is
// updated and a refresh fires before the remote write is issued; Toggle
// returns the updated item without waiting for the write. If the write
// fails the item is put back the way it was.
func (s *Synchronizer) Toggle(itemID string) (domain.PackingItem, error) {
	type result struct {
		item domain.PackingItem
		err  error
	}
	reply := make(chan result, 1)
	err := s.post(func() {
		item, err := s.toggle(itemID)
		reply <- result{item, err}
	})
	if err != nil {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Synchronizer.Toggle: %w", err)
	}
	select {
	case r := <-reply:
		if r.err != nil {
			return domain.PackingItem{}, fmt.Errorf("packinglist.Synchronizer.Toggle: %w", r.err)
		}
		return r.item, nil
	case <-s.done:
		return domain.PackingItem{}, fmt.Errorf("packinglist.Synchronizer.Toggle: %w", ErrClosed)
	}
}

func (s *Synchronizer) post(fn func()) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.box.put(fn)
	return nil
}

func (s *Synchronizer) run() {
	for {
		select {
		case <-s.done:
			s.release()
			return
		case <-s.box.wake:
		}
		for _, fn := range s.box.take() {
			select {
			case <-s.done:
				s.release()
				return
			default:
			}
			fn()
		}
	}
}

// subscribe runs on the loop.
func (s *Synchronizer) subscribe() {
	s.release()
	s.gen++
	gen := s.gen
	filters := docstore.Filters{"creatorId": s.plan.CreatorID, "travelId": s.plan.ID}
	s.log.Debug("subscribing to packing items", "generation", gen)
	s.sub = s.store.Listen(s.collection, filters,
		func(docs []docstore.Document) {
			_ = s.post(func() { s.applySnapshot(gen, docs) })
		},
		func(err error) {
			_ = s.post(func() { s.subscriptionFailed(gen, err) })
		},
	)
}

// release runs on the loop.
func (s *Synchronizer) release() {
	if s.sub == nil {
		return
	}
	s.sub.Cancel()
	s.sub = nil
	// Anything still queued for the old subscription is now stale.
	s.gen++
}

func (s *Synchronizer) applySnapshot(gen uint64, docs []docstore.Document) {
	if gen != s.gen {
		s.log.Debug("dropping delivery from released subscription", "generation", gen)
		return
	}
	items := make([]domain.PackingItem, 0, len(docs))
	for _, doc := range docs {
		item, err := domain.DecodePackingItem(doc.ID, s.plan.CreatorID, s.plan.ID, doc.Fields)
		if err != nil {
			s.log.Warn("malformed packing item", "item_id", doc.ID, "error", err)
			s.report(err)
		}
		items = append(items, item)
	}
	s.items = items
	s.publish()
}

func (s *Synchronizer) subscriptionFailed(gen uint64, err error) {
	if gen != s.gen {
		return
	}
	var subErr *domain.SubscriptionError
	if !errors.As(err, &subErr) {
		err = &domain.SubscriptionError{Collection: s.collection, Err: err}
	}
	s.log.Error("packing item subscription failed", "error", err)
	s.report(err)
}

func (s *Synchronizer) toggle(itemID string) (domain.PackingItem, error) {
	if s.identity.CurrentUserID() == "" {
		return domain.PackingItem{}, domain.ErrAuthRequired
	}
	idx := s.index(itemID)
	if idx < 0 {
		return domain.PackingItem{}, fmt.Errorf("%w: packing item %s", domain.ErrNotFound, itemID)
	}

	prev := s.items[idx]
	next := prev
	next.IsPacked = !prev.IsPacked
	next.IsPackedBy = ""
	if next.IsPacked {
		next.IsPackedBy = s.identity.CurrentDisplayName()
		if next.IsPackedBy == "" {
			next.IsPackedBy = domain.UnknownPacker
		}
	}
	s.items[idx] = next
	s.publish()

	go s.write(prev, next)
	return next, nil
}

// write runs on its own goroutine and posts the outcome back to the loop.
func (s *Synchronizer) write(prev, next domain.PackingItem) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	err := s.store.SetFields(ctx, s.collection, next.ID, domain.PackedFields(next.IsPacked, next.IsPackedBy), true)
	if err != nil {
		err = &domain.WriteError{Op: "set", Collection: s.collection, ID: next.ID, Err: err}
	}
	_ = s.post(func() { s.writeDone(prev, next, err) })
}

func (s *Synchronizer) writeDone(prev, next domain.PackingItem, err error) {
	idx := s.index(next.ID)

	if err != nil {
		s.log.Error("toggle write failed", "item_id", next.ID, "error", err)
		if idx >= 0 {
			s.items[idx].IsPacked = prev.IsPacked
			s.items[idx].IsPackedBy = prev.IsPackedBy
			s.publish()
		}
		s.report(err)
		return
	}

	s.log.Debug("toggle written", "item_id", next.ID, "is_packed", next.IsPacked)
	// A delivery may have replaced the item since; only reconcile if it
	// still carries the state that was written.
	if idx >= 0 && s.items[idx].IsPacked == next.IsPacked && s.items[idx].IsPackedBy != next.IsPackedBy {
		s.items[idx].IsPackedBy = next.IsPackedBy
		s.publish()
	}
}

func (s *Synchronizer) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// publish makes the current list visible to Items and fires a refresh.
func (s *Synchronizer) publish() {
	snapshot := make([]domain.PackingItem, len(s.items))
	copy(snapshot, s.items)
	s.published.Store(&snapshot)
	if s.onRefresh != nil {
		out := make([]domain.PackingItem, len(snapshot))
		copy(out, snapshot)
		s.onRefresh(out)
	}
}

func (s *Synchronizer) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// mailbox is an unbounded FIFO of loop events. put never blocks, so store
// callbacks can post from any goroutine, including the loop itself.
type mailbox struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) put(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}
