package docstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/packsync/packsync/internal/domain"
)

// Live wraps a Store with an in-process change broker so it also satisfies
// Listener. Every successful write signals the subscriptions on that
// collection; each subscription then re-runs its own query and delivers the
// full result. Signals coalesce, so a slow subscriber skips intermediate
// states but always ends on the latest one.
//
// Signals only cover writes made through this Live value, so a deployment
// must route all writes through a single server process.
type Live struct {
	Store
	log *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*liveSub]struct{}
}

// NewLive returns a Live over store. A nil logger falls back to slog.Default().
func NewLive(store Store, log *slog.Logger) *Live {
	if log == nil {
		log = slog.Default()
	}
	return &Live{Store: store, log: log, subs: make(map[string]map[*liveSub]struct{})}
}

var _ LiveStore = (*Live)(nil)

func (l *Live) Create(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	d, err := l.Store.Create(ctx, collection, fields)
	if err != nil {
		return Document{}, err
	}
	l.notify(collection)
	return d, nil
}

func (l *Live) SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := l.Store.SetFields(ctx, collection, id, fields, merge); err != nil {
		return err
	}
	l.notify(collection)
	return nil
}

func (l *Live) Delete(ctx context.Context, collection, id string) error {
	if err := l.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	l.notify(collection)
	return nil
}

func (l *Live) Listen(collection string, filters Filters, onUpdate func([]Document), onError func(error)) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &liveSub{
		live:       l,
		collection: collection,
		signal:     make(chan struct{}, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	l.mu.Lock()
	set, ok := l.subs[collection]
	if !ok {
		set = make(map[*liveSub]struct{})
		l.subs[collection] = set
	}
	set[sub] = struct{}{}
	l.mu.Unlock()

	go sub.run(ctx, filters, onUpdate, onError)
	return sub
}

// Subscribers returns the number of open subscriptions on collection.
func (l *Live) Subscribers(collection string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[collection])
}

func (l *Live) notify(collection string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sub := range l.subs[collection] {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (l *Live) remove(sub *liveSub) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if set, ok := l.subs[sub.collection]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(l.subs, sub.collection)
		}
	}
}

type liveSub struct {
	live       *Live
	collection string
	signal     chan struct{}
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

func (s *liveSub) run(ctx context.Context, filters Filters, onUpdate func([]Document), onError func(error)) {
	defer close(s.done)
	for {
		docs, err := s.live.Store.Query(ctx, s.collection, filters)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.live.log.WarnContext(ctx, "live query failed", "collection", s.collection, "error", err)
			if onError != nil {
				onError(&domain.SubscriptionError{Collection: s.collection, Err: err})
			}
		} else if onUpdate != nil {
			onUpdate(docs)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.signal:
		}
	}
}

func (s *liveSub) Cancel() {
	s.once.Do(func() {
		s.live.remove(s)
		s.cancel()
	})
}
