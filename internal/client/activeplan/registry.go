// Package activeplan holds the travel plan the user is currently working on.
//
// A Registry is created once per session and handed to every component that
// reads or changes the active plan. It is never persisted: a new session
// starts with nothing active.
package activeplan

import (
	"sync"

	"github.com/packsync/packsync/internal/domain"
)

// Listener receives the new active plan after every change; nil means no
// plan is active. Listeners must not call SetActive, Clear or Deactivate.
type Listener func(plan *domain.TravelPlan)

// Registry is safe for concurrent use. Each change is applied and then
// announced to every listener on the caller's goroutine before the next
// change begins, so listeners observe changes in the order they were made.
type Registry struct {
	// emitMu is held for a whole change, state update and notifications
	// both. mu guards the fields below and is never held while a listener
	// runs, so Active is callable from inside a listener.
	emitMu sync.Mutex

	mu        sync.Mutex
	active    *domain.TravelPlan
	listeners []listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn Listener
}

// New returns a registry with no active plan.
func New() *Registry {
	return &Registry{}
}

// SetActive makes plan the active plan, replacing any other.
func (r *Registry) SetActive(plan domain.TravelPlan) {
	r.change(func() bool {
		r.active = &plan
		return true
	})
}

// Clear leaves no plan active. Listeners are notified even when nothing
// was active.
func (r *Registry) Clear() {
	r.change(func() bool {
		r.active = nil
		return true
	})
}

// Deactivate clears the active plan only if it is the one with id, and
// reports whether it was.
func (r *Registry) Deactivate(id string) bool {
	var cleared bool
	r.change(func() bool {
		if r.active == nil || r.active.ID != id {
			return false
		}
		r.active = nil
		cleared = true
		return true
	})
	return cleared
}

// Active returns the active plan. It never waits for listeners to finish.
func (r *Registry) Active() (domain.TravelPlan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return domain.TravelPlan{}, false
	}
	return *r.active, true
}

// IsActive reports whether the plan with id is the active one.
func (r *Registry) IsActive(id string) bool {
	p, ok := r.Active()
	return ok && p.ID == id
}

// Subscribe adds fn to the listeners. It is not called with the current
// state; use Active for that. The returned func removes fn and may be
// called any number of times.
func (r *Registry) Subscribe(fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.listeners {
		if l.id == id {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

// change applies mutate and, if it reports a change, notifies a snapshot of
// the listeners with the resulting state.
func (r *Registry) change(mutate func() bool) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	if !mutate() {
		r.mu.Unlock()
		return
	}
	var plan *domain.TravelPlan
	if r.active != nil {
		p := *r.active
		plan = &p
	}
	listeners := append([]listenerEntry(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		if plan == nil {
			l.fn(nil)
			continue
		}
		// Each listener gets its own copy.
		p := *plan
		l.fn(&p)
	}
}
