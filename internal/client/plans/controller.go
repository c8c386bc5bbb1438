// Package plans keeps the signed-in user's travel plans in view and lets
// them create, edit, delete and activate plans.
package plans

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// Identity reports the signed-in user; "" means nobody.
type Identity interface {
	CurrentUserID() string
}

// ActivePlans is the session's active-plan holder.
type ActivePlans interface {
	SetActive(plan domain.TravelPlan)
	Clear()
	Deactivate(id string) bool
	IsActive(id string) bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithChange registers fn to receive the full plan list whenever it changes.
func WithChange(fn func([]domain.TravelPlan)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithErrorHandler registers fn to receive subscription and decode errors.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Controller) { c.onError = fn }
}

// Controller mirrors the travelPlans created by the current user.
type Controller struct {
	store    docstore.LiveStore
	identity Identity
	active   ActivePlans
	log      *slog.Logger
	onChange func([]domain.TravelPlan)
	onError  func(error)

	// emitMu keeps onChange calls in the order the list changed.
	emitMu sync.Mutex

	mu    sync.Mutex
	plans []domain.TravelPlan
	sub   docstore.Subscription
	gen   uint64
}

// NewController returns a controller that is not yet watching anything.
func NewController(store docstore.LiveStore, identity Identity, active ActivePlans, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		identity: identity,
		active:   active,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Watch subscribes to the current user's plans, replacing any earlier
// subscription.
func (c *Controller) Watch() error {
	uid := c.identity.CurrentUserID()
	if uid == "" {
		return fmt.Errorf("plans.Controller.Watch: %w", domain.ErrAuthRequired)
	}

	c.mu.Lock()
	c.releaseLocked()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	sub := c.store.Listen(domain.TravelPlansCollection, docstore.Filters{"creatorId": uid},
		func(docs []docstore.Document) { c.applySnapshot(gen, docs) },
		func(err error) { c.subscriptionFailed(gen, err) },
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// Released or re-watched while Listen was running.
		sub.Cancel()
		return nil
	}
	c.sub = sub
	return nil
}

// Close stops watching. The list is kept.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	c.gen++
}

// Plans returns a copy of the list in creation order.
func (c *Controller) Plans() []domain.TravelPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TravelPlan(nil), c.plans...)
}

// Get returns the listed plan with id.
func (c *Controller) Get(id string) (domain.TravelPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.plans, id)
	if i < 0 {
		return domain.TravelPlan{}, false
	}
	return c.plans[i], true
}

// Create stores a new plan owned by the current user.
func (c *Controller) Create(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error) {
	uid := c.identity.CurrentUserID()
	if uid == "" {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Create: %w", domain.ErrAuthRequired)
	}
	plan = trimmed(plan)
	plan.CreatorID = uid
	if err := plan.Validate(); err != nil {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Create: %w", err)
	}

	doc, err := c.store.Create(ctx, domain.TravelPlansCollection, plan.Fields())
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Create: %w",
			&domain.WriteError{Op: "create", Collection: domain.TravelPlansCollection, Err: err})
	}
	plan.ID = doc.ID
	return plan, nil
}

// Update writes a plan's editable fields. If the plan is active, the active
// plan is replaced with the new version.
func (c *Controller) Update(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error) {
	uid := c.identity.CurrentUserID()
	if uid == "" {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Update: %w", domain.ErrAuthRequired)
	}
	plan = trimmed(plan)
	plan.CreatorID = uid
	if err := plan.Validate(); err != nil {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Update: %w", err)
	}

	fields := plan.Fields()
	delete(fields, "creatorId")
	if err := c.store.SetFields(ctx, domain.TravelPlansCollection, plan.ID, fields, true); err != nil {
		return domain.TravelPlan{}, fmt.Errorf("plans.Controller.Update: %w",
			&domain.WriteError{Op: "set", Collection: domain.TravelPlansCollection, ID: plan.ID, Err: err})
	}

	c.replaceLocal(func(plans []domain.TravelPlan) []domain.TravelPlan {
		if i := indexOf(plans, plan.ID); i >= 0 {
			plans[i] = plan
		}
		return plans
	})
	if c.active.IsActive(plan.ID) {
		c.active.SetActive(plan)
	}
	return plan, nil
}

// Delete removes a plan. A deleted active plan stops being active.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if c.identity.CurrentUserID() == "" {
		return fmt.Errorf("plans.Controller.Delete: %w", domain.ErrAuthRequired)
	}
	if err := c.store.Delete(ctx, domain.TravelPlansCollection, id); err != nil {
		return fmt.Errorf("plans.Controller.Delete: %w",
			&domain.WriteError{Op: "delete", Collection: domain.TravelPlansCollection, ID: id, Err: err})
	}

	c.replaceLocal(func(plans []domain.TravelPlan) []domain.TravelPlan {
		if i := indexOf(plans, id); i >= 0 {
			plans = append(plans[:i:i], plans[i+1:]...)
		}
		return plans
	})
	c.active.Deactivate(id)
	return nil
}

// ToggleActive activates the listed plan with id, or deactivates it if it
// is already active. It reports whether the plan is active afterwards.
func (c *Controller) ToggleActive(id string) (bool, error) {
	plan, ok := c.Get(id)
	if !ok {
		return false, fmt.Errorf("plans.Controller.ToggleActive: %w: travel plan %s", domain.ErrNotFound, id)
	}
	if c.active.Deactivate(id) {
		return false, nil
	}
	c.active.SetActive(plan)
	return true, nil
}

// HandleAuthState follows the session: signing in starts watching the new
// user's plans, signing out forgets the list and the active plan.
func (c *Controller) HandleAuthState(user *domain.User) {
	if user != nil {
		if err := c.Watch(); err != nil {
			c.log.Error("watching travel plans", "error", err)
			c.report(err)
		}
		return
	}

	c.Close()
	c.replaceLocal(func([]domain.TravelPlan) []domain.TravelPlan { return nil })
	c.active.Clear()
}

func (c *Controller) applySnapshot(gen uint64, docs []docstore.Document) {
	plans := make([]domain.TravelPlan, 0, len(docs))
	for _, doc := range docs {
		plan, err := domain.DecodeTravelPlan(doc.ID, doc.Fields)
		if err != nil {
			c.log.Warn("malformed travel plan", "travel_id", doc.ID, "error", err)
			c.report(err)
		}
		plans = append(plans, plan)
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.plans = plans
	out := append([]domain.TravelPlan(nil), plans...)
	c.mu.Unlock()
	c.emit(out)
}

func (c *Controller) subscriptionFailed(gen uint64, err error) {
	c.mu.Lock()
	stale := gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}
	c.log.Error("travel plan subscription failed", "error", err)
	c.report(err)
}

// replaceLocal applies edit to the list and announces the result.
func (c *Controller) replaceLocal(edit func([]domain.TravelPlan) []domain.TravelPlan) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Lock()
	c.plans = edit(c.plans)
	out := append([]domain.TravelPlan(nil), c.plans...)
	c.mu.Unlock()
	c.emit(out)
}

func (c *Controller) emit(plans []domain.TravelPlan) {
	if c.onChange != nil {
		c.onChange(plans)
	}
}

func (c *Controller) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func indexOf(plans []domain.TravelPlan, id string) int {
	for i := range plans {
		if plans[i].ID == id {
			return i
		}
	}
	return -1
}

func trimmed(p domain.TravelPlan) domain.TravelPlan {
	p.Title = strings.TrimSpace(p.Title)
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	p.CountryAndCity = strings.TrimSpace(p.CountryAndCity)
	return p
}
