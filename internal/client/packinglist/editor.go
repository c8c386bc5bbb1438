package packinglist

import (
	"context"
	"fmt"
	"strings"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// Editor adds, edits and deletes the items on one plan's packing list.
// Changes reach any open Synchronizer through its subscription.
type Editor struct {
	store      docstore.Store
	identity   Identity
	plan       domain.TravelPlan
	collection string
}

// NewEditor returns an editor for plan's packing list.
func NewEditor(store docstore.Store, identity Identity, plan domain.TravelPlan) *Editor {
	return &Editor{
		store:      store,
		identity:   identity,
		plan:       plan,
		collection: domain.PackingItemsCollection(plan.ID),
	}
}

// Add creates an unpacked item.
func (e *Editor) Add(ctx context.Context, name, itemNumber string) (domain.PackingItem, error) {
	if e.identity.CurrentUserID() == "" {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Add: %w", domain.ErrAuthRequired)
	}
	item := domain.PackingItem{
		CreatorID:  e.plan.CreatorID,
		TravelID:   e.plan.ID,
		Name:       strings.TrimSpace(name),
		ItemNumber: strings.TrimSpace(itemNumber),
	}
	if err := item.Validate(); err != nil {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Add: %w", err)
	}

	doc, err := e.store.Create(ctx, e.collection, item.Fields())
	if err != nil {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Add: %w",
			&domain.WriteError{Op: "create", Collection: e.collection, Err: err})
	}
	item.ID = doc.ID
	return item, nil
}

// Update writes a new name and item number. The packed state is left alone.
func (e *Editor) Update(ctx context.Context, item domain.PackingItem) (domain.PackingItem, error) {
	if e.identity.CurrentUserID() == "" {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Update: %w", domain.ErrAuthRequired)
	}
	item.Name = strings.TrimSpace(item.Name)
	item.ItemNumber = strings.TrimSpace(item.ItemNumber)
	if err := item.Validate(); err != nil {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Update: %w", err)
	}

	fields := map[string]any{"name": item.Name, "itemNumber": item.ItemNumber}
	if err := e.store.SetFields(ctx, e.collection, item.ID, fields, true); err != nil {
		return domain.PackingItem{}, fmt.Errorf("packinglist.Editor.Update: %w",
			&domain.WriteError{Op: "set", Collection: e.collection, ID: item.ID, Err: err})
	}
	return item, nil
}

// Delete removes an item.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if e.identity.CurrentUserID() == "" {
		return fmt.Errorf("packinglist.Editor.Delete: %w", domain.ErrAuthRequired)
	}
	if err := e.store.Delete(ctx, e.collection, id); err != nil {
		return fmt.Errorf("packinglist.Editor.Delete: %w",
			&domain.WriteError{Op: "delete", Collection: e.collection, ID: id, Err: err})
	}
	return nil
}
