package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/packsync/packsync/internal/auth"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/repo"
)

type collectionKind int

const (
	kindTravelPlans collectionKind = iota + 1
	kindUsers
	kindPackingItems
)

// collectionRef is a parsed, known collection path.
type collectionRef struct {
	path     string
	kind     collectionKind
	travelID string
}

// parseCollection accepts exactly the collections Packsync stores:
// travelPlans, users and trips/{travelId}/packingItems.
func parseCollection(path string) (collectionRef, error) {
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return collectionRef{}, fmt.Errorf("%w: malformed collection path %q", domain.ErrValidation, path)
		}
	}
	switch {
	case len(segs) == 1 && segs[0] == domain.TravelPlansCollection:
		return collectionRef{path: path, kind: kindTravelPlans}, nil
	case len(segs) == 1 && segs[0] == domain.UsersCollection:
		return collectionRef{path: path, kind: kindUsers}, nil
	case len(segs) == 3 && segs[0] == "trips" && segs[2] == "packingItems":
		return collectionRef{path: path, kind: kindPackingItems, travelID: segs[1]}, nil
	}
	return collectionRef{}, fmt.Errorf("%w: unknown collection %q", domain.ErrValidation, path)
}

// DocumentService guards the document store with Packsync's ownership rules:
//   - travelPlans belong to their creatorId; only the creator reads or writes
//     them, and queries must be scoped to the caller.
//   - users/{id} is readable and writable only by that user.
//   - packing items are shared by every signed-in user.
type DocumentService struct {
	store    docstore.LiveStore
	accounts repo.AccountRepo
}

// NewDocumentService constructs a DocumentService. When accounts is non-nil,
// display-name changes written to a profile are copied onto the account so
// new tokens carry them.
func NewDocumentService(store docstore.LiveStore, accounts repo.AccountRepo) *DocumentService {
	return &DocumentService{store: store, accounts: accounts}
}

// Query runs an equality query.
func (s *DocumentService) Query(ctx context.Context, caller auth.Identity, collection string, filters docstore.Filters) ([]docstore.Document, error) {
	ref, err := s.checkQuery(caller, collection, filters)
	if err != nil {
		return nil, fmt.Errorf("service.DocumentService.Query: %w", err)
	}
	docs, err := s.store.Query(ctx, ref.path, filters)
	if err != nil {
		return nil, fmt.Errorf("service.DocumentService.Query: %w", err)
	}
	if docs == nil {
		return []docstore.Document{}, nil
	}
	return docs, nil
}

// Subscribe starts a live query under the same rules as Query.
func (s *DocumentService) Subscribe(caller auth.Identity, collection string, filters docstore.Filters, onUpdate func([]docstore.Document), onError func(error)) (docstore.Subscription, error) {
	ref, err := s.checkQuery(caller, collection, filters)
	if err != nil {
		return nil, fmt.Errorf("service.DocumentService.Subscribe: %w", err)
	}
	return s.store.Listen(ref.path, filters, onUpdate, onError), nil
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, caller auth.Identity, collection, id string) (docstore.Document, error) {
	ref, err := parseCollection(collection)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Get: %w", err)
	}
	if ref.kind == kindUsers && id != caller.UserID {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Get: %w", domain.ErrForbidden)
	}
	doc, err := s.store.Get(ctx, ref.path, id)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Get: %w", err)
	}
	if ref.kind == kindTravelPlans && creatorOf(doc.Fields) != caller.UserID {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Get: %w", domain.ErrForbidden)
	}
	return doc, nil
}

// Create stores a new document under a server-assigned ID.
func (s *DocumentService) Create(ctx context.Context, caller auth.Identity, collection string, fields map[string]any) (docstore.Document, error) {
	ref, err := parseCollection(collection)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w", err)
	}
	fields = docstore.CloneFields(fields)

	switch ref.kind {
	case kindUsers:
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w: profiles are keyed by user id", domain.ErrValidation)
	case kindTravelPlans:
		if err := stampCreator(fields, caller); err != nil {
			return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w", err)
		}
		if title, _ := fields["travelTitle"].(string); strings.TrimSpace(title) == "" {
			return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w: travel title is required", domain.ErrValidation)
		}
	case kindPackingItems:
		if err := checkPackingItem(ref, fields, true); err != nil {
			return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w", err)
		}
	}

	doc, err := s.store.Create(ctx, ref.path, fields)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("service.DocumentService.Create: %w", err)
	}
	return doc, nil
}

// SetFields writes fields to a document, creating it if absent. Merging into
// a packing item that does not exist fails with domain.ErrNotFound.
func (s *DocumentService) SetFields(ctx context.Context, caller auth.Identity, collection, id string, fields map[string]any, merge bool) error {
	ref, err := parseCollection(collection)
	if err != nil {
		return fmt.Errorf("service.DocumentService.SetFields: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("service.DocumentService.SetFields: %w: document id is required", domain.ErrValidation)
	}
	fields = docstore.CloneFields(fields)

	switch ref.kind {
	case kindUsers:
		if id != caller.UserID {
			return fmt.Errorf("service.DocumentService.SetFields: %w", domain.ErrForbidden)
		}
	case kindTravelPlans:
		err := s.checkPlanOwner(ctx, caller, id)
		missing := errors.Is(err, domain.ErrNotFound)
		if err != nil && !missing {
			return fmt.Errorf("service.DocumentService.SetFields: %w", err)
		}
		if _, ok := fields["creatorId"]; ok || missing || !merge {
			if err := stampCreator(fields, caller); err != nil {
				return fmt.Errorf("service.DocumentService.SetFields: %w", err)
			}
		}
	case kindPackingItems:
		if err := checkPackingItem(ref, fields, !merge); err != nil {
			return fmt.Errorf("service.DocumentService.SetFields: %w", err)
		}
		// A merge only touches some fields; on a deleted item it would
		// leave a document with no creatorId or travelId behind.
		if merge {
			if _, err := s.store.Get(ctx, ref.path, id); err != nil {
				return fmt.Errorf("service.DocumentService.SetFields: %w", err)
			}
		}
	}

	if err := s.store.SetFields(ctx, ref.path, id, fields, merge); err != nil {
		return fmt.Errorf("service.DocumentService.SetFields: %w", err)
	}

	if ref.kind == kindUsers && s.accounts != nil {
		if name, ok := fields["displayName"].(string); ok && strings.TrimSpace(name) != "" {
			if _, err := s.accounts.UpdateDisplayName(ctx, caller.UserID, strings.TrimSpace(name)); err != nil {
				return fmt.Errorf("service.DocumentService.SetFields: updating account: %w", err)
			}
		}
	}
	return nil
}

// Delete removes a document.
func (s *DocumentService) Delete(ctx context.Context, caller auth.Identity, collection, id string) error {
	ref, err := parseCollection(collection)
	if err != nil {
		return fmt.Errorf("service.DocumentService.Delete: %w", err)
	}
	switch ref.kind {
	case kindUsers:
		if id != caller.UserID {
			return fmt.Errorf("service.DocumentService.Delete: %w", domain.ErrForbidden)
		}
	case kindTravelPlans:
		if err := s.checkPlanOwner(ctx, caller, id); err != nil {
			return fmt.Errorf("service.DocumentService.Delete: %w", err)
		}
	}
	if err := s.store.Delete(ctx, ref.path, id); err != nil {
		return fmt.Errorf("service.DocumentService.Delete: %w", err)
	}
	return nil
}

func (s *DocumentService) checkQuery(caller auth.Identity, collection string, filters docstore.Filters) (collectionRef, error) {
	ref, err := parseCollection(collection)
	if err != nil {
		return collectionRef{}, err
	}
	switch ref.kind {
	case kindUsers:
		return collectionRef{}, fmt.Errorf("%w: profiles cannot be listed", domain.ErrForbidden)
	case kindTravelPlans:
		if creator, _ := filters["creatorId"].(string); creator != caller.UserID {
			return collectionRef{}, fmt.Errorf("%w: travel plan queries must filter on your creatorId", domain.ErrForbidden)
		}
	}
	return ref, nil
}

// checkPlanOwner returns domain.ErrNotFound when the plan does not exist and
// domain.ErrForbidden when someone else created it.
func (s *DocumentService) checkPlanOwner(ctx context.Context, caller auth.Identity, id string) error {
	doc, err := s.store.Get(ctx, domain.TravelPlansCollection, id)
	if err != nil {
		return err
	}
	if creatorOf(doc.Fields) != caller.UserID {
		return domain.ErrForbidden
	}
	return nil
}

func creatorOf(fields map[string]any) string {
	s, _ := fields["creatorId"].(string)
	return s
}

// stampCreator sets creatorId to the caller, refusing any other value.
func stampCreator(fields map[string]any, caller auth.Identity) error {
	if v, ok := fields["creatorId"]; ok && v != caller.UserID {
		return fmt.Errorf("%w: creatorId must be the caller", domain.ErrForbidden)
	}
	fields["creatorId"] = caller.UserID
	return nil
}

// checkPackingItem keeps travelId consistent with the collection path and,
// for full writes, requires a name.
func checkPackingItem(ref collectionRef, fields map[string]any, full bool) error {
	if v, ok := fields["travelId"]; ok && v != ref.travelID {
		return fmt.Errorf("%w: travelId does not match collection", domain.ErrValidation)
	}
	if !full {
		return nil
	}
	fields["travelId"] = ref.travelID
	if name, _ := fields["name"].(string); strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: item name is required", domain.ErrValidation)
	}
	return nil
}
