package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/packsync/packsync/internal/domain"
)

// MemoryStore is a process-local Store. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]map[string]memDoc
}

type memDoc struct {
	seq    int64
	fields map[string]any
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]memDoc)}
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters Filters) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		seq int64
		doc Document
	}
	var hits []hit
	for id, d := range s.collections[collection] {
		if Matches(d.fields, filters) {
			hits = append(hits, hit{seq: d.seq, doc: Document{ID: id, Fields: CloneFields(d.fields)}})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })

	docs := make([]Document, len(hits))
	for i, h := range hits {
		docs[i] = h.doc
	}
	return docs, nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("docstore.MemoryStore.Get: %w", domain.ErrNotFound)
	}
	return Document{ID: id, Fields: CloneFields(d.fields)}, nil
}

func (s *MemoryStore) Create(_ context.Context, collection string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.put(collection, id, CloneFields(fields))
	return Document{ID: id, Fields: CloneFields(fields)}, nil
}

func (s *MemoryStore) SetFields(_ context.Context, collection, id string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok || !merge {
		s.put(collection, id, CloneFields(fields))
		return nil
	}
	for k, v := range fields {
		existing.fields[k] = cloneValue(v)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("docstore.MemoryStore.Delete: %w", domain.ErrNotFound)
	}
	delete(s.collections[collection], id)
	return nil
}

// put inserts or replaces a document, keeping the original creation order
// for replacements. Callers hold s.mu.
func (s *MemoryStore) put(collection, id string, fields map[string]any) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]memDoc)
		s.collections[collection] = docs
	}
	if d, ok := docs[id]; ok {
		docs[id] = memDoc{seq: d.seq, fields: fields}
		return
	}
	s.seq++
	docs[id] = memDoc{seq: s.seq, fields: fields}
}
