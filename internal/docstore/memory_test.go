package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, "travelPlans", map[string]any{"travelTitle": "Oslo"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, "travelPlans", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", got.Fields["travelTitle"])
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	_, err := docstore.NewMemoryStore().Get(context.Background(), "travelPlans", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_QueryFiltersAndOrder(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, "c", map[string]any{"creatorId": "u1", "n": "a"})
	_, _ = s.Create(ctx, "c", map[string]any{"creatorId": "u2", "n": "b"})
	c, _ := s.Create(ctx, "c", map[string]any{"creatorId": "u1", "n": "c"})

	docs, err := s.Query(ctx, "c", docstore.Filters{"creatorId": "u1"})

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a.ID, docs[0].ID)
	assert.Equal(t, c.ID, docs[1].ID)
}

func TestMemoryStore_SetFields_Merge(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()
	d, _ := s.Create(ctx, "c", map[string]any{"name": "Tent", "isPacked": false})

	require.NoError(t, s.SetFields(ctx, "c", d.ID, map[string]any{"isPacked": true, "isPackedBy": "Alice"}, true))

	got, _ := s.Get(ctx, "c", d.ID)
	assert.Equal(t, map[string]any{"name": "Tent", "isPacked": true, "isPackedBy": "Alice"}, got.Fields)
}

func TestMemoryStore_SetFields_Replace(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()
	d, _ := s.Create(ctx, "c", map[string]any{"name": "Tent", "isPacked": false})

	require.NoError(t, s.SetFields(ctx, "c", d.ID, map[string]any{"isPacked": true}, false))

	got, _ := s.Get(ctx, "c", d.ID)
	assert.Equal(t, map[string]any{"isPacked": true}, got.Fields)
}

func TestMemoryStore_SetFields_UpsertsMissingDocument(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetFields(ctx, "users", "u1", map[string]any{"displayName": "Alice"}, true))

	got, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Fields["displayName"])
}

func TestMemoryStore_Delete(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()
	d, _ := s.Create(ctx, "c", map[string]any{})

	require.NoError(t, s.Delete(ctx, "c", d.ID))
	assert.ErrorIs(t, s.Delete(ctx, "c", d.ID), domain.ErrNotFound)
}

func TestMemoryStore_ReturnedFieldsAreCopies(t *testing.T) {
	s := docstore.NewMemoryStore()
	ctx := context.Background()
	d, _ := s.Create(ctx, "c", map[string]any{"name": "Tent"})

	got, _ := s.Get(ctx, "c", d.ID)
	got.Fields["name"] = "changed"

	again, _ := s.Get(ctx, "c", d.ID)
	assert.Equal(t, "Tent", again.Fields["name"])
}

func TestMatches_NilFilterMatchesAbsentField(t *testing.T) {
	assert.True(t, docstore.Matches(map[string]any{}, docstore.Filters{"isPackedBy": nil}))
	assert.False(t, docstore.Matches(map[string]any{"a": "x"}, docstore.Filters{"a": "y"}))
	assert.True(t, docstore.Matches(map[string]any{"a": "x"}, nil))
}
