package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/domain"
)

func TestDecodePackingItem_AllFields(t *testing.T) {
	item, err := domain.DecodePackingItem("i1", "u1", "t1", map[string]any{
		"name":       "Socks",
		"itemNumber": "4",
		"isPacked":   true,
		"isPackedBy": "Alice",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PackingItem{
		ID: "i1", CreatorID: "u1", TravelID: "t1",
		Name: "Socks", ItemNumber: "4", IsPacked: true, IsPackedBy: "Alice",
	}, item)
}

func TestDecodePackingItem_MissingFieldsDefault(t *testing.T) {
	item, err := domain.DecodePackingItem("i1", "u1", "t1", map[string]any{"name": "Hat"})

	var decodeErr *domain.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.ElementsMatch(t, []string{"itemNumber", "isPacked"}, decodeErr.Fields)
	assert.Equal(t, "Hat", item.Name)
	assert.Equal(t, "", item.ItemNumber)
	assert.False(t, item.IsPacked)
	assert.Empty(t, item.IsPackedBy)
}

func TestDecodePackingItem_WrongTypes(t *testing.T) {
	// itemNumber arrives as a JSON number; it must not be coerced.
	item, err := domain.DecodePackingItem("i1", "u1", "t1", map[string]any{
		"name":       "Hat",
		"itemNumber": float64(3),
		"isPacked":   "yes",
	})

	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "i1", decodeErr.ID)
	assert.Equal(t, "", item.ItemNumber)
	assert.False(t, item.IsPacked)
}

func TestDecodePackingItem_NullPackedByIsAbsent(t *testing.T) {
	item, err := domain.DecodePackingItem("i1", "u1", "t1", map[string]any{
		"name": "Hat", "itemNumber": "1", "isPacked": false, "isPackedBy": nil,
	})

	require.NoError(t, err)
	assert.Empty(t, item.IsPackedBy)
}

func TestDecodePackingItem_UnpackedDropsStalePacker(t *testing.T) {
	item, err := domain.DecodePackingItem("i1", "u1", "t1", map[string]any{
		"name": "Hat", "itemNumber": "1", "isPacked": false, "isPackedBy": "Bob",
	})

	require.NoError(t, err)
	assert.Empty(t, item.IsPackedBy)
}

func TestPackedFields(t *testing.T) {
	assert.Equal(t, map[string]any{"isPacked": true, "isPackedBy": "Alice"}, domain.PackedFields(true, "Alice"))
	assert.Equal(t, map[string]any{"isPacked": false, "isPackedBy": nil}, domain.PackedFields(false, "Alice"))
}

func TestPackingItem_Validate(t *testing.T) {
	assert.ErrorIs(t, domain.PackingItem{Name: "  "}.Validate(), domain.ErrValidation)
	assert.NoError(t, domain.PackingItem{Name: "Tent"}.Validate())
}

func TestPackingItemsCollection(t *testing.T) {
	assert.Equal(t, "trips/abc/packingItems", domain.PackingItemsCollection("abc"))
}
