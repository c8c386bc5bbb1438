package domain

import (
	"fmt"
	"strings"
)

// PackingItemsCollection returns the collection path holding the packing
// items of one travel plan.
func PackingItemsCollection(travelID string) string {
	return "trips/" + travelID + "/packingItems"
}

// UnknownPacker is recorded as the packer when the acting user has no
// display name.
const UnknownPacker = "Unknown User"

// PackingItem is one entry on a travel plan's packing list.
// IsPackedBy is empty whenever IsPacked is false.
type PackingItem struct {
	ID        string `json:"id"`
	CreatorID string `json:"creatorId"`
	TravelID  string `json:"travelId"`
	Name      string `json:"name"`

	// ItemNumber is the quantity to pack. It is stored and compared as text
	// on the wire and is never converted to a number.
	ItemNumber string `json:"itemNumber"`

	IsPacked   bool   `json:"isPacked"`
	IsPackedBy string `json:"isPackedBy,omitempty"`
}

// Fields returns the full wire representation of the item, without its ID.
// An empty IsPackedBy is written as null so the stored field reads as absent.
func (i PackingItem) Fields() map[string]any {
	return map[string]any{
		"creatorId":  i.CreatorID,
		"travelId":   i.TravelID,
		"name":       i.Name,
		"itemNumber": i.ItemNumber,
		"isPacked":   i.IsPacked,
		"isPackedBy": packedByField(i.IsPackedBy),
	}
}

// PackedFields returns the partial update written when an item is toggled.
func PackedFields(isPacked bool, packedBy string) map[string]any {
	if !isPacked {
		packedBy = ""
	}
	return map[string]any{
		"isPacked":   isPacked,
		"isPackedBy": packedByField(packedBy),
	}
}

func packedByField(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Validate enforces the rules for adding or editing an item.
func (i PackingItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrValidation)
	}
	return nil
}

// DecodePackingItem builds a PackingItem from a stored document.
// creatorID and travelID come from the owning plan rather than the document.
// Missing fields default to "" (name, itemNumber), false (isPacked) and absent
// (isPackedBy); when any field is malformed a *DecodeError is returned together
// with the usable item.
func DecodePackingItem(id, creatorID, travelID string, fields map[string]any) (PackingItem, error) {
	r := fieldReader{fields: fields}
	item := PackingItem{
		ID:         id,
		CreatorID:  creatorID,
		TravelID:   travelID,
		Name:       r.str("name", true),
		ItemNumber: r.str("itemNumber", true),
		IsPacked:   r.boolean("isPacked", true),
		IsPackedBy: r.str("isPackedBy", false),
	}
	if !item.IsPacked {
		item.IsPackedBy = ""
	}
	return item, r.err(id)
}
