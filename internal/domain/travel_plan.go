// Package domain contains the core data types for Packsync.
// This package has zero external dependencies and is imported by every other
// internal package, on both the server and the client side.
package domain

import (
	"fmt"
	"strings"
)

// TravelPlansCollection is the document collection holding every TravelPlan.
const TravelPlansCollection = "travelPlans"

// TravelPlan is a single trip owned by one user.
// Whether a plan is "active" is session state held by the client-side
// registry, never a field on the plan itself.
type TravelPlan struct {
	ID             string `json:"id"`
	CreatorID      string `json:"creatorId"`
	Title          string `json:"travelTitle"`
	StartDate      string `json:"travelStartDate"` // opaque, formatted by the UI
	EndDate        string `json:"travelEndDate"`
	CountryAndCity string `json:"countryAndCity"`
}

// Fields returns the wire representation of the plan, without its ID.
func (p TravelPlan) Fields() map[string]any {
	return map[string]any{
		"creatorId":       p.CreatorID,
		"travelTitle":     p.Title,
		"travelStartDate": p.StartDate,
		"travelEndDate":   p.EndDate,
		"countryAndCity":  p.CountryAndCity,
	}
}

// Validate enforces the rules common to creating and editing a plan.
//   - Title must be non-empty (whitespace-only titles are rejected).
func (p TravelPlan) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: travel title is required", ErrValidation)
	}
	return nil
}

// DecodeTravelPlan builds a TravelPlan from a stored document.
// Malformed fields default to "" and are reported in a *DecodeError; the
// returned plan is usable either way.
func DecodeTravelPlan(id string, fields map[string]any) (TravelPlan, error) {
	r := fieldReader{fields: fields}
	p := TravelPlan{
		ID:             id,
		CreatorID:      r.str("creatorId", true),
		Title:          r.str("travelTitle", true),
		StartDate:      r.str("travelStartDate", false),
		EndDate:        r.str("travelEndDate", false),
		CountryAndCity: r.str("countryAndCity", false),
	}
	return p, r.err(id)
}
