package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/domain"
)

func TestTravelPlan_FieldsRoundTrip(t *testing.T) {
	plan := domain.TravelPlan{
		ID:             "p1",
		CreatorID:      "u1",
		Title:          "Lisbon",
		StartDate:      "Jun 1, 2025",
		EndDate:        "Jun 9, 2025",
		CountryAndCity: "Portugal, Lisbon",
	}

	got, err := domain.DecodeTravelPlan("p1", plan.Fields())

	require.NoError(t, err)
	assert.Equal(t, plan, got)
}

func TestDecodeTravelPlan_MissingTitle(t *testing.T) {
	got, err := domain.DecodeTravelPlan("p1", map[string]any{"creatorId": "u1"})

	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []string{"travelTitle"}, decodeErr.Fields)
	assert.Equal(t, "u1", got.CreatorID)
}

func TestTravelPlan_Validate(t *testing.T) {
	assert.ErrorIs(t, domain.TravelPlan{Title: " "}.Validate(), domain.ErrValidation)
	assert.NoError(t, domain.TravelPlan{Title: "Rome"}.Validate())
}
