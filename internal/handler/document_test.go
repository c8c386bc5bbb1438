package handler_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
	"github.com/packsync/packsync/internal/handler"
)

const plansURL = "/v1/collections/travelPlans/documents"

func itemsURL(travelID string) string {
	return "/v1/collections/" + url.PathEscape(domain.PackingItemsCollection(travelID)) + "/documents"
}

func filtersParam(t *testing.T, f map[string]any) string {
	t.Helper()
	b, err := jsonMarshal(f)
	require.NoError(t, err)
	return "?filters=" + url.QueryEscape(string(b))
}

// ---- travel plans ------------------------------------------------------------

func TestCreateTravelPlan_201_StampsCreator(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, plansURL, "tok-alice", map[string]any{"travelTitle": "Tokyo"})

	require.Equal(t, http.StatusCreated, rec.Code)
	doc := decode[docstore.Document](t, rec)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "alice", doc.Fields["creatorId"])
}

func TestCreateTravelPlan_422_BlankTitle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, plansURL, "tok-alice", map[string]any{"travelTitle": ""})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "travel title is required", decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestCreateDocument_400_NotAnObject(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, plansURL, "tok-alice", []byte(`["x"]`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryTravelPlans(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, plansURL, "tok-alice", map[string]any{"travelTitle": "A"}).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, plansURL, "tok-bob", map[string]any{"travelTitle": "B"}).Code)

	rec := env.do(t, http.MethodGet, plansURL+filtersParam(t, map[string]any{"creatorId": "alice"}), "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.DocumentList](t, rec)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "A", list.Documents[0].Fields["travelTitle"])

	rec = env.do(t, http.MethodGet, plansURL+filtersParam(t, map[string]any{"creatorId": "alice"}), "tok-bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, plansURL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, plansURL+"?filters=notjson", "tok-alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTravelPlan_NonCreatorWritesAre403(t *testing.T) {
	env := newTestEnv(t)
	doc := decode[docstore.Document](t, env.do(t, http.MethodPost, plansURL, "tok-alice", map[string]any{"travelTitle": "A"}))
	docURL := plansURL + "/" + doc.ID

	rec := env.do(t, http.MethodPatch, docURL, "tok-bob", map[string]any{"travelTitle": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, docURL, "tok-bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, docURL, "tok-bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTravelPlan_UpdateGetDelete(t *testing.T) {
	env := newTestEnv(t)
	doc := decode[docstore.Document](t, env.do(t, http.MethodPost, plansURL, "tok-alice", map[string]any{"travelTitle": "A", "countryAndCity": "JP"}))
	docURL := plansURL + "/" + doc.ID

	rec := env.do(t, http.MethodPatch, docURL, "tok-alice", map[string]any{"travelTitle": "B"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got := decode[docstore.Document](t, env.do(t, http.MethodGet, docURL, "tok-alice", nil))
	assert.Equal(t, "B", got.Fields["travelTitle"])
	assert.Equal(t, "JP", got.Fields["countryAndCity"])

	rec = env.do(t, http.MethodPatch, docURL+"?merge=false", "tok-alice", map[string]any{"travelTitle": "C"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	got = decode[docstore.Document](t, env.do(t, http.MethodGet, docURL, "tok-alice", nil))
	assert.Equal(t, map[string]any{"travelTitle": "C", "creatorId": "alice"}, got.Fields)

	rec = env.do(t, http.MethodPatch, docURL+"?merge=perhaps", "tok-alice", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, docURL, "tok-alice", nil).Code)
	rec = env.do(t, http.MethodGet, docURL, "tok-alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

// ---- packing items -----------------------------------------------------------

func TestPackingItems_EscapedCollectionPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, itemsURL("t1"), "tok-alice", map[string]any{
		"creatorId": "alice", "name": "Tent", "itemNumber": "2", "isPacked": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[docstore.Document](t, rec)

	stored, err := env.mem.Get(context.Background(), "trips/t1/packingItems", item.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", stored.Fields["travelId"])

	rec = env.do(t, http.MethodPatch, itemsURL("t1")+"/"+item.ID, "tok-bob", domain.PackedFields(true, "Bob"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, itemsURL("t1")+filtersParam(t, map[string]any{"creatorId": "alice", "travelId": "t1"}), "tok-bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.DocumentList](t, rec)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, true, list.Documents[0].Fields["isPacked"])
	assert.Equal(t, "Bob", list.Documents[0].Fields["isPackedBy"])
}

func TestUnknownCollection_422(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/collections/secrets/documents", "tok-alice", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
