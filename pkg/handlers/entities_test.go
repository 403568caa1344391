package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// decodeEnvelope unwraps a successful ApiResponse body into its data map.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "expected object data, got %T", resp.Data)
	return data
}

// decodeError unwraps an error response body.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func countryOf(cc string) *string { return &cc }

func TestEntitiesHandler_Resolve_Success(t *testing.T) {
	entity := &models.CanonicalEntity{
		ID:          uuid.New(),
		Name:        "Petroleos de Venezuela",
		EntityType:  models.EntityTypeOrganization,
		CountryCode: countryOf("VE"),
	}
	resolver := &mockResolverService{
		resolution: &models.Resolution{
			Entity:     entity,
			Method:     models.ResolutionProbabilistic,
			Confidence: 0.97,
		},
	}
	handler := NewEntitiesHandler(resolver, &mockRegistry{}, zap.NewNop())

	body := `{"text":"PDVSA","entity_type":"organization","country_code":"VE","source":"reuters"}`
	req := httptest.NewRequest(http.MethodPost, "/api/entities/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Resolve(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PDVSA", resolver.lastMention.Text)
	assert.Equal(t, "reuters", resolver.lastMention.Source)

	data := decodeEnvelope(t, rec)
	assert.Equal(t, "probabilistic", data["method"])
	assert.Equal(t, false, data["created"])
	resolved, ok := data["entity"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, entity.ID.String(), resolved["id"])
}

func TestEntitiesHandler_Resolve_CreatedAnswers201(t *testing.T) {
	resolver := &mockResolverService{
		resolution: &models.Resolution{
			Entity:     &models.CanonicalEntity{ID: uuid.New(), Name: "Tren del Llano"},
			Method:     models.ResolutionEscalated,
			Confidence: 1.0,
			Created:    true,
		},
	}
	handler := NewEntitiesHandler(resolver, &mockRegistry{}, zap.NewNop())

	body := `{"text":"Tren del Llano","entity_type":"organization","source":"apnews"}`
	req := httptest.NewRequest(http.MethodPost, "/api/entities/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Resolve(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	data := decodeEnvelope(t, rec)
	assert.Equal(t, true, data["created"])
}

func TestEntitiesHandler_Resolve_MalformedBody(t *testing.T) {
	resolver := &mockResolverService{}
	handler := NewEntitiesHandler(resolver, &mockRegistry{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/entities/resolve", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	handler.Resolve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec)["error"])
	assert.Empty(t, resolver.lastMention.Text, "resolver must not see a body that failed to decode")
}

func TestEntitiesHandler_Resolve_ValidationErrorIs400(t *testing.T) {
	resolver := &mockResolverService{err: apperrors.ErrEmptyMention}
	handler := NewEntitiesHandler(resolver, &mockRegistry{}, zap.NewNop())

	body := `{"text":"","entity_type":"organization","source":"reuters"}`
	req := httptest.NewRequest(http.MethodPost, "/api/entities/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Resolve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeError(t, rec)["error"])
}

func TestEntitiesHandler_Resolve_InternalErrorIs500(t *testing.T) {
	resolver := &mockResolverService{err: errors.New("pool exhausted")}
	handler := NewEntitiesHandler(resolver, &mockRegistry{}, zap.NewNop())

	body := `{"text":"PDVSA","entity_type":"organization","source":"reuters"}`
	req := httptest.NewRequest(http.MethodPost, "/api/entities/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Resolve(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec)["error"])
}

func TestEntitiesHandler_List_ReturnsPage(t *testing.T) {
	registry := &mockRegistry{
		entities: []*models.CanonicalEntity{
			{ID: uuid.New(), Name: "Chevron", EntityType: models.EntityTypeOrganization},
			{ID: uuid.New(), Name: "PDVSA", EntityType: models.EntityTypeOrganization},
		},
	}
	handler := NewEntitiesHandler(&mockResolverService{}, registry, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/entities?limit=10&offset=5", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)
	assert.Equal(t, float64(2), data["count"])
	assert.Equal(t, float64(10), data["limit"])
	assert.Equal(t, float64(5), data["offset"])
	assert.Len(t, data["entities"], 2)
}

func TestEntitiesHandler_List_RejectsBadPaging(t *testing.T) {
	handler := NewEntitiesHandler(&mockResolverService{}, &mockRegistry{}, zap.NewNop())

	for _, query := range []string{"?limit=abc", "?limit=-1", "?offset=x"} {
		req := httptest.NewRequest(http.MethodGet, "/api/entities"+query, nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %s", query)
	}
}

func TestEntitiesHandler_Get_ReturnsEntityWithAliases(t *testing.T) {
	entityID := uuid.New()
	registry := &mockRegistry{
		entity: &models.CanonicalEntity{
			ID:         entityID,
			Name:       "Nicolas Maduro",
			EntityType: models.EntityTypePerson,
		},
		aliases: []*models.EntityAlias{
			{ID: uuid.New(), EntityID: entityID, Alias: "Nicolás Maduro", Source: "reuters"},
			{ID: uuid.New(), EntityID: entityID, Alias: "Maduro", Source: "bloomberg"},
		},
	}
	handler := NewEntitiesHandler(&mockResolverService{}, registry, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/entities/"+entityID.String(), nil)
	req.SetPathValue("eid", entityID.String())
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)
	entity, ok := data["entity"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Nicolas Maduro", entity["name"])
	assert.Len(t, data["aliases"], 2)
}

func TestEntitiesHandler_Get_UnknownIs404(t *testing.T) {
	handler := NewEntitiesHandler(&mockResolverService{}, &mockRegistry{}, zap.NewNop())

	entityID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/entities/"+entityID.String(), nil)
	req.SetPathValue("eid", entityID.String())
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "entity_not_found", decodeError(t, rec)["error"])
}

func TestEntitiesHandler_Get_BadIDIs400(t *testing.T) {
	handler := NewEntitiesHandler(&mockResolverService{}, &mockRegistry{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/entities/not-a-uuid", nil)
	req.SetPathValue("eid", "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_entity_id", decodeError(t, rec)["error"])
}
