//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/testhelpers"
)

// entityTestContext holds test dependencies for entity repository tests.
type entityTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     EntityRepository
}

// setupEntityTest initializes the test context with the shared testcontainer.
func setupEntityTest(t *testing.T) *entityTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &entityTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewEntityRepository(engineDB.DB),
	}
	tc.cleanup()
	return tc
}

// cleanup removes all registry and event rows so each test starts fresh.
func (tc *entityTestContext) cleanup() {
	tc.t.Helper()
	ctx := context.Background()

	// event_mentions references canonical_entities without cascade, so the
	// event store empties first.
	for _, table := range []string{"event_mentions", "event_themes", "events", "entity_aliases", "canonical_entities"} {
		if _, err := tc.engineDB.DB.Exec(ctx, "DELETE FROM "+table); err != nil {
			tc.t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
}

// createTestEntity creates a canonical entity for testing.
func (tc *entityTestContext) createTestEntity(ctx context.Context, name string, entityType models.EntityType) *models.CanonicalEntity {
	tc.t.Helper()
	entity := &models.CanonicalEntity{
		Name:       name,
		EntityType: entityType,
	}
	if err := tc.repo.CreateEntity(ctx, entity); err != nil {
		tc.t.Fatalf("failed to create test entity: %v", err)
	}
	return entity
}

// ============================================================================
// Entity Tests
// ============================================================================

func TestEntityRepository_CreateEntity_Success(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	country := "VE"
	entity := &models.CanonicalEntity{
		Name:        "Petroleos de Venezuela",
		EntityType:  models.EntityTypeOrganization,
		CountryCode: &country,
		RiskScore:   42.5,
	}

	if err := tc.repo.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}
	if entity.ID == uuid.Nil {
		t.Fatal("expected entity ID to be assigned")
	}

	got, err := tc.repo.GetEntityByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetEntityByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entity, got nil")
	}
	if got.Name != entity.Name {
		t.Errorf("expected name %q, got %q", entity.Name, got.Name)
	}
	if got.EntityType != models.EntityTypeOrganization {
		t.Errorf("expected type organization, got %s", got.EntityType)
	}
	if got.CountryCode == nil || *got.CountryCode != "VE" {
		t.Errorf("expected country VE, got %v", got.CountryCode)
	}
	if got.RiskScore != 42.5 {
		t.Errorf("expected risk 42.5, got %f", got.RiskScore)
	}
}

func TestEntityRepository_GetEntityByID_NotFound(t *testing.T) {
	tc := setupEntityTest(t)

	got, err := tc.repo.GetEntityByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetEntityByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing entity, got %+v", got)
	}
}

func TestEntityRepository_GetEntitiesByIDs(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	a := tc.createTestEntity(ctx, "Alpha Corp", models.EntityTypeOrganization)
	b := tc.createTestEntity(ctx, "Beta Ministry", models.EntityTypeGovernment)
	tc.createTestEntity(ctx, "Gamma Port", models.EntityTypeLocation)

	got, err := tc.repo.GetEntitiesByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetEntitiesByIDs failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got))
	}

	empty, err := tc.repo.GetEntitiesByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetEntitiesByIDs with no ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no entities for empty id list, got %d", len(empty))
	}
}

func TestEntityRepository_ListEntities_Paged(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	tc.createTestEntity(ctx, "Alpha Corp", models.EntityTypeOrganization)
	tc.createTestEntity(ctx, "Beta Ministry", models.EntityTypeGovernment)
	tc.createTestEntity(ctx, "Gamma Port", models.EntityTypeLocation)

	page1, err := tc.repo.ListEntities(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListEntities failed: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 entities on first page, got %d", len(page1))
	}
	if page1[0].Name != "Alpha Corp" || page1[1].Name != "Beta Ministry" {
		t.Errorf("unexpected page order: %s, %s", page1[0].Name, page1[1].Name)
	}

	page2, err := tc.repo.ListEntities(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListEntities failed: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("expected 1 entity on second page, got %d", len(page2))
	}
	if page2[0].Name != "Gamma Port" {
		t.Errorf("expected Gamma Port, got %s", page2[0].Name)
	}
}

func TestEntityRepository_UpdateRiskScore(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	entity := tc.createTestEntity(ctx, "Alpha Corp", models.EntityTypeOrganization)

	if err := tc.repo.UpdateRiskScore(ctx, entity.ID, 77.0); err != nil {
		t.Fatalf("UpdateRiskScore failed: %v", err)
	}

	got, err := tc.repo.GetEntityByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetEntityByID failed: %v", err)
	}
	if got.RiskScore != 77.0 {
		t.Errorf("expected risk 77.0, got %f", got.RiskScore)
	}

	err = tc.repo.UpdateRiskScore(ctx, uuid.New(), 10.0)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing entity, got %v", err)
	}
}

// ============================================================================
// Alias Tests
// ============================================================================

func TestEntityRepository_CreateAlias_Success(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	entity := tc.createTestEntity(ctx, "Petroleos de Venezuela", models.EntityTypeOrganization)

	alias := &models.EntityAlias{
		EntityID:         entity.ID,
		Alias:            "PDVSA",
		NormalizedAlias:  "pdvsa",
		Source:           "reuters",
		ResolutionMethod: models.ResolutionProbabilistic,
		Confidence:       0.93,
	}

	got, err := tc.repo.CreateAlias(ctx, alias)
	if err != nil {
		t.Fatalf("CreateAlias failed: %v", err)
	}
	if got.ID == uuid.Nil {
		t.Fatal("expected alias ID to be assigned")
	}
	if got.EntityID != entity.ID {
		t.Errorf("expected entity %s, got %s", entity.ID, got.EntityID)
	}

	found, err := tc.repo.GetAliasBySourceForm(ctx, "pdvsa", "reuters")
	if err != nil {
		t.Fatalf("GetAliasBySourceForm failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected alias, got nil")
	}
	if found.ResolutionMethod != models.ResolutionProbabilistic {
		t.Errorf("expected probabilistic method, got %s", found.ResolutionMethod)
	}
}

func TestEntityRepository_CreateAlias_ConflictReturnsWinner(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	winner := tc.createTestEntity(ctx, "Petroleos de Venezuela", models.EntityTypeOrganization)
	loser := tc.createTestEntity(ctx, "PDV Holding", models.EntityTypeOrganization)

	first, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
		EntityID:         winner.ID,
		Alias:            "PDVSA",
		NormalizedAlias:  "pdvsa",
		Source:           "reuters",
		ResolutionMethod: models.ResolutionExact,
		Confidence:       1.0,
	})
	if err != nil {
		t.Fatalf("first CreateAlias failed: %v", err)
	}

	second, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
		EntityID:         loser.ID,
		Alias:            "pdvsa",
		NormalizedAlias:  "pdvsa",
		Source:           "reuters",
		ResolutionMethod: models.ResolutionEscalated,
		Confidence:       0.5,
	})
	if err != nil {
		t.Fatalf("conflicting CreateAlias failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected winning row id %s, got %s", first.ID, second.ID)
	}
	if second.EntityID != winner.ID {
		t.Errorf("expected winner entity %s, got %s", winner.ID, second.EntityID)
	}

	// Same form from a different source is a distinct binding, not a conflict.
	third, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
		EntityID:         loser.ID,
		Alias:            "PDVSA",
		NormalizedAlias:  "pdvsa",
		Source:           "afp",
		ResolutionMethod: models.ResolutionExact,
		Confidence:       1.0,
	})
	if err != nil {
		t.Fatalf("cross-source CreateAlias failed: %v", err)
	}
	if third.EntityID != loser.ID {
		t.Errorf("expected cross-source binding to entity %s, got %s", loser.ID, third.EntityID)
	}
}

func TestEntityRepository_GetAliasByNormalizedForm_EarliestWins(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	a := tc.createTestEntity(ctx, "Petroleos de Venezuela", models.EntityTypeOrganization)
	b := tc.createTestEntity(ctx, "PDV Holding", models.EntityTypeOrganization)

	if _, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
		EntityID: a.ID, Alias: "PDVSA", NormalizedAlias: "pdvsa", Source: "reuters",
		ResolutionMethod: models.ResolutionExact, Confidence: 1.0,
	}); err != nil {
		t.Fatalf("CreateAlias failed: %v", err)
	}
	if _, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
		EntityID: b.ID, Alias: "PDVSA", NormalizedAlias: "pdvsa", Source: "afp",
		ResolutionMethod: models.ResolutionExact, Confidence: 1.0,
	}); err != nil {
		t.Fatalf("CreateAlias failed: %v", err)
	}

	got, err := tc.repo.GetAliasByNormalizedForm(ctx, "pdvsa")
	if err != nil {
		t.Fatalf("GetAliasByNormalizedForm failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected alias, got nil")
	}
	if got.EntityID != a.ID {
		t.Errorf("expected earliest binding to entity %s, got %s", a.ID, got.EntityID)
	}

	missing, err := tc.repo.GetAliasByNormalizedForm(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetAliasByNormalizedForm failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown form, got %+v", missing)
	}
}

func TestEntityRepository_ListAliases(t *testing.T) {
	tc := setupEntityTest(t)
	ctx := context.Background()

	a := tc.createTestEntity(ctx, "Petroleos de Venezuela", models.EntityTypeOrganization)
	b := tc.createTestEntity(ctx, "Central Bank", models.EntityTypeGovernment)

	forms := []struct {
		entityID uuid.UUID
		alias    string
		norm     string
		source   string
	}{
		{a.ID, "PDVSA", "pdvsa", "reuters"},
		{a.ID, "Petroleos de Venezuela, S.A.", "petroleos de venezuela", "afp"},
		{b.ID, "BCV", "bcv", "reuters"},
	}
	for _, f := range forms {
		if _, err := tc.repo.CreateAlias(ctx, &models.EntityAlias{
			EntityID: f.entityID, Alias: f.alias, NormalizedAlias: f.norm, Source: f.source,
			ResolutionMethod: models.ResolutionExact, Confidence: 1.0,
		}); err != nil {
			t.Fatalf("CreateAlias failed: %v", err)
		}
	}

	byEntity, err := tc.repo.ListAliasesByEntity(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListAliasesByEntity failed: %v", err)
	}
	if len(byEntity) != 2 {
		t.Errorf("expected 2 aliases for entity, got %d", len(byEntity))
	}

	all, err := tc.repo.ListAllAliases(ctx)
	if err != nil {
		t.Fatalf("ListAllAliases failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 aliases total, got %d", len(all))
	}
}
