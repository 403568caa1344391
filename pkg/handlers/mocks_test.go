package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// mockResolverService is a configurable resolver for handler tests.
type mockResolverService struct {
	resolution  *models.Resolution
	err         error
	lastMention models.Mention
}

func (m *mockResolverService) Resolve(_ context.Context, mention models.Mention) (*models.Resolution, error) {
	m.lastMention = mention
	if m.err != nil {
		return nil, m.err
	}
	return m.resolution, nil
}

func (m *mockResolverService) WarmIndex(_ context.Context) error { return nil }

func (m *mockResolverService) Comparisons() int64 { return 0 }

// mockIngestService is a configurable ingest pipeline for handler tests.
type mockIngestService struct {
	event   *models.Event
	err     error
	lastRaw *models.RawEvent
	sqli    int64
	xss     int64
}

func (m *mockIngestService) IngestEvent(_ context.Context, raw *models.RawEvent) (*models.Event, error) {
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return m.event, nil
}

func (m *mockIngestService) HygieneReport() (int64, int64) { return m.sqli, m.xss }

// mockGraphService is a configurable graph builder for handler tests.
type mockGraphService struct {
	graph   *models.EntityGraph
	err     error
	lastReq services.GraphRequest
}

func (m *mockGraphService) BuildGraph(_ context.Context, req services.GraphRequest) (*models.EntityGraph, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.graph, nil
}

// mockLineageService is a configurable lineage builder for handler tests.
type mockLineageService struct {
	lineage *models.Lineage
	err     error
	lastReq services.LineageRequest
}

func (m *mockLineageService) BuildLineage(_ context.Context, req services.LineageRequest) (*models.Lineage, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.lineage, nil
}

// mockRegistry is a configurable EntityRepository for handler tests. Only
// the read paths handlers exercise carry behavior.
type mockRegistry struct {
	entity   *models.CanonicalEntity
	entities []*models.CanonicalEntity
	aliases  []*models.EntityAlias
	getErr   error
	listErr  error
}

func (m *mockRegistry) CreateEntity(_ context.Context, _ *models.CanonicalEntity) error { return nil }

func (m *mockRegistry) GetEntityByID(_ context.Context, _ uuid.UUID) (*models.CanonicalEntity, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entity, nil
}

func (m *mockRegistry) GetEntitiesByIDs(_ context.Context, _ []uuid.UUID) ([]*models.CanonicalEntity, error) {
	return m.entities, nil
}

func (m *mockRegistry) ListEntities(_ context.Context, _, _ int) ([]*models.CanonicalEntity, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entities, nil
}

func (m *mockRegistry) UpdateRiskScore(_ context.Context, _ uuid.UUID, _ float64) error { return nil }

func (m *mockRegistry) CreateAlias(_ context.Context, alias *models.EntityAlias) (*models.EntityAlias, error) {
	return alias, nil
}

func (m *mockRegistry) GetAliasBySourceForm(_ context.Context, _, _ string) (*models.EntityAlias, error) {
	return nil, nil
}

func (m *mockRegistry) GetAliasByNormalizedForm(_ context.Context, _ string) (*models.EntityAlias, error) {
	return nil, nil
}

func (m *mockRegistry) ListAliasesByEntity(_ context.Context, _ uuid.UUID) ([]*models.EntityAlias, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.aliases, nil
}

func (m *mockRegistry) ListAllAliases(_ context.Context) ([]*models.EntityAlias, error) {
	return m.aliases, nil
}

// mockPinger simulates the database health probe.
type mockPinger struct {
	err error
}

func (m *mockPinger) Health(_ context.Context) error { return m.err }
