package tools

import (
	"context"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// mockResolverService implements services.ResolverService for testing.
type mockResolverService struct {
	resolution  *models.Resolution
	err         error
	lastMention models.Mention
}

func (m *mockResolverService) Resolve(ctx context.Context, mention models.Mention) (*models.Resolution, error) {
	m.lastMention = mention
	if m.err != nil {
		return nil, m.err
	}
	return m.resolution, nil
}

func (m *mockResolverService) WarmIndex(ctx context.Context) error { return nil }

func (m *mockResolverService) Comparisons() int64 { return 0 }

// mockGraphService implements services.GraphService for testing.
type mockGraphService struct {
	graph   *models.EntityGraph
	err     error
	lastReq services.GraphRequest
}

func (m *mockGraphService) BuildGraph(ctx context.Context, req services.GraphRequest) (*models.EntityGraph, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.graph, nil
}

// mockLineageService implements services.LineageService for testing.
type mockLineageService struct {
	lineage *models.Lineage
	err     error
	lastReq services.LineageRequest
}

func (m *mockLineageService) BuildLineage(ctx context.Context, req services.LineageRequest) (*models.Lineage, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.lineage, nil
}
