package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/repositories"
)

// GraphRequest bounds one co-occurrence graph build. MinCooccurrence zero
// means the configured default; Categories empty means all events.
type GraphRequest struct {
	From            time.Time
	To              time.Time
	MinCooccurrence int
	Categories      []models.ThemeCategory
}

// GraphService assembles the entity co-occurrence graph.
type GraphService interface {
	// BuildGraph counts pairwise co-mentions over events in [From, To),
	// keeps pairs meeting the co-occurrence floor, and partitions the
	// surviving graph into risk-ranked communities. The category filter is
	// applied before counting. Empty windows and floors nothing clears
	// yield an empty graph, not an error.
	BuildGraph(ctx context.Context, req GraphRequest) (*models.EntityGraph, error)
}

type graphService struct {
	eventRepo  repositories.EventRepository
	entityRepo repositories.EntityRepository
	detector   CommunityDetector
	cfg        config.GraphConfig
	logger     *zap.Logger
}

// NewGraphService creates a new GraphService.
func NewGraphService(
	eventRepo repositories.EventRepository,
	entityRepo repositories.EntityRepository,
	detector CommunityDetector,
	cfg config.GraphConfig,
	logger *zap.Logger,
) GraphService {
	return &graphService{
		eventRepo:  eventRepo,
		entityRepo: entityRepo,
		detector:   detector,
		cfg:        cfg,
		logger:     logger.Named("graph"),
	}
}

var _ GraphService = (*graphService)(nil)

// pairKey is an unordered entity pair, canonicalized smaller uuid first.
type pairKey struct {
	a, b uuid.UUID
}

func makePairKey(x, y uuid.UUID) pairKey {
	if x.String() < y.String() {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}

func (s *graphService) BuildGraph(ctx context.Context, req GraphRequest) (*models.EntityGraph, error) {
	floor, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	g := &models.EntityGraph{
		From:            req.From,
		To:              req.To,
		MinCooccurrence: floor,
		Categories:      req.Categories,
		Nodes:           []models.GraphNode{},
		Edges:           []models.GraphEdge{},
	}

	events, err := s.eventRepo.ListEventsInWindow(ctx, req.From, req.To, req.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		return g, nil
	}

	eventIDs := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}
	mentionsByEvent, err := s.eventRepo.ListMentionsByEvents(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}

	counts := make(map[pairKey]int)
	for _, e := range events {
		mentions := mentionsByEvent[e.ID]
		if len(mentions) < 2 {
			continue
		}
		for i := 0; i < len(mentions); i++ {
			for j := i + 1; j < len(mentions); j++ {
				counts[makePairKey(mentions[i].EntityID, mentions[j].EntityID)]++
			}
		}
	}

	edges := make([]models.GraphEdge, 0, len(counts))
	for k, c := range counts {
		if c >= floor {
			edges = append(edges, models.GraphEdge{Source: k.a, Target: k.b, Weight: c})
		}
	}
	if len(edges) == 0 {
		return g, nil
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source.String() < edges[j].Source.String()
		}
		return edges[i].Target.String() < edges[j].Target.String()
	})

	degree := make(map[uuid.UUID]int)
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}
	nodeIDs := make([]uuid.UUID, 0, len(degree))
	for id := range degree {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i].String() < nodeIDs[j].String() })

	entities, err := s.entityRepo.GetEntitiesByIDs(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph entities: %w", err)
	}
	nodes := make([]models.GraphNode, 0, len(entities))
	for _, e := range entities {
		nodes = append(nodes, models.GraphNode{
			EntityID:   e.ID,
			Name:       e.Name,
			EntityType: e.EntityType,
			RiskScore:  e.RiskScore,
			Degree:     degree[e.ID],
		})
	}

	g.Nodes = nodes
	g.Edges = edges

	communities, err := s.detector.Detect(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to detect communities: %w", err)
	}
	if len(communities) > 0 {
		g.Communities = communities
		highRisk := communities[0].ID
		g.HighRiskClusterID = &highRisk
	}

	s.logger.Info("Built co-occurrence graph",
		zap.Time("from", req.From),
		zap.Time("to", req.To),
		zap.Int("min_cooccurrence", floor),
		zap.Int("events", len(events)),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Int("communities", len(communities)))

	return g, nil
}

// validate rejects malformed requests and settles the co-occurrence floor.
func (s *graphService) validate(req GraphRequest) (int, error) {
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return 0, fmt.Errorf("%w: from must precede to", apperrors.ErrInvalidWindow)
	}
	if s.cfg.MaxWindowDays > 0 && req.To.Sub(req.From) > time.Duration(s.cfg.MaxWindowDays)*24*time.Hour {
		return 0, fmt.Errorf("%w: window wider than %d days", apperrors.ErrInvalidWindow, s.cfg.MaxWindowDays)
	}
	if req.MinCooccurrence < 0 {
		return 0, fmt.Errorf("%w: min_cooccurrence must be non-negative", apperrors.ErrInvalidInput)
	}
	for _, c := range req.Categories {
		if !models.IsValidThemeCategory(c) {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownThemeCategory, string(c))
		}
	}

	floor := req.MinCooccurrence
	if floor == 0 {
		floor = s.cfg.MinCooccurrence
	}
	if floor <= 0 {
		floor = 1
	}
	return floor, nil
}
