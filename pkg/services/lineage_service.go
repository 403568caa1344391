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

// maxDominantThemes caps how many theme categories a lineage reports.
const maxDominantThemes = 5

// LineageRequest bounds one lineage reconstruction.
type LineageRequest struct {
	EntityA uuid.UUID
	EntityB uuid.UUID
	From    time.Time
	To      time.Time
}

// LineageService reconstructs the chronological event chain connecting two
// entities.
type LineageService interface {
	// BuildLineage orders the events mentioning both entities inside
	// [From, To), annotates day gaps, flags escalation and extracts the
	// dominant themes. Fewer than two connecting events yield an empty
	// lineage, not an error. The ordering flags correlation only; it never
	// asserts causation.
	BuildLineage(ctx context.Context, req LineageRequest) (*models.Lineage, error)
}

type lineageService struct {
	eventRepo  repositories.EventRepository
	entityRepo repositories.EntityRepository
	narrator   NarrativeService
	cfg        config.LineageConfig
	logger     *zap.Logger
}

// NewLineageService creates a new LineageService. narrator may be nil when
// the narrative collaborator is disabled; lineages then carry no prose.
func NewLineageService(
	eventRepo repositories.EventRepository,
	entityRepo repositories.EntityRepository,
	narrator NarrativeService,
	cfg config.LineageConfig,
	logger *zap.Logger,
) LineageService {
	return &lineageService{
		eventRepo:  eventRepo,
		entityRepo: entityRepo,
		narrator:   narrator,
		cfg:        cfg,
		logger:     logger.Named("lineage"),
	}
}

var _ LineageService = (*lineageService)(nil)

func (s *lineageService) BuildLineage(ctx context.Context, req LineageRequest) (*models.Lineage, error) {
	if err := validateLineageRequest(req); err != nil {
		return nil, err
	}

	entityA, err := s.entityRepo.GetEntityByID(ctx, req.EntityA)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", req.EntityA, err)
	}
	if entityA == nil {
		return nil, fmt.Errorf("entity %s: %w", req.EntityA, apperrors.ErrNotFound)
	}
	entityB, err := s.entityRepo.GetEntityByID(ctx, req.EntityB)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", req.EntityB, err)
	}
	if entityB == nil {
		return nil, fmt.Errorf("entity %s: %w", req.EntityB, apperrors.ErrNotFound)
	}

	lineage := &models.Lineage{
		EntityA:        req.EntityA,
		EntityB:        req.EntityB,
		From:           req.From,
		To:             req.To,
		Events:         []models.LineageEvent{},
		DominantThemes: []models.ThemeCategory{},
	}

	count, err := s.eventRepo.CountSharedEvents(ctx, req.EntityA, req.EntityB, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count shared events: %w", err)
	}
	if count < 2 {
		return lineage, nil
	}

	events, err := s.eventRepo.ListEventsForEntities(ctx, req.EntityA, req.EntityB, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared events: %w", err)
	}
	if s.cfg.MaxEvents > 0 && len(events) > s.cfg.MaxEvents {
		s.logger.Warn("Lineage truncated",
			zap.String("entity_a", req.EntityA.String()),
			zap.String("entity_b", req.EntityB.String()),
			zap.Int("events", len(events)),
			zap.Int("max_events", s.cfg.MaxEvents))
		events = events[:s.cfg.MaxEvents]
	}

	lineage.Events = annotateLineageEvents(events)
	first := lineage.Events[0].RiskScore
	last := lineage.Events[len(lineage.Events)-1].RiskScore
	lineage.EscalationDetected = s.escalated(first, last)
	lineage.DominantThemes = dominantThemes(lineage.Events)

	s.composeNarrative(ctx, lineage, entityA.Name, entityB.Name)

	s.logger.Info("Built lineage",
		zap.String("entity_a", req.EntityA.String()),
		zap.String("entity_b", req.EntityB.String()),
		zap.Int("events", len(lineage.Events)),
		zap.Bool("escalation", lineage.EscalationDetected))

	return lineage, nil
}

func validateLineageRequest(req LineageRequest) error {
	if req.EntityA == uuid.Nil || req.EntityB == uuid.Nil {
		return fmt.Errorf("%w: both entity ids are required", apperrors.ErrInvalidInput)
	}
	if req.EntityA == req.EntityB {
		return fmt.Errorf("%w: entities must differ", apperrors.ErrInvalidInput)
	}
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return fmt.Errorf("%w: from must precede to", apperrors.ErrInvalidWindow)
	}
	return nil
}

// annotateLineageEvents maps stored events onto lineage entries with whole-day
// gaps. Events arrive chronologically; the first entry and same-day
// successors carry a zero gap, and gaps are never negative.
func annotateLineageEvents(events []*models.Event) []models.LineageEvent {
	out := make([]models.LineageEvent, 0, len(events))
	for i, e := range events {
		gap := 0
		if i > 0 {
			gap = int(e.OccurredAt.Sub(events[i-1].OccurredAt).Hours() / 24)
			if gap < 0 {
				gap = 0
			}
		}
		out = append(out, models.LineageEvent{
			EventID:       e.ID,
			Title:         e.Title,
			Source:        e.Source,
			OccurredAt:    e.OccurredAt,
			RiskScore:     e.RiskScore,
			Themes:        e.Themes,
			DaysSincePrev: gap,
		})
	}
	return out
}

// escalated reports whether risk reached the configured ratio between the
// first and last event: last ≥ first × 1.2 at the default threshold, so the
// exact +20% boundary escalates. The ratio form avoids the multiply
// rounding that puts 40 × 1.2 below 48 in float64. A rise from zero always
// escalates; flat zero never does.
func (s *lineageService) escalated(first, last float64) bool {
	if first == 0 {
		return last > 0
	}
	return last/first >= 1+s.cfg.EscalationThresholdPct/100
}

// dominantThemes returns the top categories by frequency across the
// lineage, ties broken alphabetically.
func dominantThemes(events []models.LineageEvent) []models.ThemeCategory {
	freq := make(map[models.ThemeCategory]int)
	for _, e := range events {
		for _, t := range e.Themes {
			freq[t]++
		}
	}

	categories := make([]models.ThemeCategory, 0, len(freq))
	for c := range freq {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if freq[categories[i]] != freq[categories[j]] {
			return freq[categories[i]] > freq[categories[j]]
		}
		return categories[i] < categories[j]
	})

	if len(categories) > maxDominantThemes {
		categories = categories[:maxDominantThemes]
	}
	return categories
}

// composeNarrative attaches collaborator prose when the narrator is
// configured. Failure leaves the lineage intact.
func (s *lineageService) composeNarrative(ctx context.Context, lineage *models.Lineage, nameA, nameB string) {
	if s.narrator == nil || len(lineage.Events) == 0 {
		return
	}

	narrative, err := s.narrator.ComposeNarrative(ctx, lineage, nameA, nameB)
	if err != nil {
		s.logger.Warn("Narrative composition failed",
			zap.String("entity_a", lineage.EntityA.String()),
			zap.String("entity_b", lineage.EntityB.String()),
			zap.Error(err))
		return
	}
	lineage.Narrative = &narrative
}
