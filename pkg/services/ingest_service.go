package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/hygiene"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/repositories"
	"github.com/venezuelawatch/entity-engine/pkg/themes"
)

// riskSmoothing is the weight a new event's risk carries when folded into a
// mentioned entity's running risk score.
const riskSmoothing = 0.3

// IngestService turns raw feed events into stored events with normalized
// themes and resolved entity mentions.
type IngestService interface {
	// IngestEvent validates, audits, tags, resolves and persists one raw
	// event. Mention resolution runs concurrently with bounded parallelism;
	// the event, its themes and its mentions land in one transaction.
	IngestEvent(ctx context.Context, raw *models.RawEvent) (*models.Event, error)

	// HygieneReport returns the cumulative injection-pattern counts seen in
	// ingest payloads.
	HygieneReport() (sqli, xss int64)
}

type ingestService struct {
	eventRepo      repositories.EventRepository
	entityRepo     repositories.EntityRepository
	resolver       ResolverService
	themeExtractor ThemeExtractionService
	normalizer     *themes.Normalizer
	auditor        *hygiene.Auditor
	cfg            config.IngestConfig
	logger         *zap.Logger
}

// NewIngestService creates a new IngestService. themeExtractor may be nil
// when the extraction collaborator is disabled; untagged events then land
// in the "other" category.
func NewIngestService(
	eventRepo repositories.EventRepository,
	entityRepo repositories.EntityRepository,
	resolver ResolverService,
	themeExtractor ThemeExtractionService,
	normalizer *themes.Normalizer,
	cfg config.IngestConfig,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		eventRepo:      eventRepo,
		entityRepo:     entityRepo,
		resolver:       resolver,
		themeExtractor: themeExtractor,
		normalizer:     normalizer,
		auditor:        hygiene.NewAuditor(),
		cfg:            cfg,
		logger:         logger.Named("ingest"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) IngestEvent(ctx context.Context, raw *models.RawEvent) (*models.Event, error) {
	if err := s.validate(raw); err != nil {
		return nil, err
	}

	s.audit(raw)

	categories := s.resolveThemes(ctx, raw)

	mentions, err := s.resolveMentions(ctx, raw)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:      strings.TrimSpace(raw.Title),
		Body:       raw.Body,
		Source:     raw.Source,
		OccurredAt: raw.OccurredAt,
		RiskScore:  raw.RiskScore,
		Themes:     categories,
		Mentions:   mentions,
	}
	if err := s.eventRepo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to persist event: %w", err)
	}

	s.updateEntityRisk(ctx, event)

	s.logger.Info("Ingested event",
		zap.String("event_id", event.ID.String()),
		zap.String("source", event.Source),
		zap.Int("mentions", len(event.Mentions)),
		zap.Int("themes", len(event.Themes)))
	return event, nil
}

func (s *ingestService) HygieneReport() (sqli, xss int64) {
	return s.auditor.SQLiHits(), s.auditor.XSSHits()
}

func (s *ingestService) validate(raw *models.RawEvent) error {
	if raw == nil {
		return fmt.Errorf("%w: event is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(raw.Title) == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(raw.Source) == "" {
		return fmt.Errorf("%w: source is required", apperrors.ErrInvalidInput)
	}
	if raw.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", apperrors.ErrInvalidInput)
	}
	if raw.RiskScore < 0 || raw.RiskScore > 100 {
		return fmt.Errorf("%w: risk score must be in [0, 100]", apperrors.ErrInvalidInput)
	}
	for i, m := range raw.Mentions {
		if strings.TrimSpace(m.Text) == "" {
			return fmt.Errorf("%w (mention %d)", apperrors.ErrEmptyMention, i)
		}
		if _, ok := models.ParseEntityType(m.EntityType); !ok {
			return fmt.Errorf("%w: %q (mention %d)", apperrors.ErrUnknownEntityType, m.EntityType, i)
		}
	}
	return nil
}

// audit runs the injection checks over every free-text field. Findings are
// telemetry; ingestion always proceeds because queries bind every
// parameter.
func (s *ingestService) audit(raw *models.RawEvent) {
	log := func(findings []hygiene.Finding) {
		for _, f := range findings {
			s.logger.Warn("Hygiene finding in ingest payload",
				zap.String("field", f.Field),
				zap.String("kind", f.Kind),
				zap.String("fingerprint", f.Fingerprint),
				zap.String("source", raw.Source))
		}
	}

	log(s.auditor.Check("title", raw.Title))
	log(s.auditor.Check("body", raw.Body))
	for _, m := range raw.Mentions {
		log(s.auditor.Check("mention", m.Text))
	}
}

// resolveThemes normalizes supplied tags, or asks the extraction
// collaborator when the event arrived untagged. Collaborator failures
// degrade to the "other" category.
func (s *ingestService) resolveThemes(ctx context.Context, raw *models.RawEvent) []models.ThemeCategory {
	if len(raw.Themes) > 0 {
		return s.normalizer.NormalizeAll(raw.Themes)
	}

	if s.themeExtractor != nil {
		categories, err := s.themeExtractor.ExtractThemes(ctx, raw.Title, raw.Body)
		if err == nil && len(categories) > 0 {
			return categories
		}
		if err != nil {
			s.logger.Warn("Theme extraction failed, tagging as other",
				zap.String("title", raw.Title),
				zap.Error(err))
		}
	}

	return []models.ThemeCategory{models.ThemeOther}
}

// resolveMentions resolves every raw mention through the entity resolver
// with bounded parallelism. Two surface forms can land on one entity; the
// first mention wins, matching the stored (event_id, entity_id) uniqueness.
func (s *ingestService) resolveMentions(ctx context.Context, raw *models.RawEvent) ([]models.EventMention, error) {
	if len(raw.Mentions) == 0 {
		return nil, nil
	}

	parallelism := s.cfg.MentionParallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	resolutions := make([]*models.Resolution, len(raw.Mentions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, m := range raw.Mentions {
		g.Go(func() error {
			entityType, _ := models.ParseEntityType(m.EntityType)
			resolution, err := s.resolver.Resolve(gctx, models.Mention{
				Text:        m.Text,
				EntityType:  entityType,
				CountryCode: m.CountryCode,
				Source:      raw.Source,
			})
			if err != nil {
				return fmt.Errorf("failed to resolve mention %q: %w", m.Text, err)
			}
			resolutions[i] = resolution
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(resolutions))
	mentions := make([]models.EventMention, 0, len(resolutions))
	for i, r := range resolutions {
		if seen[r.Entity.ID] {
			continue
		}
		seen[r.Entity.ID] = true
		mentions = append(mentions, models.EventMention{
			EntityID:   r.Entity.ID,
			Mention:    strings.TrimSpace(raw.Mentions[i].Text),
			Confidence: r.Confidence,
		})
	}
	return mentions, nil
}

// updateEntityRisk folds the event's risk into each mentioned entity's
// running score. A first observation sets the level; later ones smooth
// toward the event. Failures are logged, never fatal: the stored event is
// the source of truth and scores are derived.
func (s *ingestService) updateEntityRisk(ctx context.Context, event *models.Event) {
	for _, m := range event.Mentions {
		entity, err := s.entityRepo.GetEntityByID(ctx, m.EntityID)
		if err != nil || entity == nil {
			s.logger.Warn("Skipping risk update",
				zap.String("entity_id", m.EntityID.String()),
				zap.Error(err))
			continue
		}

		risk := entity.RiskScore
		if risk == 0 {
			risk = event.RiskScore
		} else {
			risk = (1-riskSmoothing)*risk + riskSmoothing*event.RiskScore
		}
		if err := s.entityRepo.UpdateRiskScore(ctx, entity.ID, risk); err != nil {
			s.logger.Warn("Failed to update entity risk",
				zap.String("entity_id", entity.ID.String()),
				zap.Error(err))
		}
	}
}
