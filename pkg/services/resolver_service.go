package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/matching"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/repositories"
)

// warmPageSize is the registry page size used when rebuilding the
// candidate index at startup.
const warmPageSize = 500

// maxDisambiguationCandidates caps how many candidates are handed to the
// disambiguation collaborator.
const maxDisambiguationCandidates = 5

// ResolverService collapses raw name-strings from event feeds into the
// canonical entity registry.
type ResolverService interface {
	// Resolve maps one mention to a canonical entity. Tier 1 looks the
	// normalized form up in the alias registry; tier 2 scores blocked
	// candidates and binds the best one above the match threshold; tier 3
	// escalates, either consulting the disambiguation collaborator or
	// minting a new entity. Resolving the same mention twice returns the
	// same entity with no new writes.
	Resolve(ctx context.Context, mention models.Mention) (*models.Resolution, error)

	// WarmIndex rebuilds the in-memory candidate index from the registry.
	// Call once at startup before serving resolutions.
	WarmIndex(ctx context.Context) error

	// Comparisons reports the cumulative number of candidate comparisons
	// tier 2 has performed, for observing blocking effectiveness.
	Comparisons() int64
}

type resolverService struct {
	entityRepo    repositories.EntityRepository
	disambiguator DisambiguationService
	index         *matching.Index
	scorer        *matching.Scorer
	cfg           config.ResolverConfig
	logger        *zap.Logger
}

// NewResolverService creates a new ResolverService. disambiguator may be
// nil when no disambiguation collaborator is configured; ambiguous mentions
// then fall through to creation.
func NewResolverService(
	entityRepo repositories.EntityRepository,
	disambiguator DisambiguationService,
	cfg config.ResolverConfig,
	logger *zap.Logger,
) ResolverService {
	return &resolverService{
		entityRepo:    entityRepo,
		disambiguator: disambiguator,
		index:         matching.NewIndex(),
		scorer:        matching.NewScorer(),
		cfg:           cfg,
		logger:        logger.Named("resolver"),
	}
}

var _ ResolverService = (*resolverService)(nil)

// scoredCandidate pairs an indexed entity with its match score for one
// mention.
type scoredCandidate struct {
	Entity matching.IndexedEntity
	Score  float64
}

// indexForms returns a surface form's normalized variants: the suffix-
// dropped registry form plus, when it differs, the suffix-retaining form.
// Acronym blocking needs the legal-form letters ("pdvsa" keeps its "sa").
func indexForms(raw string) []string {
	name := matching.NormalizeName(raw)
	full := matching.Normalize(raw)
	if full == name {
		return []string{name}
	}
	return []string{name, full}
}

func (s *resolverService) Resolve(ctx context.Context, mention models.Mention) (*models.Resolution, error) {
	text := strings.TrimSpace(mention.Text)
	if text == "" {
		return nil, apperrors.ErrEmptyMention
	}
	if !models.IsValidEntityType(mention.EntityType) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEntityType, string(mention.EntityType))
	}
	if strings.TrimSpace(mention.Source) == "" {
		return nil, fmt.Errorf("%w: source is required", apperrors.ErrInvalidInput)
	}
	if mention.CountryCode != nil && len(*mention.CountryCode) != 2 {
		return nil, fmt.Errorf("%w: country code must be ISO 3166-1 alpha-2", apperrors.ErrInvalidInput)
	}

	normalized := matching.NormalizeName(text)
	if normalized == "" {
		return nil, apperrors.ErrEmptyMention
	}

	// Tier 1: exact registry lookup, no writes.
	resolution, err := s.resolveExact(ctx, normalized, mention.Source)
	if err != nil || resolution != nil {
		return resolution, err
	}

	// Tier 2: blocked probabilistic matching.
	subject := matching.Subject{
		Normalized:  normalized,
		EntityType:  mention.EntityType,
		CountryCode: mention.CountryCode,
	}
	ranked := s.rankCandidates(subject)

	if len(ranked) > 0 && ranked[0].Score >= s.cfg.MatchThreshold {
		return s.bindProbabilistic(ctx, mention, normalized, ranked[0])
	}

	// Tier 3: escalation.
	return s.escalate(ctx, mention, normalized, ranked)
}

func (s *resolverService) WarmIndex(ctx context.Context) error {
	start := time.Now()

	aliases, err := s.entityRepo.ListAllAliases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list aliases: %w", err)
	}
	aliasesByEntity := make(map[uuid.UUID][]string, len(aliases))
	for _, a := range aliases {
		aliasesByEntity[a.EntityID] = append(aliasesByEntity[a.EntityID], indexForms(a.Alias)...)
	}

	total := 0
	for offset := 0; ; offset += warmPageSize {
		entities, err := s.entityRepo.ListEntities(ctx, warmPageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list entities: %w", err)
		}
		for _, e := range entities {
			name := matching.NormalizeName(e.Name)
			forms := append(indexForms(e.Name), aliasesByEntity[e.ID]...)
			s.index.Upsert(matching.IndexedEntity{
				ID:          e.ID,
				Name:        name,
				EntityType:  e.EntityType,
				CountryCode: e.CountryCode,
				RiskScore:   e.RiskScore,
				Forms:       forms,
			})
		}
		total += len(entities)
		if len(entities) < warmPageSize {
			break
		}
	}

	s.logger.Info("Warmed candidate index",
		zap.Int("entities", total),
		zap.Int("aliases", len(aliases)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *resolverService) Comparisons() int64 {
	return s.index.Comparisons()
}

// resolveExact is tier 1: look the normalized form up by (form, source)
// first, then by form alone. Returns nil, nil on a miss.
func (s *resolverService) resolveExact(ctx context.Context, normalized, source string) (*models.Resolution, error) {
	alias, err := s.entityRepo.GetAliasBySourceForm(ctx, normalized, source)
	if err != nil {
		return nil, fmt.Errorf("failed to look up alias: %w", err)
	}
	if alias == nil {
		alias, err = s.entityRepo.GetAliasByNormalizedForm(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to look up alias: %w", err)
		}
	}
	if alias == nil {
		return nil, nil
	}

	entity, err := s.entityRepo.GetEntityByID(ctx, alias.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", alias.EntityID, err)
	}
	if entity == nil {
		return nil, fmt.Errorf("alias %q points at missing entity %s", alias.Alias, alias.EntityID)
	}

	s.logger.Debug("Resolved mention exactly",
		zap.String("normalized", normalized),
		zap.String("entity_id", entity.ID.String()))

	return &models.Resolution{
		Entity:     entity,
		Method:     models.ResolutionExact,
		Confidence: 1.0,
	}, nil
}

// rankCandidates scores every blocked candidate and orders them best-first,
// ties broken by entity id so ranking is deterministic.
func (s *resolverService) rankCandidates(subject matching.Subject) []scoredCandidate {
	candidates := s.index.Candidates(subject.Normalized)
	if s.cfg.MaxCandidates > 0 && len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	ranked := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scoredCandidate{Entity: c, Score: s.scorer.Score(subject, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Entity.ID.String() < ranked[j].Entity.ID.String()
	})
	return ranked
}

func (s *resolverService) bindProbabilistic(ctx context.Context, mention models.Mention, normalized string, best scoredCandidate) (*models.Resolution, error) {
	bound, err := s.bindAlias(ctx, best.Entity.ID, mention, normalized, models.ResolutionProbabilistic, best.Score)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Resolved mention probabilistically",
		zap.String("mention", mention.Text),
		zap.String("entity_id", bound.EntityID.String()),
		zap.Float64("score", best.Score))

	return s.resolutionFromBinding(ctx, bound, false)
}

// escalate is tier 3: no candidate cleared the threshold. Ambiguous
// mentions may be put to the disambiguation collaborator; everything else,
// and every collaborator failure, falls through to creating a new entity.
func (s *resolverService) escalate(ctx context.Context, mention models.Mention, normalized string, ranked []scoredCandidate) (*models.Resolution, error) {
	if s.shouldDisambiguate(ranked) {
		resolution, err := s.disambiguate(ctx, mention, normalized, ranked)
		if err != nil {
			s.logger.Warn("Disambiguation failed, creating new entity",
				zap.String("mention", mention.Text),
				zap.Error(err))
		} else if resolution != nil {
			return resolution, nil
		}
	}
	return s.createEntity(ctx, mention, normalized)
}

// shouldDisambiguate reports whether the top candidates are too close to
// call: within the ambiguity margin of each other, with the best within one
// margin below the match threshold.
func (s *resolverService) shouldDisambiguate(ranked []scoredCandidate) bool {
	if s.cfg.EscalationMode != config.EscalationDisambiguate || s.disambiguator == nil {
		return false
	}
	if len(ranked) < 2 {
		return false
	}
	top, second := ranked[0].Score, ranked[1].Score
	return top >= s.cfg.MatchThreshold-s.cfg.AmbiguityMargin && top-second <= s.cfg.AmbiguityMargin
}

func (s *resolverService) disambiguate(ctx context.Context, mention models.Mention, normalized string, ranked []scoredCandidate) (*models.Resolution, error) {
	candidates, err := s.loadCandidates(ctx, ranked)
	if err != nil {
		return nil, err
	}

	pick, err := s.disambiguator.PickCandidate(ctx, mention, candidates)
	if err != nil {
		return nil, err
	}
	if pick == nil {
		// The collaborator judged the mention a new entity.
		return nil, nil
	}

	score := 0.0
	found := false
	for _, c := range ranked {
		if c.Entity.ID == pick.EntityID {
			score = c.Score
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: collaborator picked unknown entity %s", apperrors.ErrAmbiguousMatch, pick.EntityID)
	}

	bound, err := s.bindAlias(ctx, pick.EntityID, mention, normalized, models.ResolutionEscalated, score)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Resolved mention via disambiguation",
		zap.String("mention", mention.Text),
		zap.String("entity_id", bound.EntityID.String()),
		zap.Float64("score", score))

	return s.resolutionFromBinding(ctx, bound, false)
}

// loadCandidates hydrates the ambiguous head of the ranked list with
// display names and known aliases for the disambiguation prompt. The head
// is every candidate within the ambiguity margin of the best, capped.
func (s *resolverService) loadCandidates(ctx context.Context, ranked []scoredCandidate) ([]ScoredCandidate, error) {
	n := 1
	for n < len(ranked) && n < maxDisambiguationCandidates && ranked[0].Score-ranked[n].Score <= s.cfg.AmbiguityMargin {
		n++
	}

	ids := make([]uuid.UUID, 0, n)
	for _, c := range ranked[:n] {
		ids = append(ids, c.Entity.ID)
	}
	entities, err := s.entityRepo.GetEntitiesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	byID := make(map[uuid.UUID]*models.CanonicalEntity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	out := make([]ScoredCandidate, 0, n)
	for _, c := range ranked[:n] {
		entity := byID[c.Entity.ID]
		if entity == nil {
			continue
		}
		aliases, err := s.entityRepo.ListAliasesByEntity(ctx, entity.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load aliases for %s: %w", entity.ID, err)
		}
		forms := make([]string, 0, len(aliases))
		for _, a := range aliases {
			forms = append(forms, a.Alias)
		}
		out = append(out, ScoredCandidate{Entity: entity, Aliases: forms, Score: c.Score})
	}
	return out, nil
}

func (s *resolverService) createEntity(ctx context.Context, mention models.Mention, normalized string) (*models.Resolution, error) {
	entity := &models.CanonicalEntity{
		Name:        strings.TrimSpace(mention.Text),
		EntityType:  mention.EntityType,
		CountryCode: mention.CountryCode,
	}
	if err := s.entityRepo.CreateEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	bound, err := s.bindAlias(ctx, entity.ID, mention, normalized, models.ResolutionEscalated, 1.0)
	if err != nil {
		return nil, err
	}
	if bound.EntityID != entity.ID {
		// A concurrent resolver minted the entity first. Ours stays
		// unreferenced; the winner's record is adopted.
		return s.resolutionFromBinding(ctx, bound, false)
	}

	s.index.Upsert(matching.IndexedEntity{
		ID:          entity.ID,
		Name:        normalized,
		EntityType:  entity.EntityType,
		CountryCode: entity.CountryCode,
		RiskScore:   entity.RiskScore,
		Forms:       indexForms(entity.Name),
	})

	s.logger.Info("Created canonical entity",
		zap.String("entity_id", entity.ID.String()),
		zap.String("name", entity.Name),
		zap.String("entity_type", string(entity.EntityType)))

	return &models.Resolution{
		Entity:     entity,
		Method:     models.ResolutionEscalated,
		Confidence: 1.0,
		Created:    true,
	}, nil
}

// bindAlias registers the (normalized, source) binding. When a concurrent
// writer already bound the pair, the stored winning row comes back in place
// of ours; either way the index learns the form.
func (s *resolverService) bindAlias(ctx context.Context, entityID uuid.UUID, mention models.Mention, normalized string, method models.ResolutionMethod, confidence float64) (*models.EntityAlias, error) {
	alias := &models.EntityAlias{
		EntityID:         entityID,
		Alias:            strings.TrimSpace(mention.Text),
		NormalizedAlias:  normalized,
		Source:           mention.Source,
		ResolutionMethod: method,
		Confidence:       confidence,
	}

	bound, err := s.entityRepo.CreateAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to bind alias %q: %w", normalized, err)
	}

	if bound.EntityID != entityID {
		s.logger.Info("Lost alias race, adopting winner",
			zap.String("normalized", normalized),
			zap.String("source", mention.Source),
			zap.String("intended_entity", entityID.String()),
			zap.String("winning_entity", bound.EntityID.String()))
	}
	for _, form := range indexForms(alias.Alias) {
		s.index.AddForm(bound.EntityID, form)
	}

	return bound, nil
}

// resolutionFromBinding builds the resolution from the alias row actually
// stored, which after a lost race is the winner's row with the winner's
// method and confidence.
func (s *resolverService) resolutionFromBinding(ctx context.Context, bound *models.EntityAlias, created bool) (*models.Resolution, error) {
	entity, err := s.entityRepo.GetEntityByID(ctx, bound.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", bound.EntityID, err)
	}
	if entity == nil {
		return nil, fmt.Errorf("alias %q points at missing entity %s", bound.NormalizedAlias, bound.EntityID)
	}
	return &models.Resolution{
		Entity:     entity,
		Method:     bound.ResolutionMethod,
		Confidence: bound.Confidence,
		Created:    created,
	}, nil
}
