package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/jsonutil"
	"github.com/venezuelawatch/entity-engine/pkg/llm"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/prompts"
)

// ScoredCandidate pairs a canonical entity with its match score and known
// surface forms for escalation decisions.
type ScoredCandidate struct {
	Entity  *models.CanonicalEntity
	Aliases []string
	Score   float64
}

// DisambiguationPick is the collaborator's choice among candidates.
type DisambiguationPick struct {
	EntityID   uuid.UUID
	Confidence float64
	Reasoning  string
}

// DisambiguationService consults the disambiguation collaborator when the
// matcher cannot separate the top candidates on score alone.
type DisambiguationService interface {
	// PickCandidate returns the collaborator's pick, or nil with nil error
	// when the collaborator judged the mention a new entity.
	PickCandidate(ctx context.Context, mention models.Mention, candidates []ScoredCandidate) (*DisambiguationPick, error)
}

type disambiguationService struct {
	guard  *collaboratorGuard
	logger *zap.Logger
}

// NewDisambiguationService creates a new DisambiguationService backed by
// the given collaborator client.
func NewDisambiguationService(client llm.Client, cfg config.LLMConfig, logger *zap.Logger) DisambiguationService {
	log := logger.Named("disambiguation")
	return &disambiguationService{
		guard:  newCollaboratorGuard(client, cfg, log),
		logger: log,
	}
}

var _ DisambiguationService = (*disambiguationService)(nil)

// disambiguationResponse tolerates providers returning the confidence as a
// string or a number, and the entity id as null.
type disambiguationResponse struct {
	EntityID   json.RawMessage `json:"entity_id"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

func (s *disambiguationService) PickCandidate(ctx context.Context, mention models.Mention, candidates []ScoredCandidate) (*DisambiguationPick, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	mc := prompts.MentionContext{
		Text:       mention.Text,
		EntityType: string(mention.EntityType),
		Source:     mention.Source,
	}
	if mention.CountryCode != nil {
		mc.CountryCode = *mention.CountryCode
	}

	ccs := make([]prompts.CandidateContext, 0, len(candidates))
	for _, c := range candidates {
		cc := prompts.CandidateContext{
			ID:         c.Entity.ID.String(),
			Name:       c.Entity.Name,
			EntityType: string(c.Entity.EntityType),
			Aliases:    c.Aliases,
			Score:      c.Score,
		}
		if c.Entity.CountryCode != nil {
			cc.CountryCode = *c.Entity.CountryCode
		}
		ccs = append(ccs, cc)
	}

	prompt := prompts.BuildDisambiguationPrompt(mc, ccs)
	raw, err := s.guard.generate(ctx, prompt, prompts.BuildDisambiguationSystemMessage(), extractionTemperature)
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[disambiguationResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse disambiguation response: %w", err)
	}

	idStr := jsonutil.FlexibleStringValue(parsed.EntityID)
	if idStr == "" || strings.EqualFold(idStr, "none") {
		s.logger.Debug("Collaborator picked no candidate",
			zap.String("mention", mention.Text))
		return nil, nil
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("disambiguation returned invalid entity id %q", idStr)
	}

	confidence := 0.0
	if cs := jsonutil.FlexibleStringValue(parsed.Confidence); cs != "" {
		if v, err := strconv.ParseFloat(cs, 64); err == nil {
			confidence = v
		}
	}

	s.logger.Debug("Collaborator picked candidate",
		zap.String("mention", mention.Text),
		zap.String("entity_id", id.String()),
		zap.Float64("confidence", confidence))

	return &DisambiguationPick{
		EntityID:   id,
		Confidence: confidence,
		Reasoning:  parsed.Reasoning,
	}, nil
}
