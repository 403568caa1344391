package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/llm"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/prompts"
)

// NarrativeService turns a lineage into collaborator prose. The text is
// opaque: it is attached to the response as-is and never interpreted.
type NarrativeService interface {
	ComposeNarrative(ctx context.Context, lineage *models.Lineage, entityA, entityB string) (string, error)
}

type narrativeService struct {
	guard  *collaboratorGuard
	logger *zap.Logger
}

// NewNarrativeService creates a new NarrativeService backed by the given
// collaborator client.
func NewNarrativeService(client llm.Client, cfg config.LLMConfig, logger *zap.Logger) NarrativeService {
	log := logger.Named("narrative")
	return &narrativeService{
		guard:  newCollaboratorGuard(client, cfg, log),
		logger: log,
	}
}

var _ NarrativeService = (*narrativeService)(nil)

func (s *narrativeService) ComposeNarrative(ctx context.Context, lineage *models.Lineage, entityA, entityB string) (string, error) {
	if lineage == nil || len(lineage.Events) == 0 {
		return "", fmt.Errorf("lineage carries no events")
	}

	events := make([]prompts.NarrativeEvent, 0, len(lineage.Events))
	for _, e := range lineage.Events {
		themes := make([]string, 0, len(e.Themes))
		for _, t := range e.Themes {
			themes = append(themes, string(t))
		}
		events = append(events, prompts.NarrativeEvent{
			Title:         e.Title,
			Source:        e.Source,
			OccurredAt:    e.OccurredAt.Format("2006-01-02"),
			RiskScore:     e.RiskScore,
			Themes:        themes,
			DaysSincePrev: e.DaysSincePrev,
		})
	}

	prompt := prompts.BuildNarrativePrompt(entityA, entityB, events, lineage.EscalationDetected)
	raw, err := s.guard.generate(ctx, prompt, prompts.BuildNarrativeSystemMessage(), narrativeTemperature)
	if err != nil {
		return "", err
	}

	narrative := strings.TrimSpace(raw)
	if narrative == "" {
		return "", fmt.Errorf("narrative response was empty")
	}

	s.logger.Debug("Composed narrative",
		zap.Int("events", len(events)),
		zap.Int("length", len(narrative)))
	return narrative, nil
}
