package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/llm"
	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/prompts"
	"github.com/venezuelawatch/entity-engine/pkg/themes"
)

// ThemeExtractionService tags events that arrive without themes.
type ThemeExtractionService interface {
	// ExtractThemes asks the collaborator to tag an event, then normalizes
	// the free-form tags into the fixed category set.
	ExtractThemes(ctx context.Context, title, body string) ([]models.ThemeCategory, error)
}

type themeExtractionService struct {
	guard      *collaboratorGuard
	normalizer *themes.Normalizer
	logger     *zap.Logger
}

// NewThemeExtractionService creates a new ThemeExtractionService backed by
// the given collaborator client.
func NewThemeExtractionService(client llm.Client, normalizer *themes.Normalizer, cfg config.LLMConfig, logger *zap.Logger) ThemeExtractionService {
	log := logger.Named("theme-extraction")
	return &themeExtractionService{
		guard:      newCollaboratorGuard(client, cfg, log),
		normalizer: normalizer,
		logger:     log,
	}
}

var _ ThemeExtractionService = (*themeExtractionService)(nil)

// themeExtractionResponse is the JSON shape the extraction prompt requests.
type themeExtractionResponse struct {
	Tags []string `json:"tags"`
}

func (s *themeExtractionService) ExtractThemes(ctx context.Context, title, body string) ([]models.ThemeCategory, error) {
	prompt := prompts.BuildThemeExtractionPrompt(title, body)
	raw, err := s.guard.generate(ctx, prompt, prompts.BuildThemeExtractionSystemMessage(), extractionTemperature)
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[themeExtractionResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse theme response: %w", err)
	}
	if len(parsed.Tags) == 0 {
		return nil, fmt.Errorf("theme response carried no tags")
	}

	categories := s.normalizer.NormalizeAll(parsed.Tags)
	s.logger.Debug("Extracted themes",
		zap.Strings("tags", parsed.Tags),
		zap.Int("categories", len(categories)))
	return categories, nil
}
