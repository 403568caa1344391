package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/llm"
	"github.com/venezuelawatch/entity-engine/pkg/retry"
)

// Collaborator call temperatures. Extraction and disambiguation want
// near-deterministic output; narrative prose gets room to vary.
const (
	extractionTemperature = 0.1
	narrativeTemperature  = 0.7
)

// Breaker tuning shared by all collaborator calls.
const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// collaboratorGuard wraps every collaborator call with a circuit breaker,
// a per-call timeout and retry-with-backoff for retryable failures. All
// three collaborator services share one guard, so a failing provider trips
// the breaker for all of them at once.
type collaboratorGuard struct {
	client  llm.Client
	breaker *llm.CircuitBreaker
	retry   *retry.Config
	timeout time.Duration
	logger  *zap.Logger
}

func newCollaboratorGuard(client llm.Client, cfg config.LLMConfig, logger *zap.Logger) *collaboratorGuard {
	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.MaxRetries
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &collaboratorGuard{
		client:  client,
		breaker: llm.NewCircuitBreaker(breakerThreshold, breakerCooldown),
		retry:   retryCfg,
		timeout: timeout,
		logger:  logger,
	}
}

// generate runs one guarded completion. A tripped breaker or exhausted
// retries surface as ErrCollaboratorDown so callers can apply their safe
// default.
func (g *collaboratorGuard) generate(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	if ok, err := g.breaker.Allow(); !ok {
		g.logger.Warn("Collaborator call skipped, circuit open",
			zap.String("model", g.client.GetModel()))
		return "", fmt.Errorf("%w: %v", apperrors.ErrCollaboratorDown, err)
	}

	var out string
	err := retry.DoIfRetryable(ctx, g.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.GenerateResponse(callCtx, prompt, systemMessage, temperature)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		g.breaker.RecordFailure()
		return "", fmt.Errorf("%w: %v", apperrors.ErrCollaboratorDown, err)
	}

	g.breaker.RecordSuccess()
	return out, nil
}
