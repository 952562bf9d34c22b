// Package classifier adapts the external text-classification collaborator into typed
// DreamPatterns. Classification never fails from the caller's point of view: anything unusable
// becomes the neutral pattern.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/service/llm"
	appErrors "dreamlog-backend/pkg/errors"
)

const collaboratorName = "classifier"

// DefaultTimeout bounds one classification call.
const DefaultTimeout = 15 * time.Second

// Config configures the classifier.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Classifier is the Pattern Classifier Adapter.
type Classifier struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
	metrics  *observability.Collector
}

// New creates a classifier. A zero timeout means DefaultTimeout.
func New(provider llm.Provider, config Config, logger *zap.Logger, metrics *observability.Collector) *Classifier {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Classifier{
		provider: provider,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Classify returns the pattern for dreamText, or the neutral pattern when the collaborator is
// unavailable, slow, or answers with something unusable.
func (c *Classifier) Classify(ctx context.Context, dreamText string) dream.DreamPattern {
	ctx, span := otel.Tracer("dreamlog-backend/classifier").Start(ctx, "classifier.Classify")
	defer span.End()

	pattern, err := c.classify(ctx, dreamText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(appErrors.TypeOf(err)))
		c.logger.Warn("dream classification fell back to neutral pattern",
			zap.String("errorType", string(appErrors.TypeOf(err))),
			zap.Error(err))
		c.metrics.ObserveClassification(observability.OutcomeFallback, string(dream.TypeNormal))
		return dream.NeutralPattern()
	}

	span.SetAttributes(
		attribute.String("dream.pattern_type", string(pattern.Type)),
		attribute.Float64("dream.confidence", pattern.Confidence),
	)
	c.metrics.ObserveClassification(observability.OutcomeClassified, string(pattern.Type))
	return pattern
}

func (c *Classifier) classify(ctx context.Context, dreamText string) (dream.DreamPattern, error) {
	if strings.TrimSpace(dreamText) == "" {
		return dream.DreamPattern{}, appErrors.NewValidation("dream text is empty")
	}
	if !c.provider.IsAvailable() {
		return dream.DreamPattern{}, appErrors.NewCollaboratorUnavailable(collaboratorName, llm.ErrUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.provider.Complete(callCtx, buildPrompt(dreamText), llm.CompletionOptions{
		Model:       c.config.Model,
		System:      systemPrompt,
		Temperature: 0.2,
		MaxTokens:   400,
		Format:      "json",
	})
	c.metrics.ObserveCollaborator(collaboratorName, err, time.Since(start))
	if err != nil {
		return dream.DreamPattern{}, appErrors.NewCollaboratorUnavailable(collaboratorName, err)
	}

	return Decode(reply)
}

const systemPrompt = `You analyze dream journal entries. Respond with a single JSON object and nothing else.`

func buildPrompt(dreamText string) string {
	return fmt.Sprintf(`Classify the dream below.

Return JSON with exactly these fields:
{
  "type": "nightmare" | "recurring" | "normal",
  "themes": ["up to 5 short themes"],
  "emotions": ["up to 5 emotions felt"],
  "symbols": ["up to 5 concrete symbols or objects"],
  "confidence": 0.0-1.0
}

Rules:
1. Use "nightmare" when fear, dread or distress dominates
2. Use "recurring" when the dreamer says the dream has happened before
3. Keep every entry to one to three words
4. Use empty arrays when nothing applies

Dream: %s`, strings.TrimSpace(dreamText))
}
