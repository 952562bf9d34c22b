// Package narrative asks the generative collaborator for short advisory text about a user's
// cycles and nightmare history. Results are opaque and nullable.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/service/llm"
)

const collaboratorName = "narrative"

// DefaultTimeout bounds one narrative call.
const DefaultTimeout = 10 * time.Second

// MaxLength caps the stored narrative, in runes.
const MaxLength = 600

// Config configures the generator.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Generator produces vip narrative insights.
type Generator struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
	metrics  *observability.Collector
}

// New creates a generator. A zero timeout means DefaultTimeout.
func New(provider llm.Provider, config Config, logger *zap.Logger, metrics *observability.Collector) *Generator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Generator{provider: provider, config: config, logger: logger, metrics: metrics}
}

// ForCycle returns a narrative about an evolving cycle, or nil. Only vip users get one.
func (g *Generator) ForCycle(ctx context.Context, tier dream.Tier, c cycle.Cycle, s stats.CycleStatistics) *string {
	if !tier.NarrativeInsights() || c.Evolution == nil {
		return nil
	}
	prompt := fmt.Sprintf(`A dreamer has a recurring dream built around: %s.
It has happened %d times. %s
Since the first time, these elements appeared: %s. These faded: %s.

Write two or three gentle sentences the dreamer could reflect on. Do not diagnose, do not
claim certainty, and do not give medical advice.`,
		list(c.CommonElements), len(c.Occurrences), stats.Recommendation(s),
		list(c.Evolution.NewElements), list(c.Evolution.DroppedElements))
	return g.generate(ctx, prompt)
}

// ForNightmares returns a narrative about a nightmare history, or nil. Only vip users get one.
func (g *Generator) ForNightmares(ctx context.Context, tier dream.Tier, p nightmare.Pattern) *string {
	if !tier.NarrativeInsights() || p.TotalOccurrences == 0 {
		return nil
	}
	themes := make([]string, 0, len(p.CommonThemes))
	for _, t := range p.CommonThemes {
		themes = append(themes, t.Name)
	}
	emotions := make([]string, 0, len(p.CommonEmotions))
	for _, e := range p.CommonEmotions {
		emotions = append(emotions, e.Name)
	}
	prompt := fmt.Sprintf(`A dreamer has logged %d nightmares, about %.1f per month (%s intensity).
Common themes: %s. Common emotions: %s.

Write two or three gentle sentences the dreamer could reflect on. Do not diagnose, do not
claim certainty, and do not give medical advice.`,
		p.TotalOccurrences, p.FrequencyPerMonth, p.EmotionalIntensity, list(themes), list(emotions))
	return g.generate(ctx, prompt)
}

func (g *Generator) generate(ctx context.Context, prompt string) *string {
	ctx, span := otel.Tracer("dreamlog-backend/narrative").Start(ctx, "narrative.Generate")
	defer span.End()

	if !g.provider.IsAvailable() {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := g.provider.Complete(callCtx, prompt, llm.CompletionOptions{
		Model:       g.config.Model,
		Temperature: 0.7,
		MaxTokens:   200,
		Format:      "text",
	})
	g.metrics.ObserveCollaborator(collaboratorName, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("narrative insight unavailable", zap.Error(err))
		return nil
	}

	text, ok := reply.Answer()
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		g.logger.Warn("narrative insight reply was empty", zap.String("replyKind", reply.Kind.String()))
		return nil
	}
	if runes := []rune(text); len(runes) > MaxLength {
		text = strings.TrimSpace(string(runes[:MaxLength]))
	}
	return &text
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
