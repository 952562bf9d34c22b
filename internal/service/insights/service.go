// Package insights is the read side of the pattern engine. Every call recomputes presentation
// fields from the stored ledgers and passes the result through the tier gate.
package insights

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/insight"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// DefaultMinCycleOccurrences is how many occurrences a cycle needs before reads show it.
const DefaultMinCycleOccurrences = 2

// NarrativeSource produces the optional vip narrative for a nightmare history.
type NarrativeSource interface {
	ForNightmares(ctx context.Context, tier dream.Tier, p nightmare.Pattern) *string
}

// ThemeLister returns sorted theme counters.
type ThemeLister interface {
	Frequencies(ctx context.Context, userID string, limit int) ([]dream.ThemeCounter, error)
}

// Service serves pattern insights.
type Service struct {
	nightmares          repository.NightmareStore
	cycles              repository.CycleStore
	themes              ThemeLister
	narrative           NarrativeSource
	minCycleOccurrences int
	logger              *zap.Logger
}

// NewService creates the read service. minCycleOccurrences below 1 means the default.
func NewService(
	nightmares repository.NightmareStore,
	cycles repository.CycleStore,
	themes ThemeLister,
	narrative NarrativeSource,
	minCycleOccurrences int,
	logger *zap.Logger,
) *Service {
	if minCycleOccurrences < 1 {
		minCycleOccurrences = DefaultMinCycleOccurrences
	}
	return &Service{
		nightmares:          nightmares,
		cycles:              cycles,
		themes:              themes,
		narrative:           narrative,
		minCycleOccurrences: minCycleOccurrences,
		logger:              logger,
	}
}

// GetNightmarePatternSummary returns the user's nightmare summary, or nil when nothing has been
// recorded. For advanced tiers the cycle analysis is recomputed from the log so that a tier
// upgrade shows statistics over the full history.
func (s *Service) GetNightmarePatternSummary(ctx context.Context, userID string, tier dream.Tier) (*insight.NightmareSummary, error) {
	history, err := s.nightmares.LoadHistory(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "load nightmare history")
	}
	pattern, ok := nightmare.Derive(history)
	if !ok {
		return nil, nil
	}
	if tier.AdvancedDetection() {
		analysis := stats.ComputeCycleStatistics(history.Timestamps())
		pattern.CycleAnalysis = &analysis
	}

	summary := insight.NewNightmareSummary(pattern)
	if tier.NarrativeInsights() && s.narrative != nil {
		summary.NarrativeInsight = s.narrative.ForNightmares(ctx, tier, pattern)
	}
	return insight.RedactNightmareSummary(summary, tier), nil
}

// GetRecurringCycles returns the user's recurring cycles in stored order. Tiers below premium
// always get an empty list.
func (s *Service) GetRecurringCycles(ctx context.Context, userID string, tier dream.Tier) ([]insight.CycleView, error) {
	if !tier.AdvancedDetection() {
		return []insight.CycleView{}, nil
	}
	stored, err := s.cycles.ListCycles(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "list cycles")
	}
	views := make([]insight.CycleView, 0, len(stored))
	for _, c := range stored {
		if len(c.Occurrences) < s.minCycleOccurrences {
			continue
		}
		views = append(views, insight.NewCycleView(c))
	}
	return insight.RedactCycles(views, tier), nil
}

// GetThemeFrequencies returns theme counters by count descending.
func (s *Service) GetThemeFrequencies(ctx context.Context, userID string, limit int) ([]dream.ThemeCounter, error) {
	counters, err := s.themes.Frequencies(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, "list themes")
	}
	if counters == nil {
		counters = []dream.ThemeCounter{}
	}
	return counters, nil
}

// GetInsight loads the nightmare summary and cycles concurrently.
func (s *Service) GetInsight(ctx context.Context, userID string, tier dream.Tier) (insight.Insight, error) {
	var out insight.Insight
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.GetNightmarePatternSummary(gctx, userID, tier)
		out.Nightmares = summary
		return err
	})
	g.Go(func() error {
		views, err := s.GetRecurringCycles(gctx, userID, tier)
		if len(views) > 0 {
			out.Cycles = views
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return insight.Insight{}, err
	}
	return out, nil
}
