// Package cycles implements the Recurring Cycle Matcher: each usable dream either joins the
// first stored cycle it overlaps enough with, or founds a new one.
package cycles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// Decision is what the matcher did with a dream.
type Decision string

const (
	DecisionCreated   Decision = "created"
	DecisionMatched   Decision = "matched"
	DecisionDuplicate Decision = "duplicate"
)

// NarrativeSource produces the optional vip narrative for an evolving cycle.
type NarrativeSource interface {
	ForCycle(ctx context.Context, tier dream.Tier, c cycle.Cycle, s stats.CycleStatistics) *string
}

// Result reports the cycle a dream ended up in.
type Result struct {
	Cycle      cycle.Cycle
	Decision   Decision
	Similarity float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides cycle.DefaultSimilarityThreshold.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) { m.threshold = threshold }
}

// WithClock overrides the clock used for cycle creation times.
func WithClock(clock func() time.Time) Option {
	return func(m *Matcher) { m.clock = clock }
}

// WithIDGenerator overrides cycle id generation.
func WithIDGenerator(newID func() string) Option {
	return func(m *Matcher) { m.newID = newID }
}

// Matcher is the Recurring Cycle Matcher. The recurring-dreams opt-in is checked by the caller.
type Matcher struct {
	store     repository.CycleStore
	narrative NarrativeSource
	threshold float64
	clock     func() time.Time
	newID     func() string
	logger    *zap.Logger
	metrics   *observability.Collector
}

// NewMatcher creates a matcher.
func NewMatcher(store repository.CycleStore, narrative NarrativeSource, logger *zap.Logger, metrics *observability.Collector, opts ...Option) *Matcher {
	m := &Matcher{
		store:     store,
		narrative: narrative,
		threshold: cycle.DefaultSimilarityThreshold,
		clock:     time.Now,
		newID:     uuid.NewString,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchOrCreateCycle assigns the dream to a cycle. Existing cycles are scanned in stored order
// and the first with similarity at or above the threshold wins. Otherwise a new cycle is founded
// with the dream's elements as its fixed common set.
func (m *Matcher) MatchOrCreateCycle(ctx context.Context, userID, dreamID string, tier dream.Tier, p dream.DreamPattern, at time.Time) (Result, error) {
	if dreamID == "" {
		return Result{}, appErrors.NewValidation("dream id is required")
	}
	candidate := p.Elements()
	if len(candidate) == 0 {
		return Result{}, appErrors.NewValidation("pattern has no themes or symbols to match on")
	}

	o := cycle.Occurrence{
		DreamID:   dreamID,
		Timestamp: at.UTC(),
		Themes:    dream.NormalizeSet(p.Themes),
		Symbols:   dream.NormalizeSet(p.Symbols),
	}

	existing, err := m.store.ListCycles(ctx, userID)
	if err != nil {
		return Result{}, appErrors.Wrap(err, "list cycles")
	}
	if c, ok := holding(existing, dreamID); ok {
		m.metrics.CycleDecision(string(DecisionDuplicate))
		return Result{Cycle: c, Decision: DecisionDuplicate}, nil
	}

	idx, score, ok := cycle.Select(existing, candidate, m.threshold)
	if !ok {
		return m.create(ctx, userID, candidate, o)
	}

	c := existing[idx]
	appended, err := m.store.AppendOccurrence(ctx, c, o)
	if err != nil {
		return Result{}, appErrors.Wrap(err, "append cycle occurrence")
	}
	if !appended {
		m.metrics.CycleDecision(string(DecisionDuplicate))
		return Result{Cycle: c, Decision: DecisionDuplicate, Similarity: score}, nil
	}
	c.Append(o)
	m.metrics.CycleDecision(string(DecisionMatched))

	result := Result{Cycle: c, Decision: DecisionMatched, Similarity: score}
	if !tier.AdvancedDetection() {
		return result, nil
	}

	c.Evolution = cycle.ComputeEvolution(c.Occurrences)
	if tier.NarrativeInsights() && m.narrative != nil {
		c.Evolution.NarrativeInsight = m.narrative.ForCycle(ctx, tier, c, stats.ComputeCycleStatistics(c.Timestamps()))
	}
	result.Cycle = c
	if err := m.store.SetEvolution(ctx, c); err != nil {
		return result, appErrors.Wrap(err, "store cycle evolution")
	}
	return result, nil
}

func (m *Matcher) create(ctx context.Context, userID string, candidate []string, o cycle.Occurrence) (Result, error) {
	c := cycle.New(m.newID(), userID, candidate, o, m.clock().UTC())
	if err := m.store.CreateCycle(ctx, c); err != nil {
		if appErrors.IsConflict(err) {
			// The dream was assigned by a concurrent submission.
			m.logger.Info("dream already assigned to a cycle",
				zap.String("userID", userID),
				zap.String("dreamID", o.DreamID))
			m.metrics.CycleDecision(string(DecisionDuplicate))
			return Result{Decision: DecisionDuplicate}, nil
		}
		return Result{}, appErrors.Wrap(err, "create cycle")
	}
	m.metrics.CycleDecision(string(DecisionCreated))
	return Result{Cycle: c, Decision: DecisionCreated, Similarity: 1}, nil
}

func holding(cycles []cycle.Cycle, dreamID string) (cycle.Cycle, bool) {
	for _, c := range cycles {
		for _, o := range c.Occurrences {
			if o.DreamID == dreamID {
				return c, true
			}
		}
	}
	return cycle.Cycle{}, false
}
