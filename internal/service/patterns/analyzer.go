// Package patterns is the inbound side of the pattern engine. It classifies a dream and fans the
// result out to the theme, nightmare and cycle aggregators, each of which fails on its own.
package patterns

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/events"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/repository"
	"dreamlog-backend/internal/service/cycles"
	appErrors "dreamlog-backend/pkg/errors"
)

// Branch names, used in logs, metrics and Result.Failed.
const (
	BranchThemes     = "themes"
	BranchNightmares = "nightmares"
	BranchCycles     = "cycles"
	BranchSettings   = "settings"
)

// Classifier turns dream text into a pattern. It never fails.
type Classifier interface {
	Classify(ctx context.Context, dreamText string) dream.DreamPattern
}

// ThemeRecorder is the Theme Frequency Tracker.
type ThemeRecorder interface {
	RecordAll(ctx context.Context, userID string, themes []string, at time.Time) error
}

// NightmareRecorder is the Nightmare History Aggregator.
type NightmareRecorder interface {
	RecordNightmareOccurrence(ctx context.Context, userID, dreamID string, tier dream.Tier, p dream.DreamPattern, at time.Time) (bool, error)
}

// CycleMatcher is the Recurring Cycle Matcher.
type CycleMatcher interface {
	MatchOrCreateCycle(ctx context.Context, userID, dreamID string, tier dream.Tier, p dream.DreamPattern, at time.Time) (cycles.Result, error)
}

// AnalyzeRequest is one dream submitted for pattern analysis.
type AnalyzeRequest struct {
	UserID  string
	DreamID string
	Text    string
	Tier    dream.Tier
	// OccurredAt places the dream on the user's timeline. Zero means now.
	OccurredAt time.Time
}

// CycleOutcome is what happened in the cycle branch.
type CycleOutcome struct {
	CycleID    string          `json:"cycleId,omitempty"`
	Decision   cycles.Decision `json:"decision"`
	Similarity float64         `json:"similarity"`
}

// Result reports the pattern and what each branch did. Failed lists branches that were skipped
// because of an error; it is informational only.
type Result struct {
	Pattern           dream.DreamPattern `json:"pattern"`
	NightmareRecorded bool               `json:"nightmareRecorded"`
	Cycle             *CycleOutcome      `json:"cycle,omitempty"`
	Failed            []string           `json:"failed,omitempty"`
}

// Analyzer orchestrates classification and aggregation.
type Analyzer struct {
	classifier Classifier
	settings   repository.SettingsStore
	themes     ThemeRecorder
	nightmares NightmareRecorder
	cycles     CycleMatcher
	publisher  events.Publisher
	clock      func() time.Time
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewAnalyzer creates an analyzer. A nil publisher disables events.
func NewAnalyzer(
	classifier Classifier,
	settings repository.SettingsStore,
	themes ThemeRecorder,
	nightmares NightmareRecorder,
	cycleMatcher CycleMatcher,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Analyzer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Analyzer{
		classifier: classifier,
		settings:   settings,
		themes:     themes,
		nightmares: nightmares,
		cycles:     cycleMatcher,
		publisher:  publisher,
		clock:      time.Now,
		logger:     logger,
		metrics:    metrics,
	}
}

// SetClock replaces the clock used when a request has no OccurredAt.
func (a *Analyzer) SetClock(clock func() time.Time) {
	a.clock = clock
}

// AnalyzeDreamForPatterns classifies the dream and aggregates it. Only a request without user or
// dream id is an error; classification and aggregation failures are logged and reported in
// Result.Failed, never returned.
func (a *Analyzer) AnalyzeDreamForPatterns(ctx context.Context, req AnalyzeRequest) (Result, error) {
	if req.UserID == "" || req.DreamID == "" {
		return Result{}, appErrors.NewValidation("user id and dream id are required")
	}
	at := req.OccurredAt
	if at.IsZero() {
		at = a.clock()
	}
	at = at.UTC()

	ctx, span := otel.Tracer("dreamlog-backend/patterns").Start(ctx, "patterns.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("dream.id", req.DreamID),
		attribute.String("user.tier", string(req.Tier)),
	)

	pattern := a.classifier.Classify(ctx, req.Text)
	result := Result{Pattern: pattern}
	logger := a.logger.With(zap.String("userID", req.UserID), zap.String("dreamID", req.DreamID))

	settings, err := a.settings.GetSettings(ctx, req.UserID)
	if err != nil {
		logger.Error("failed to load pattern settings, optional tracking disabled",
			zap.String("branch", BranchSettings), zap.Error(err))
		a.metrics.BranchFailed(BranchSettings)
		result.Failed = append(result.Failed, BranchSettings)
		settings = dream.Settings{}
	}

	var (
		mu        sync.Mutex
		published []events.Event
		g         errgroup.Group
	)
	fail := func(branch string, err error) {
		logger.Error("pattern aggregation branch failed",
			zap.String("branch", branch),
			zap.String("errorType", string(appErrors.TypeOf(err))),
			zap.Error(err))
		a.metrics.BranchFailed(branch)
		mu.Lock()
		result.Failed = append(result.Failed, branch)
		mu.Unlock()
	}

	if len(pattern.Themes) > 0 {
		g.Go(func() error {
			if err := a.themes.RecordAll(ctx, req.UserID, pattern.Themes, at); err != nil {
				fail(BranchThemes, err)
			}
			return nil
		})
	}

	if settings.TrackNightmares && pattern.Type == dream.TypeNightmare {
		g.Go(func() error {
			recorded, err := a.nightmares.RecordNightmareOccurrence(ctx, req.UserID, req.DreamID, req.Tier, pattern, at)
			if err != nil {
				fail(BranchNightmares, err)
			}
			mu.Lock()
			defer mu.Unlock()
			result.NightmareRecorded = recorded
			if recorded {
				published = append(published, events.NightmareRecorded(req.UserID, req.DreamID, at))
			}
			return nil
		})
	}

	if settings.TrackRecurringDreams && !pattern.IsNeutral() && len(pattern.Elements()) > 0 {
		g.Go(func() error {
			res, err := a.cycles.MatchOrCreateCycle(ctx, req.UserID, req.DreamID, req.Tier, pattern, at)
			if err != nil {
				fail(BranchCycles, err)
				if res.Decision == "" {
					return nil
				}
			}
			mu.Lock()
			defer mu.Unlock()
			result.Cycle = &CycleOutcome{CycleID: res.Cycle.ID, Decision: res.Decision, Similarity: res.Similarity}
			switch res.Decision {
			case cycles.DecisionCreated:
				published = append(published, events.CycleCreated(req.UserID, res.Cycle.ID, req.DreamID, res.Cycle.CommonElements, at))
			case cycles.DecisionMatched:
				published = append(published, events.CycleMatched(req.UserID, res.Cycle.ID, req.DreamID, res.Similarity, at))
			}
			return nil
		})
	}

	// Branches never return errors; Wait only joins them.
	_ = g.Wait()

	if len(result.Failed) > 0 {
		span.SetStatus(codes.Error, "aggregation partially failed")
	}

	published = append([]events.Event{events.PatternAnalyzed(req.UserID, req.DreamID, pattern, at)}, published...)
	if err := a.publisher.Publish(ctx, published); err != nil {
		logger.Warn("failed to publish pattern events", zap.Int("count", len(published)), zap.Error(err))
	}

	return result, nil
}
