// Package themes implements the Theme Frequency Tracker: one counter per user and normalized
// theme, created lazily and incremented atomically.
package themes

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// Tracker records theme occurrences.
type Tracker struct {
	store   repository.ThemeStore
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewTracker creates a tracker.
func NewTracker(store repository.ThemeStore, logger *zap.Logger, metrics *observability.Collector) *Tracker {
	return &Tracker{store: store, logger: logger, metrics: metrics}
}

// RecordThemeOccurrence counts one occurrence of theme for userID. A lost create race is retried
// once through the increment path and then dropped. The returned error is only ever a
// persistence failure; conflicts never escape.
func (t *Tracker) RecordThemeOccurrence(ctx context.Context, userID, theme string, at time.Time) error {
	key := dream.NormalizeTheme(theme)
	if key == "" {
		return nil
	}

	err := t.record(ctx, userID, key, at)
	if !appErrors.IsConflict(err) {
		return err
	}

	t.metrics.ThemeConflict("retried")
	err = t.record(ctx, userID, key, at)
	if appErrors.IsConflict(err) {
		t.metrics.ThemeConflict("dropped")
		t.logger.Warn("theme increment dropped after conflict retry",
			zap.String("userID", userID),
			zap.String("theme", key),
			zap.Error(err))
		return nil
	}
	return err
}

// RecordAll records every theme of a pattern. Each theme is independent: a failure is logged and
// the remaining themes are still recorded. The first failure is returned.
func (t *Tracker) RecordAll(ctx context.Context, userID string, themes []string, at time.Time) error {
	var first error
	for _, theme := range dream.NormalizeSet(themes) {
		if err := t.RecordThemeOccurrence(ctx, userID, theme, at); err != nil {
			t.logger.Error("failed to record theme occurrence",
				zap.String("userID", userID),
				zap.String("theme", theme),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// record is the fetch-then-update step: increment when the counter exists, create otherwise.
func (t *Tracker) record(ctx context.Context, userID, key string, at time.Time) error {
	_, found, err := t.store.GetTheme(ctx, userID, key)
	if err != nil {
		return err
	}
	if found {
		return t.store.IncrementTheme(ctx, userID, key, at)
	}
	return t.store.CreateTheme(ctx, dream.ThemeCounter{
		UserID:       userID,
		Theme:        key,
		Count:        1,
		LastOccurred: at,
	})
}

// Frequencies returns the user's counters by count descending, then theme ascending. A limit of
// zero or less returns all of them.
func (t *Tracker) Frequencies(ctx context.Context, userID string, limit int) ([]dream.ThemeCounter, error) {
	counters, err := t.store.ListThemes(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(counters, func(i, j int) bool {
		if counters[i].Count != counters[j].Count {
			return counters[i].Count > counters[j].Count
		}
		return counters[i].Theme < counters[j].Theme
	})
	if limit > 0 && len(counters) > limit {
		counters = counters[:limit]
	}
	return counters, nil
}
