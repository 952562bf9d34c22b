// Package nightmares implements the Nightmare History Aggregator on top of the append-only
// nightmare log and its materialized summary.
package nightmares

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

// Aggregator records nightmares for users who opted into nightmare tracking. The opt-in itself
// is checked by the caller.
type Aggregator struct {
	store  repository.NightmareStore
	logger *zap.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(store repository.NightmareStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// RecordNightmareOccurrence appends the dream to the user's nightmare log together with its
// summary tallies and, for tiers with advanced detection, refreshes the cached cycle analysis.
// recorded is false when the dream was already in the log.
func (a *Aggregator) RecordNightmareOccurrence(ctx context.Context, userID, dreamID string, tier dream.Tier, p dream.DreamPattern, at time.Time) (recorded bool, err error) {
	if dreamID == "" {
		return false, appErrors.NewValidation("dream id is required")
	}

	o := nightmare.Occurrence{
		DreamID:   dreamID,
		Timestamp: at.UTC(),
		Themes:    dream.NormalizeSet(p.Themes),
		Emotions:  dream.NormalizeSet(p.Emotions),
	}

	recorded, err = a.store.RecordOccurrence(ctx, userID, o)
	if err != nil {
		return false, appErrors.Wrap(err, "record nightmare occurrence")
	}
	if !recorded {
		a.logger.Info("nightmare already recorded, tallies left untouched",
			zap.String("userID", userID),
			zap.String("dreamID", dreamID))
	}

	if tier.AdvancedDetection() {
		if err := a.refreshCycleAnalysis(ctx, userID); err != nil {
			return recorded, err
		}
	}
	return recorded, nil
}

func (a *Aggregator) refreshCycleAnalysis(ctx context.Context, userID string) error {
	timestamps, err := a.store.ListTimestamps(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, "list nightmare timestamps")
	}
	analysis := stats.ComputeCycleStatistics(timestamps)
	if err := a.store.SetCycleAnalysis(ctx, userID, analysis); err != nil {
		return appErrors.Wrap(err, "store nightmare cycle analysis")
	}
	return nil
}
