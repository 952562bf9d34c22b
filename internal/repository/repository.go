/**
 * =============================================================================
 * Repository Package - Pattern Ledger Storage Ports
 * =============================================================================
 *
 * Each aggregation branch owns its own store so that a failure in one never
 * blocks the others:
 *
 *   ThemeStore      per-(user, theme) occurrence counters
 *   NightmareStore  append-only nightmare event log plus a materialized summary
 *   CycleStore      cycle definitions and their appended occurrences
 *   SettingsStore   per-user tracking opt-ins
 *
 * Implementations live in ddb (DynamoDB) and memory (tests, local development).
 * Every implementation reports failures through pkg/errors: a lost conditional
 * write is PERSISTENCE_CONFLICT, anything else from the backend is
 * PERSISTENCE_FAILURE.
 */
package repository

import (
	"context"
	"time"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
)

// ThemeStore persists theme counters.
type ThemeStore interface {
	// GetTheme returns the counter and whether it exists.
	GetTheme(ctx context.Context, userID, theme string) (dream.ThemeCounter, bool, error)
	// CreateTheme stores a new counter. It fails with a conflict if one already exists.
	CreateTheme(ctx context.Context, counter dream.ThemeCounter) error
	// IncrementTheme atomically adds one to an existing counter. It fails with a conflict if the
	// counter does not exist.
	IncrementTheme(ctx context.Context, userID, theme string, at time.Time) error
	// ListThemes returns every counter for the user in no particular order.
	ListThemes(ctx context.Context, userID string) ([]dream.ThemeCounter, error)
}

// NightmareStore persists the nightmare ledger as an event log with a materialized summary.
type NightmareStore interface {
	// RecordOccurrence adds o to the log and increments the summary tallies for its themes and
	// emotions in one atomic write. recorded is false when the dream was already in the log, in
	// which case nothing changes. On error nothing was written, so the dream can be replayed.
	RecordOccurrence(ctx context.Context, userID string, o nightmare.Occurrence) (recorded bool, err error)
	// SetCycleAnalysis replaces the cached cycle analysis on the summary.
	SetCycleAnalysis(ctx context.Context, userID string, s stats.CycleStatistics) error
	// ListTimestamps returns every occurrence time in ascending order.
	ListTimestamps(ctx context.Context, userID string) ([]time.Time, error)
	// LoadHistory reads the full ledger. An unknown user yields an empty history.
	LoadHistory(ctx context.Context, userID string) (nightmare.History, error)
}

// CycleStore persists recurring cycles.
type CycleStore interface {
	// ListCycles returns the user's cycles in creation order, each with its occurrences ascending.
	ListCycles(ctx context.Context, userID string) ([]cycle.Cycle, error)
	// CreateCycle stores a new cycle together with its founding occurrence.
	CreateCycle(ctx context.Context, c cycle.Cycle) error
	// AppendOccurrence adds o to c. appended is false when the dream was already recorded.
	AppendOccurrence(ctx context.Context, c cycle.Cycle, o cycle.Occurrence) (appended bool, err error)
	// SetEvolution replaces the evolution summary of c with c.Evolution.
	SetEvolution(ctx context.Context, c cycle.Cycle) error
}

// SettingsStore persists per-user tracking opt-ins.
type SettingsStore interface {
	// GetSettings returns the stored settings, or the zero value (everything off) when absent.
	GetSettings(ctx context.Context, userID string) (dream.Settings, error)
	PutSettings(ctx context.Context, userID string, s dream.Settings) error
}
