// Package memory provides in-process implementations of the repository stores. They back
// local development and service tests, and mirror the conditional-write semantics of the
// DynamoDB stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
	"dreamlog-backend/internal/repository"
	appErrors "dreamlog-backend/pkg/errors"
)

var (
	_ repository.ThemeStore     = (*ThemeStore)(nil)
	_ repository.NightmareStore = (*NightmareStore)(nil)
	_ repository.CycleStore     = (*CycleStore)(nil)
	_ repository.SettingsStore  = (*SettingsStore)(nil)
)

// ThemeStore keeps theme counters in a map keyed by user then theme.
type ThemeStore struct {
	mu       sync.RWMutex
	counters map[string]map[string]dream.ThemeCounter
}

// NewThemeStore creates an empty ThemeStore.
func NewThemeStore() *ThemeStore {
	return &ThemeStore{counters: make(map[string]map[string]dream.ThemeCounter)}
}

// GetTheme implements repository.ThemeStore.
func (s *ThemeStore) GetTheme(_ context.Context, userID, theme string) (dream.ThemeCounter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counters[userID][theme]
	return c, ok, nil
}

// CreateTheme implements repository.ThemeStore.
func (s *ThemeStore) CreateTheme(_ context.Context, counter dream.ThemeCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.counters[counter.UserID]
	if !ok {
		user = make(map[string]dream.ThemeCounter)
		s.counters[counter.UserID] = user
	}
	if _, exists := user[counter.Theme]; exists {
		return appErrors.NewPersistenceConflict("theme counter already exists", nil)
	}
	user[counter.Theme] = counter
	return nil
}

// IncrementTheme implements repository.ThemeStore.
func (s *ThemeStore) IncrementTheme(_ context.Context, userID, theme string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[userID][theme]
	if !ok {
		return appErrors.NewPersistenceConflict("theme counter does not exist", nil)
	}
	c.Count++
	if at.After(c.LastOccurred) {
		c.LastOccurred = at
	}
	s.counters[userID][theme] = c
	return nil
}

// ListThemes implements repository.ThemeStore.
func (s *ThemeStore) ListThemes(_ context.Context, userID string) ([]dream.ThemeCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dream.ThemeCounter, 0, len(s.counters[userID]))
	for _, c := range s.counters[userID] {
		out = append(out, c)
	}
	return out, nil
}

type nightmareLedger struct {
	occurrences []nightmare.Occurrence
	dreams      map[string]struct{}
	summary     nightmare.Summary
}

// NightmareStore keeps one ledger per user.
type NightmareStore struct {
	mu      sync.RWMutex
	ledgers map[string]*nightmareLedger
}

// NewNightmareStore creates an empty NightmareStore.
func NewNightmareStore() *NightmareStore {
	return &NightmareStore{ledgers: make(map[string]*nightmareLedger)}
}

func (s *NightmareStore) ledger(userID string) *nightmareLedger {
	l, ok := s.ledgers[userID]
	if !ok {
		l = &nightmareLedger{dreams: map[string]struct{}{}, summary: nightmare.NewSummary()}
		s.ledgers[userID] = l
	}
	return l
}

// RecordOccurrence implements repository.NightmareStore.
func (s *NightmareStore) RecordOccurrence(_ context.Context, userID string, o nightmare.Occurrence) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(userID)
	if _, dup := l.dreams[o.DreamID]; dup {
		return false, nil
	}
	l.dreams[o.DreamID] = struct{}{}
	l.occurrences = append(l.occurrences, copyNightmare(o))
	sort.SliceStable(l.occurrences, func(i, j int) bool {
		return l.occurrences[i].Timestamp.Before(l.occurrences[j].Timestamp)
	})
	l.summary.Apply(o)
	return true, nil
}

// SetCycleAnalysis implements repository.NightmareStore.
func (s *NightmareStore) SetCycleAnalysis(_ context.Context, userID string, st stats.CycleStatistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(userID)
	l.summary.CycleAnalysis = &st
	return nil
}

// ListTimestamps implements repository.NightmareStore.
func (s *NightmareStore) ListTimestamps(_ context.Context, userID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[userID]
	if !ok {
		return []time.Time{}, nil
	}
	ts := make([]time.Time, len(l.occurrences))
	for i, o := range l.occurrences {
		ts[i] = o.Timestamp
	}
	return ts, nil
}

// LoadHistory implements repository.NightmareStore.
func (s *NightmareStore) LoadHistory(_ context.Context, userID string) (nightmare.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := nightmare.History{UserID: userID, Summary: nightmare.NewSummary()}
	l, ok := s.ledgers[userID]
	if !ok {
		return h, nil
	}
	for _, o := range l.occurrences {
		h.Occurrences = append(h.Occurrences, copyNightmare(o))
	}
	for k, v := range l.summary.ThemeCounts {
		h.Summary.ThemeCounts[k] = v
	}
	for k, v := range l.summary.EmotionCounts {
		h.Summary.EmotionCounts[k] = v
	}
	if l.summary.CycleAnalysis != nil {
		ca := *l.summary.CycleAnalysis
		h.Summary.CycleAnalysis = &ca
	}
	return h, nil
}

func copyNightmare(o nightmare.Occurrence) nightmare.Occurrence {
	o.Themes = append([]string{}, o.Themes...)
	o.Emotions = append([]string{}, o.Emotions...)
	return o
}

// CycleStore keeps cycles per user in creation order.
type CycleStore struct {
	mu     sync.RWMutex
	cycles map[string][]*cycle.Cycle
	// assigned maps user then dream to the cycle holding it; a dream joins at most one cycle.
	assigned map[string]map[string]string
}

// NewCycleStore creates an empty CycleStore.
func NewCycleStore() *CycleStore {
	return &CycleStore{
		cycles:   make(map[string][]*cycle.Cycle),
		assigned: make(map[string]map[string]string),
	}
}

func (s *CycleStore) assign(userID, dreamID, cycleID string) bool {
	user, ok := s.assigned[userID]
	if !ok {
		user = make(map[string]string)
		s.assigned[userID] = user
	}
	if _, taken := user[dreamID]; taken {
		return false
	}
	user[dreamID] = cycleID
	return true
}

func (s *CycleStore) find(userID, cycleID string) *cycle.Cycle {
	for _, c := range s.cycles[userID] {
		if c.ID == cycleID {
			return c
		}
	}
	return nil
}

// ListCycles implements repository.CycleStore.
func (s *CycleStore) ListCycles(_ context.Context, userID string) ([]cycle.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cycle.Cycle, 0, len(s.cycles[userID]))
	for _, c := range s.cycles[userID] {
		out = append(out, copyCycle(*c))
	}
	return out, nil
}

// CreateCycle implements repository.CycleStore.
func (s *CycleStore) CreateCycle(_ context.Context, c cycle.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(c.Occurrences) == 0 {
		return appErrors.NewValidation("cycle has no founding occurrence")
	}
	if s.find(c.UserID, c.ID) != nil {
		return appErrors.NewPersistenceConflict("cycle already exists", nil)
	}
	if !s.assign(c.UserID, c.Occurrences[0].DreamID, c.ID) {
		return appErrors.NewPersistenceConflict("dream already assigned to a cycle", nil)
	}
	stored := copyCycle(c)
	s.cycles[c.UserID] = append(s.cycles[c.UserID], &stored)
	return nil
}

// AppendOccurrence implements repository.CycleStore.
func (s *CycleStore) AppendOccurrence(_ context.Context, c cycle.Cycle, o cycle.Occurrence) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.find(c.UserID, c.ID)
	if stored == nil {
		return false, appErrors.NewNotFound("cycle not found")
	}
	if !s.assign(c.UserID, o.DreamID, c.ID) {
		return false, nil
	}
	stored.Append(copyOccurrence(o))
	return true, nil
}

// SetEvolution implements repository.CycleStore.
func (s *CycleStore) SetEvolution(_ context.Context, c cycle.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.find(c.UserID, c.ID)
	if stored == nil {
		return appErrors.NewNotFound("cycle not found")
	}
	stored.Evolution = c.Evolution.Clone()
	return nil
}

func copyOccurrence(o cycle.Occurrence) cycle.Occurrence {
	o.Themes = append([]string{}, o.Themes...)
	o.Symbols = append([]string{}, o.Symbols...)
	return o
}

func copyCycle(c cycle.Cycle) cycle.Cycle {
	out := c
	out.CommonElements = append([]string{}, c.CommonElements...)
	out.Occurrences = make([]cycle.Occurrence, len(c.Occurrences))
	for i, o := range c.Occurrences {
		out.Occurrences[i] = copyOccurrence(o)
	}
	out.Evolution = c.Evolution.Clone()
	return out
}

// SettingsStore keeps settings per user.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]dream.Settings
}

// NewSettingsStore creates an empty SettingsStore.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]dream.Settings)}
}

// GetSettings implements repository.SettingsStore.
func (s *SettingsStore) GetSettings(_ context.Context, userID string) (dream.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[userID], nil
}

// PutSettings implements repository.SettingsStore.
func (s *SettingsStore) PutSettings(_ context.Context, userID string, st dream.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = st
	return nil
}
