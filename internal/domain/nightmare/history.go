// Package nightmare models the per-user nightmare ledger: an append-only list of occurrences and
// the materialized tallies derived from it.
package nightmare

import (
	"sort"
	"time"

	"dreamlog-backend/internal/domain/stats"
)

// Occurrence is one recorded nightmare.
type Occurrence struct {
	DreamID   string    `json:"dreamId" dynamodbav:"DreamID"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"Timestamp"`
	Themes    []string  `json:"themes" dynamodbav:"Themes"`
	Emotions  []string  `json:"emotions" dynamodbav:"Emotions"`
}

// Tally is a name with its occurrence count.
type Tally struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the materialized aggregate kept next to the event log. It is updated
// incrementally, one occurrence at a time.
type Summary struct {
	ThemeCounts   map[string]int
	EmotionCounts map[string]int
	CycleAnalysis *stats.CycleStatistics
}

// NewSummary returns an empty summary with initialized maps.
func NewSummary() Summary {
	return Summary{
		ThemeCounts:   map[string]int{},
		EmotionCounts: map[string]int{},
	}
}

// Apply adds one occurrence's themes and emotions to the tallies.
func (s *Summary) Apply(o Occurrence) {
	if s.ThemeCounts == nil {
		s.ThemeCounts = map[string]int{}
	}
	if s.EmotionCounts == nil {
		s.EmotionCounts = map[string]int{}
	}
	for _, t := range o.Themes {
		s.ThemeCounts[t]++
	}
	for _, e := range o.Emotions {
		s.EmotionCounts[e]++
	}
}

// History is the full ledger as read back from storage.
type History struct {
	UserID      string
	Occurrences []Occurrence
	Summary     Summary
}

// Empty reports whether no nightmare has been recorded.
func (h History) Empty() bool {
	return len(h.Occurrences) == 0
}

// Timestamps returns occurrence times in ascending order.
func (h History) Timestamps() []time.Time {
	ts := make([]time.Time, 0, len(h.Occurrences))
	for _, o := range h.Occurrences {
		ts = append(ts, o.Timestamp)
	}
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	return ts
}

// Top returns up to n tallies ordered by count desc, then name asc.
func Top(counts map[string]int, n int) []Tally {
	out := make([]Tally, 0, len(counts))
	for name, c := range counts {
		if c <= 0 {
			continue
		}
		out = append(out, Tally{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
