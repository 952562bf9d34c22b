// Package cycle clusters dream occurrences into persistent recurring cycles by symbolic overlap.
//
// A cycle's CommonElements are fixed when the cycle is created. Later occurrences are always
// compared against that founding set, never against a running union, so long-lived cycles can
// drift away from their most recent members.
package cycle

import (
	"sort"
	"time"
)

// DefaultSimilarityThreshold is the minimum overlap for an occurrence to join an existing cycle.
const DefaultSimilarityThreshold = 0.5

// Occurrence is one dream assigned to a cycle.
type Occurrence struct {
	DreamID   string    `json:"dreamId" dynamodbav:"DreamID"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"Timestamp"`
	Themes    []string  `json:"themes" dynamodbav:"Themes"`
	Symbols   []string  `json:"symbols" dynamodbav:"Symbols"`
}

// Cycle is a persistent cluster of occurrences sharing a founding element set.
type Cycle struct {
	ID              string       `json:"cycleId"`
	UserID          string       `json:"-"`
	CreatedAt       time.Time    `json:"-"`
	FirstOccurrence time.Time    `json:"firstOccurrence"`
	CommonElements  []string     `json:"commonElements"`
	Occurrences     []Occurrence `json:"occurrences"`
	Evolution       *Evolution   `json:"evolution,omitempty"`
}

// New founds a cycle whose CommonElements are a copy of candidate. createdAt fixes the cycle's
// position in stored order.
func New(id, userID string, candidate []string, first Occurrence, createdAt time.Time) Cycle {
	common := make([]string, len(candidate))
	copy(common, candidate)
	return Cycle{
		ID:              id,
		UserID:          userID,
		CreatedAt:       createdAt,
		FirstOccurrence: first.Timestamp,
		CommonElements:  common,
		Occurrences:     []Occurrence{first},
	}
}

// Append adds an occurrence, keeping the list ascending by timestamp.
func (c *Cycle) Append(o Occurrence) {
	i := sort.Search(len(c.Occurrences), func(i int) bool {
		return c.Occurrences[i].Timestamp.After(o.Timestamp)
	})
	c.Occurrences = append(c.Occurrences, Occurrence{})
	copy(c.Occurrences[i+1:], c.Occurrences[i:])
	c.Occurrences[i] = o
	if i == 0 {
		c.FirstOccurrence = o.Timestamp
	}
}

// LastOccurrence returns the most recent occurrence time, or the zero time.
func (c Cycle) LastOccurrence() time.Time {
	if len(c.Occurrences) == 0 {
		return time.Time{}
	}
	return c.Occurrences[len(c.Occurrences)-1].Timestamp
}

// Timestamps returns occurrence times in stored (ascending) order.
func (c Cycle) Timestamps() []time.Time {
	ts := make([]time.Time, len(c.Occurrences))
	for i, o := range c.Occurrences {
		ts[i] = o.Timestamp
	}
	return ts
}

// Similarity is |candidate ∩ common| / max(|candidate|, |common|). Two empty sets score 0.
func Similarity(candidate, common []string) float64 {
	a, b := toSet(candidate), toSet(common)
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		return 0
	}
	shared := 0
	for k := range a {
		if _, ok := b[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(denom)
}

// Select scans cycles in stored order and returns the index of the first one whose similarity
// to candidate reaches threshold. A later cycle with a higher score never wins over an earlier
// qualifying one.
func Select(cycles []Cycle, candidate []string, threshold float64) (int, float64, bool) {
	for i, c := range cycles {
		if score := Similarity(candidate, c.CommonElements); score >= threshold {
			return i, score, true
		}
	}
	return -1, 0, false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
