// Package dream holds the core value types shared by every pattern component: the classified
// DreamPattern, subscription tiers, user tracking settings and theme counters.
package dream

import "time"

// PatternType is the classifier's verdict for a single dream.
type PatternType string

const (
	TypeNightmare PatternType = "nightmare"
	TypeRecurring PatternType = "recurring"
	TypeNormal    PatternType = "normal"
)

// MaxSetSize bounds themes, emotions and symbols on a DreamPattern.
const MaxSetSize = 5

// Valid reports whether t is one of the known pattern types.
func (t PatternType) Valid() bool {
	switch t {
	case TypeNightmare, TypeRecurring, TypeNormal:
		return true
	}
	return false
}

// DreamPattern is the structured classification of one dream. It is transient: aggregation
// consumes it and it is never persisted as-is.
type DreamPattern struct {
	Type       PatternType `json:"type"`
	Themes     []string    `json:"themes"`
	Emotions   []string    `json:"emotions"`
	Symbols    []string    `json:"symbols"`
	Confidence float64     `json:"confidence"`
}

// NeutralPattern is the fallback used whenever classification yields nothing usable.
func NeutralPattern() DreamPattern {
	return DreamPattern{
		Type:       TypeNormal,
		Themes:     []string{},
		Emotions:   []string{},
		Symbols:    []string{},
		Confidence: 0,
	}
}

// IsNeutral reports whether p carries no information, either because it is the fallback or
// because the classifier returned empty sets with zero confidence.
func (p DreamPattern) IsNeutral() bool {
	return p.Type == TypeNormal && p.Confidence == 0 &&
		len(p.Themes) == 0 && len(p.Emotions) == 0 && len(p.Symbols) == 0
}

// Elements returns themes ∪ symbols, normalized, in first-seen order.
func (p DreamPattern) Elements() []string {
	combined := make([]string, 0, len(p.Themes)+len(p.Symbols))
	combined = append(combined, p.Themes...)
	combined = append(combined, p.Symbols...)
	return NormalizeSet(combined)
}

// Settings are the per-user opt-ins that gate the optional aggregation branches.
type Settings struct {
	TrackNightmares      bool `json:"trackNightmares" dynamodbav:"TrackNightmares"`
	TrackRecurringDreams bool `json:"trackRecurringDreams" dynamodbav:"TrackRecurringDreams"`
}

// ThemeCounter is the per-(user, theme) occurrence counter.
type ThemeCounter struct {
	UserID       string    `json:"userId"`
	Theme        string    `json:"theme"`
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"lastOccurred"`
}
