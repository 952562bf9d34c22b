// Package insight defines the read-side views over the pattern ledgers and the tier gate that
// decides which derived fields a subscriber may see.
package insight

import (
	"time"

	"dreamlog-backend/internal/domain/cycle"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
)

// NightmareSummary is the presentation view of a user's nightmare ledger. FrequencyPerMonth and
// EmotionalIntensity are derived, so the tier gate drops them below premium.
type NightmareSummary struct {
	TotalOccurrences   int                 `json:"totalOccurrences"`
	FrequencyPerMonth  *float64            `json:"frequencyPerMonth,omitempty"`
	EmotionalIntensity nightmare.Intensity `json:"emotionalIntensity,omitempty"`
	CommonThemes       []nightmare.Tally   `json:"commonThemes"`
	CommonEmotions     []nightmare.Tally   `json:"commonEmotions"`
	FirstOccurrence    time.Time           `json:"firstOccurrence"`
	LastOccurrence     time.Time           `json:"lastOccurrence"`
	Recommendations    []string            `json:"recommendations"`

	CycleAnalysis       *stats.CycleStatistics `json:"cycleAnalysis,omitempty"`
	CycleRecommendation *string                `json:"cycleRecommendation,omitempty"`
	NarrativeInsight    *string                `json:"narrativeInsight,omitempty"`
}

// CycleView is the presentation view of one recurring cycle.
type CycleView struct {
	CycleID         string    `json:"cycleId"`
	FirstOccurrence time.Time `json:"firstOccurrence"`
	LastOccurrence  time.Time `json:"lastOccurrence"`
	OccurrenceCount int       `json:"occurrenceCount"`
	CommonElements  []string  `json:"commonElements"`

	Statistics     *stats.CycleStatistics `json:"statistics,omitempty"`
	Recommendation *string                `json:"recommendation,omitempty"`
	Evolution      *cycle.Evolution       `json:"evolution,omitempty"`
}

// Insight bundles everything the read side can show a user.
type Insight struct {
	Nightmares *NightmareSummary `json:"nightmares,omitempty"`
	Cycles     []CycleView       `json:"cycles,omitempty"`
}

// NewCycleView builds the full, unredacted view of c.
func NewCycleView(c cycle.Cycle) CycleView {
	s := stats.ComputeCycleStatistics(c.Timestamps())
	rec := stats.Recommendation(s)
	return CycleView{
		CycleID:         c.ID,
		FirstOccurrence: c.FirstOccurrence,
		LastOccurrence:  c.LastOccurrence(),
		OccurrenceCount: len(c.Occurrences),
		CommonElements:  append([]string{}, c.CommonElements...),
		Statistics:      &s,
		Recommendation:  &rec,
		Evolution:       c.Evolution.Clone(),
	}
}

// NewNightmareSummary builds the full, unredacted view of a derived nightmare pattern.
func NewNightmareSummary(p nightmare.Pattern) *NightmareSummary {
	freq := p.FrequencyPerMonth
	s := &NightmareSummary{
		TotalOccurrences:   p.TotalOccurrences,
		FrequencyPerMonth:  &freq,
		EmotionalIntensity: p.EmotionalIntensity,
		CommonThemes:       p.CommonThemes,
		CommonEmotions:     p.CommonEmotions,
		FirstOccurrence:    p.FirstOccurrence,
		LastOccurrence:     p.LastOccurrence,
		Recommendations:    nightmare.StaticRecommendations(p.EmotionalIntensity),
	}
	if p.CycleAnalysis != nil {
		ca := *p.CycleAnalysis
		rec := stats.Recommendation(ca)
		s.CycleAnalysis = &ca
		s.CycleRecommendation = &rec
	}
	return s
}
