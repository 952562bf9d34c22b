package nightmare

import (
	"math"
	"time"

	"dreamlog-backend/internal/domain/stats"
)

// Intensity buckets the monthly nightmare frequency.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensitySevere   Intensity = "severe"
)

// CommonLimit caps the common themes and emotions reported in a Pattern.
const CommonLimit = 5

const daysPerMonth = 30

// IntensityFor maps occurrences per month onto a bucket: low <1, moderate <2, high <4, severe otherwise.
func IntensityFor(perMonth float64) Intensity {
	switch {
	case perMonth < 1:
		return IntensityLow
	case perMonth < 2:
		return IntensityModerate
	case perMonth < 4:
		return IntensityHigh
	default:
		return IntensitySevere
	}
}

// FrequencyPerMonth is occurrences / max(1, daySpan/30), where daySpan is the whole-day distance
// between the first and last occurrence.
func FrequencyPerMonth(occurrences int, first, last time.Time) float64 {
	if occurrences == 0 {
		return 0
	}
	months := stats.WholeDays(last.Sub(first)) / daysPerMonth
	return float64(occurrences) / math.Max(1, months)
}

// Pattern is the presentation summary recomputed from a History on every read.
type Pattern struct {
	TotalOccurrences   int
	FrequencyPerMonth  float64
	EmotionalIntensity Intensity
	CommonThemes       []Tally
	CommonEmotions     []Tally
	FirstOccurrence    time.Time
	LastOccurrence     time.Time
	// CycleAnalysis is the cached statistics, refreshed only for advanced-detection tiers.
	CycleAnalysis *stats.CycleStatistics
}

// Derive computes the presentation summary. ok is false when the history holds no occurrences.
func Derive(h History) (p Pattern, ok bool) {
	if h.Empty() {
		return Pattern{}, false
	}
	ts := h.Timestamps()
	first, last := ts[0], ts[len(ts)-1]
	freq := FrequencyPerMonth(len(ts), first, last)

	p = Pattern{
		TotalOccurrences:   len(ts),
		FrequencyPerMonth:  freq,
		EmotionalIntensity: IntensityFor(freq),
		CommonThemes:       Top(h.Summary.ThemeCounts, CommonLimit),
		CommonEmotions:     Top(h.Summary.EmotionCounts, CommonLimit),
		FirstOccurrence:    first,
		LastOccurrence:     last,
	}
	if h.Summary.CycleAnalysis != nil {
		ca := *h.Summary.CycleAnalysis
		p.CycleAnalysis = &ca
	}
	return p, true
}

// BaselineRecommendations is the fixed, non-personalized set every tier may see.
func BaselineRecommendations() []string {
	return []string{
		"Keep a regular sleep schedule and wind down without screens before bed.",
		"Write down nightmares right after waking to notice recurring details.",
	}
}

// StaticRecommendations extends the baseline with a suggestion matched to intensity. Only tiers
// that may see the intensity get these.
func StaticRecommendations(intensity Intensity) []string {
	recs := BaselineRecommendations()
	switch intensity {
	case IntensityHigh:
		recs = append(recs, "Relaxation exercises before sleep can reduce how often nightmares occur.")
	case IntensitySevere:
		recs = append(recs, "Frequent nightmares can affect rest; consider talking with a healthcare professional.")
	}
	return recs
}
