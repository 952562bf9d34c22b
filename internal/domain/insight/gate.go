package insight

import (
	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/nightmare"
	"dreamlog-backend/internal/domain/stats"
)

// Redact returns a copy of in containing only what tier may see. Below premium the cycle,
// evolution and narrative fields are omitted entirely. Premium sees cycles and evolution. VIP
// additionally sees narrative text. in is never modified.
func Redact(in Insight, tier dream.Tier) Insight {
	return Insight{
		Nightmares: RedactNightmareSummary(in.Nightmares, tier),
		Cycles:     RedactCycles(in.Cycles, tier),
	}
}

// RedactNightmareSummary applies the tier gate to a single summary. A nil summary stays nil.
// Below premium only the raw counts and dates survive, and the recommendations are replaced by
// the fixed baseline set so nothing derived from the user's frequency leaks through.
func RedactNightmareSummary(s *NightmareSummary, tier dream.Tier) *NightmareSummary {
	if s == nil {
		return nil
	}
	out := &NightmareSummary{
		TotalOccurrences: s.TotalOccurrences,
		CommonThemes:     append([]nightmare.Tally{}, s.CommonThemes...),
		CommonEmotions:   append([]nightmare.Tally{}, s.CommonEmotions...),
		FirstOccurrence:  s.FirstOccurrence,
		LastOccurrence:   s.LastOccurrence,
	}
	if !tier.AdvancedDetection() {
		out.Recommendations = nightmare.BaselineRecommendations()
		return out
	}
	out.FrequencyPerMonth = cloneFloat(s.FrequencyPerMonth)
	out.EmotionalIntensity = s.EmotionalIntensity
	out.Recommendations = append([]string{}, s.Recommendations...)
	out.CycleAnalysis = cloneStats(s.CycleAnalysis)
	out.CycleRecommendation = cloneString(s.CycleRecommendation)
	if tier.NarrativeInsights() {
		out.NarrativeInsight = cloneString(s.NarrativeInsight)
	}
	return out
}

// RedactCycles applies the tier gate to a cycle list. Below premium it returns nil.
func RedactCycles(cycles []CycleView, tier dream.Tier) []CycleView {
	if !tier.AdvancedDetection() {
		return nil
	}
	out := make([]CycleView, 0, len(cycles))
	for _, c := range cycles {
		v := CycleView{
			CycleID:         c.CycleID,
			FirstOccurrence: c.FirstOccurrence,
			LastOccurrence:  c.LastOccurrence,
			OccurrenceCount: c.OccurrenceCount,
			CommonElements:  append([]string{}, c.CommonElements...),
			Statistics:      cloneStats(c.Statistics),
			Recommendation:  cloneString(c.Recommendation),
			Evolution:       c.Evolution.Clone(),
		}
		if v.Evolution != nil && !tier.NarrativeInsights() {
			v.Evolution.NarrativeInsight = nil
		}
		out = append(out, v)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneStats(s *stats.CycleStatistics) *stats.CycleStatistics {
	if s == nil {
		return nil
	}
	out := stats.CycleStatistics{Status: s.Status}
	if s.AverageIntervalDays != nil {
		v := *s.AverageIntervalDays
		out.AverageIntervalDays = &v
	}
	if s.StdDevDays != nil {
		v := *s.StdDevDays
		out.StdDevDays = &v
	}
	if s.Consistent != nil {
		v := *s.Consistent
		out.Consistent = &v
	}
	return &out
}
