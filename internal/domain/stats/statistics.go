// Package stats derives periodicity statistics from sparse, irregular occurrence timestamps.
// Everything here is deterministic and free of I/O.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Status tells whether enough occurrences existed to compute statistics.
type Status string

const (
	StatusInsufficient Status = "insufficient"
	StatusComputed     Status = "computed"
)

// MinOccurrences is the smallest number of timestamps that yields statistics.
const MinOccurrences = 3

// consistencyRatio bounds stdDev relative to the mean interval for a cycle to count as consistent.
const consistencyRatio = 0.5

// CycleStatistics summarizes the spacing between occurrences. The pointer fields are nil when
// Status is StatusInsufficient.
type CycleStatistics struct {
	Status              Status   `json:"status" dynamodbav:"Status"`
	AverageIntervalDays *float64 `json:"averageIntervalDays,omitempty" dynamodbav:"AverageIntervalDays,omitempty"`
	StdDevDays          *float64 `json:"stdDevDays,omitempty" dynamodbav:"StdDevDays,omitempty"`
	Consistent          *bool    `json:"consistent,omitempty" dynamodbav:"Consistent,omitempty"`
}

// Computed reports whether the statistics carry values.
func (s CycleStatistics) Computed() bool {
	return s.Status == StatusComputed && s.AverageIntervalDays != nil
}

// ComputeCycleStatistics computes interval statistics over whole-day gaps between consecutive
// timestamps. Fewer than MinOccurrences timestamps yields StatusInsufficient.
func ComputeCycleStatistics(timestamps []time.Time) CycleStatistics {
	if len(timestamps) < MinOccurrences {
		return CycleStatistics{Status: StatusInsufficient}
	}

	ordered := make([]time.Time, len(timestamps))
	copy(ordered, timestamps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	intervals := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		intervals = append(intervals, WholeDays(ordered[i].Sub(ordered[i-1])))
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv
	}
	mean := sum / float64(len(intervals))

	var sq float64
	for _, iv := range intervals {
		d := iv - mean
		sq += d * d
	}
	stdDev := math.Sqrt(sq / float64(len(intervals)))
	consistent := stdDev < consistencyRatio*mean

	return CycleStatistics{
		Status:              StatusComputed,
		AverageIntervalDays: &mean,
		StdDevDays:          &stdDev,
		Consistent:          &consistent,
	}
}

// WholeDays floors a duration to whole days.
func WholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}

// Recommendation renders the presentation text for a set of statistics.
func Recommendation(s CycleStatistics) string {
	if !s.Computed() {
		return fmt.Sprintf("Keep journaling: at least %d occurrences are needed to detect a cycle.", MinOccurrences)
	}
	days := int(math.Round(*s.AverageIntervalDays))
	if s.Consistent != nil && *s.Consistent {
		return fmt.Sprintf("This pattern follows roughly a %d-day cycle.", days)
	}
	return fmt.Sprintf("This pattern recurs irregularly, about every %d days on average.", days)
}
