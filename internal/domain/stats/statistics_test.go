package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)

// spaced builds timestamps separated by the given gaps in days.
func spaced(gaps ...int) []time.Time {
	ts := []time.Time{origin}
	for _, g := range gaps {
		ts = append(ts, ts[len(ts)-1].AddDate(0, 0, g))
	}
	return ts
}

func TestComputeCycleStatistics_Consistent(t *testing.T) {
	s := ComputeCycleStatistics(spaced(7, 7, 7))

	require.True(t, s.Computed())
	assert.Equal(t, StatusComputed, s.Status)
	assert.InDelta(t, 7.0, *s.AverageIntervalDays, 1e-9)
	assert.InDelta(t, 0.0, *s.StdDevDays, 1e-9)
	assert.True(t, *s.Consistent)
}

func TestComputeCycleStatistics_Irregular(t *testing.T) {
	s := ComputeCycleStatistics(spaced(1, 30, 2))

	require.True(t, s.Computed())
	assert.InDelta(t, 11.0, *s.AverageIntervalDays, 1e-9)
	assert.False(t, *s.Consistent)
}

func TestComputeCycleStatistics_Insufficient(t *testing.T) {
	tests := []struct {
		name string
		ts   []time.Time
	}{
		{"nil", nil},
		{"one", spaced()},
		{"two", spaced(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s CycleStatistics
			assert.NotPanics(t, func() { s = ComputeCycleStatistics(tt.ts) })
			assert.Equal(t, StatusInsufficient, s.Status)
			assert.Nil(t, s.AverageIntervalDays)
			assert.Nil(t, s.StdDevDays)
			assert.Nil(t, s.Consistent)
		})
	}
}

func TestComputeCycleStatistics_FloorsPartialDays(t *testing.T) {
	ts := []time.Time{
		origin,
		origin.Add(47 * time.Hour), // floors to 1
		origin.Add(95 * time.Hour), // 48h later, 2
	}
	s := ComputeCycleStatistics(ts)

	require.True(t, s.Computed())
	assert.InDelta(t, 1.5, *s.AverageIntervalDays, 1e-9)
}

func TestComputeCycleStatistics_SameDayIsNotConsistent(t *testing.T) {
	s := ComputeCycleStatistics([]time.Time{origin, origin.Add(time.Hour), origin.Add(2 * time.Hour)})

	require.True(t, s.Computed())
	assert.Zero(t, *s.AverageIntervalDays)
	assert.False(t, *s.Consistent)
}

func TestComputeCycleStatistics_DoesNotMutateInput(t *testing.T) {
	ts := []time.Time{origin.AddDate(0, 0, 14), origin, origin.AddDate(0, 0, 7)}
	s := ComputeCycleStatistics(ts)

	assert.Equal(t, origin.AddDate(0, 0, 14), ts[0])
	assert.InDelta(t, 7.0, *s.AverageIntervalDays, 1e-9)
}

func TestRecommendation(t *testing.T) {
	assert.Contains(t, Recommendation(ComputeCycleStatistics(spaced(7, 7, 7))), "roughly a 7-day cycle")
	assert.Contains(t, Recommendation(ComputeCycleStatistics(spaced(1, 30, 2))), "irregularly")
	assert.Contains(t, Recommendation(ComputeCycleStatistics(spaced(7))), "at least 3 occurrences")
}
