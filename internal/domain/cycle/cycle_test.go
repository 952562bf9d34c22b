package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		candidate []string
		common    []string
		want      float64
	}{
		{"identical", []string{"a", "b"}, []string{"a", "b"}, 1},
		{"half", []string{"a", "b"}, []string{"a", "c"}, 0.5},
		{"larger side is the denominator", []string{"a"}, []string{"a", "b", "c", "d"}, 0.25},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"both empty", nil, nil, 0},
		{"one empty", []string{"a"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.candidate, tt.common), 1e-9)
		})
	}
}

func TestSelect_FirstMatchWins(t *testing.T) {
	c1 := New("c1", "u", []string{"water", "boat", "storm", "night"}, Occurrence{DreamID: "d1", Timestamp: t0}, t0)
	c2 := New("c2", "u", []string{"water", "boat"}, Occurrence{DreamID: "d2", Timestamp: t0.Add(time.Hour)}, t0)
	candidate := []string{"water", "boat"}

	require.GreaterOrEqual(t, Similarity(candidate, c1.CommonElements), DefaultSimilarityThreshold)
	require.Greater(t, Similarity(candidate, c2.CommonElements), Similarity(candidate, c1.CommonElements))

	idx, score, ok := Select([]Cycle{c1, c2}, candidate, DefaultSimilarityThreshold)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestSelect_NoMatch(t *testing.T) {
	c1 := New("c1", "u", []string{"fire"}, Occurrence{DreamID: "d1", Timestamp: t0}, t0)

	idx, _, ok := Select([]Cycle{c1}, []string{"water", "boat"}, DefaultSimilarityThreshold)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)

	_, _, ok = Select(nil, []string{"water"}, DefaultSimilarityThreshold)
	assert.False(t, ok)
}

func TestNew_CopiesCandidate(t *testing.T) {
	candidate := []string{"a", "b"}
	c := New("c1", "u", candidate, Occurrence{DreamID: "d1", Timestamp: t0}, t0)
	candidate[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, c.CommonElements)
	assert.Equal(t, t0, c.FirstOccurrence)
}

func TestAppend_KeepsAscendingOrder(t *testing.T) {
	c := New("c1", "u", []string{"a"}, Occurrence{DreamID: "d1", Timestamp: t0}, t0)
	c.Append(Occurrence{DreamID: "d3", Timestamp: t0.AddDate(0, 0, 10)})
	c.Append(Occurrence{DreamID: "d2", Timestamp: t0.AddDate(0, 0, 5)})

	ids := []string{}
	for _, o := range c.Occurrences {
		ids = append(ids, o.DreamID)
	}
	assert.Equal(t, []string{"d1", "d2", "d3"}, ids)
	assert.Equal(t, t0.AddDate(0, 0, 10), c.LastOccurrence())
	assert.Equal(t, []string{"a"}, c.CommonElements)
}

func TestComputeEvolution(t *testing.T) {
	t.Run("stable", func(t *testing.T) {
		ev := ComputeEvolution([]Occurrence{
			{Themes: []string{"water"}},
			{Themes: []string{"water"}},
		})
		require.NotNil(t, ev)
		assert.Equal(t, StabilityStable, ev.Stability)
		assert.Empty(t, ev.NewElements)
		assert.Empty(t, ev.DroppedElements)
		assert.Nil(t, ev.NarrativeInsight)
	})

	t.Run("evolving", func(t *testing.T) {
		ev := ComputeEvolution([]Occurrence{
			{Themes: []string{"water", "boat"}},
			{Themes: []string{"sand"}},
			{Themes: []string{"water", "storm"}},
		})
		require.NotNil(t, ev)
		assert.Equal(t, StabilityEvolving, ev.Stability)
		assert.Equal(t, []string{"storm"}, ev.NewElements)
		assert.Equal(t, []string{"boat"}, ev.DroppedElements)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, ComputeEvolution(nil))
	})
}

func TestEvolutionClone(t *testing.T) {
	text := "insight"
	ev := &Evolution{Stability: StabilityEvolving, NewElements: []string{"a"}, NarrativeInsight: &text}
	cl := ev.Clone()
	cl.NewElements[0] = "b"
	*cl.NarrativeInsight = "changed"

	assert.Equal(t, "a", ev.NewElements[0])
	assert.Equal(t, "insight", *ev.NarrativeInsight)
	assert.Nil(t, (*Evolution)(nil).Clone())
}
