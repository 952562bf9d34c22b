package dream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTheme(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Falling", "falling"},
		{"collapses whitespace", "  being \t chased  ", "being_chased"},
		{"blank", "   ", ""},
		{"keeps unicode", "Überraschung", "überraschung"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTheme(tt.in))
		})
	}

	t.Run("caps length", func(t *testing.T) {
		got := NormalizeTheme(strings.Repeat("a", MaxThemeLength+20))
		assert.Len(t, got, MaxThemeLength)
	})
}

func TestNormalizeSet(t *testing.T) {
	got := NormalizeSet([]string{"Water", "water ", "", "dark  forest", "WATER"})
	assert.Equal(t, []string{"water", "dark_forest"}, got)
}

func TestDreamPattern_Elements(t *testing.T) {
	p := DreamPattern{
		Type:    TypeRecurring,
		Themes:  []string{"falling", "House"},
		Symbols: []string{"house", "stairs"},
	}
	assert.Equal(t, []string{"falling", "house", "stairs"}, p.Elements())
}

func TestNeutralPattern(t *testing.T) {
	p := NeutralPattern()
	assert.True(t, p.IsNeutral())
	assert.Equal(t, TypeNormal, p.Type)
	assert.NotNil(t, p.Themes)
	assert.Zero(t, p.Confidence)

	p.Themes = []string{"water"}
	assert.False(t, p.IsNeutral())
}

func TestTier(t *testing.T) {
	assert.Equal(t, TierVIP, ParseTier(" VIP "))
	assert.Equal(t, TierFree, ParseTier("platinum"))
	assert.Equal(t, TierFree, ParseTier(""))

	assert.False(t, TierFree.AdvancedDetection())
	assert.False(t, TierBasic.AdvancedDetection())
	assert.True(t, TierPremium.AdvancedDetection())
	assert.True(t, TierVIP.AdvancedDetection())

	assert.False(t, TierPremium.NarrativeInsights())
	assert.True(t, TierVIP.NarrativeInsights())
}
