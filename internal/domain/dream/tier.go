package dream

import "strings"

// Tier is the subscription level used to gate derived insight fields.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

var tierRank = map[Tier]int{
	TierFree:    0,
	TierBasic:   1,
	TierPremium: 2,
	TierVIP:     3,
}

// ParseTier maps a raw tier name onto a Tier. Unknown values degrade to TierFree.
func ParseTier(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRank[t]; ok {
		return t
	}
	return TierFree
}

// AtLeast reports whether t is the same as or above other.
func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

// AdvancedDetection reports whether cycle detection and evolution tracking are enabled.
func (t Tier) AdvancedDetection() bool {
	return t.AtLeast(TierPremium)
}

// NarrativeInsights reports whether generated narrative text may be shown or requested.
func (t Tier) NarrativeInsights() bool {
	return t == TierVIP
}
