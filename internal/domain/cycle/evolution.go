package cycle

// Stability describes whether a cycle's themes have shifted since it was founded.
type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityEvolving Stability = "evolving"
)

// Evolution diffs a cycle's first occurrence against its most recent one.
type Evolution struct {
	Stability       Stability `json:"stability" dynamodbav:"Stability"`
	NewElements     []string  `json:"newElements" dynamodbav:"NewElements"`
	DroppedElements []string  `json:"droppedElements" dynamodbav:"DroppedElements"`
	// NarrativeInsight is opaque collaborator text; nil when none was produced.
	NarrativeInsight *string `json:"narrativeInsight,omitempty" dynamodbav:"NarrativeInsight,omitempty"`
}

// ComputeEvolution compares the themes of the first and last occurrences. It returns nil for
// an empty list.
func ComputeEvolution(occurrences []Occurrence) *Evolution {
	if len(occurrences) == 0 {
		return nil
	}
	first := occurrences[0].Themes
	latest := occurrences[len(occurrences)-1].Themes

	ev := &Evolution{
		NewElements:     difference(latest, first),
		DroppedElements: difference(first, latest),
	}
	if len(ev.NewElements) == 0 && len(ev.DroppedElements) == 0 {
		ev.Stability = StabilityStable
	} else {
		ev.Stability = StabilityEvolving
	}
	return ev
}

// Clone returns a deep copy.
func (e *Evolution) Clone() *Evolution {
	if e == nil {
		return nil
	}
	out := &Evolution{
		Stability:       e.Stability,
		NewElements:     append([]string{}, e.NewElements...),
		DroppedElements: append([]string{}, e.DroppedElements...),
	}
	if e.NarrativeInsight != nil {
		s := *e.NarrativeInsight
		out.NarrativeInsight = &s
	}
	return out
}

// difference returns a − b, keeping a's order.
func difference(a, b []string) []string {
	exclude := toSet(b)
	out := []string{}
	for _, it := range a {
		if _, ok := exclude[it]; !ok {
			out = append(out, it)
		}
	}
	return out
}
