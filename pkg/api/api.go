// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

// AnalyzeDreamRequest is the expected body for POST /dreams/{dreamID}/analyze.
type AnalyzeDreamRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
	// OccurredAt is optional; RFC3339. Defaults to the time of the request.
	OccurredAt string `json:"occurredAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// DreamPatternResponse is the API representation of a classified dream.
type DreamPatternResponse struct {
	DreamID    string   `json:"dreamId"`
	Type       string   `json:"type"`
	Themes     []string `json:"themes"`
	Emotions   []string `json:"emotions"`
	Symbols    []string `json:"symbols"`
	Confidence float64  `json:"confidence"`
}

// AnalyzeDreamResponse is the body returned by POST /dreams/{dreamID}/analyze.
type AnalyzeDreamResponse struct {
	Pattern           DreamPatternResponse `json:"pattern"`
	NightmareRecorded bool                 `json:"nightmareRecorded"`
	Cycle             *CycleOutcome        `json:"cycle,omitempty"`
	// Failed names aggregation branches that did not complete; the dream itself was accepted.
	Failed []string `json:"failed,omitempty"`
}

// CycleOutcome reports what the cycle matcher did with the dream.
type CycleOutcome struct {
	CycleID    string  `json:"cycleId,omitempty"`
	Decision   string  `json:"decision"`
	Similarity float64 `json:"similarity"`
}

// TrackingSettings are the per-user opt-ins. Both fields must be present on PUT.
type TrackingSettings struct {
	TrackNightmares      *bool `json:"trackNightmares" validate:"required"`
	TrackRecurringDreams *bool `json:"trackRecurringDreams" validate:"required"`
}

// ThemeFrequencyResponse lists a user's most frequent themes.
type ThemeFrequencyResponse struct {
	Themes []ThemeFrequency `json:"themes"`
}

// ThemeFrequency is a single theme counter.
type ThemeFrequency struct {
	Theme        string `json:"theme"`
	Count        int    `json:"count"`
	LastOccurred string `json:"lastOccurred"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
