package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MockProvider provides a deterministic keyword-based implementation for local development and
// tests. It never calls the network.
type MockProvider struct {
	mu        sync.RWMutex
	available bool
	reasoning bool
}

// NewMockProvider creates a new mock LLM provider
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true}
}

// IsAvailable returns whether the mock provider is available
func (m *MockProvider) IsAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// SetAvailable controls whether the mock provider is available (for testing)
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetReasoning makes the provider answer in the multi-step shape.
func (m *MockProvider) SetReasoning(reasoning bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasoning = reasoning
}

// Complete answers classification prompts with JSON and everything else with advisory text.
func (m *MockProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	m.mu.RLock()
	available, reasoning := m.available, m.reasoning
	m.mu.RUnlock()
	if !available {
		return Reply{}, fmt.Errorf("mock provider: %w", ErrUnavailable)
	}

	var answer string
	if options.Format == "json" {
		raw, err := json.Marshal(mockClassify(dreamTextFrom(prompt)))
		if err != nil {
			return Reply{}, err
		}
		answer = "```json\n" + string(raw) + "\n```"
	} else {
		answer = "Patterns like this often ease when sleep routines are steady. You might notice whether they follow stressful days."
	}

	if reasoning {
		return ReasoningReply("Reading the dream.", "Listing themes and feelings.", answer), nil
	}
	return TextReply(answer), nil
}

// dreamTextFrom pulls the text after the "Dream:" marker used by the classification prompt.
func dreamTextFrom(prompt string) string {
	if i := strings.LastIndex(prompt, "Dream:"); i >= 0 {
		return prompt[i+len("Dream:"):]
	}
	return prompt
}

type mockClassification struct {
	Type       string   `json:"type"`
	Themes     []string `json:"themes"`
	Emotions   []string `json:"emotions"`
	Symbols    []string `json:"symbols"`
	Confidence float64  `json:"confidence"`
}

var mockKeywords = []struct {
	word    string
	theme   string
	emotion string
	symbol  string
}{
	{"fall", "falling", "fear", ""},
	{"chase", "being chased", "panic", ""},
	{"teeth", "losing teeth", "anxiety", "teeth"},
	{"water", "water", "", "water"},
	{"ocean", "water", "awe", "ocean"},
	{"house", "home", "", "house"},
	{"school", "school", "stress", "classroom"},
	{"exam", "school", "stress", "exam"},
	{"fly", "flying", "joy", "sky"},
	{"dark", "darkness", "fear", "shadow"},
	{"monster", "monsters", "terror", "monster"},
	{"late", "being late", "stress", "clock"},
}

func mockClassify(text string) mockClassification {
	text = strings.ToLower(text)
	out := mockClassification{Type: "normal", Themes: []string{}, Emotions: []string{}, Symbols: []string{}}

	add := func(list []string, v string) []string {
		if v == "" || len(list) >= 5 {
			return list
		}
		for _, existing := range list {
			if existing == v {
				return list
			}
		}
		return append(list, v)
	}

	for _, kw := range mockKeywords {
		if strings.Contains(text, kw.word) {
			out.Themes = add(out.Themes, kw.theme)
			out.Emotions = add(out.Emotions, kw.emotion)
			out.Symbols = add(out.Symbols, kw.symbol)
		}
	}

	for _, e := range out.Emotions {
		if e == "fear" || e == "panic" || e == "terror" {
			out.Type = "nightmare"
			break
		}
	}
	if out.Type == "normal" && (strings.Contains(text, "again") || strings.Contains(text, "same dream")) {
		out.Type = "recurring"
	}
	if len(out.Themes) > 0 {
		out.Confidence = 0.7
	}
	return out
}
