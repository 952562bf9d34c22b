// Package llm is the transport to the external text-generation collaborators used for dream
// classification and narrative insights.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by providers that are switched off or short-circuited.
var ErrUnavailable = errors.New("llm provider unavailable")

// Provider defines the interface for LLM providers (OpenAI-compatible endpoints, mock, etc.)
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (Reply, error)
	IsAvailable() bool
}

// CompletionOptions configures LLM completion requests
type CompletionOptions struct {
	Model       string  `json:"model"`
	System      string  `json:"system"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Format      string  `json:"format"` // "json" or "text"
}

// ReplyKind tells which shape a collaborator reply arrived in.
type ReplyKind int

const (
	// ReplyText carries the answer directly in Text.
	ReplyText ReplyKind = iota
	// ReplyReasoning carries a sequence of reasoning steps; the last one holds the answer.
	ReplyReasoning
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// Reply is a collaborator response in either of its two shapes.
type Reply struct {
	Kind  ReplyKind
	Text  string
	Steps []string
}

// TextReply builds a direct-text reply.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// ReasoningReply builds a multi-step reply.
func ReasoningReply(steps ...string) Reply {
	return Reply{Kind: ReplyReasoning, Steps: steps}
}

// Answer returns the payload that holds the answer: Text for direct replies, the last step for
// reasoning replies. ok is false when that payload is missing.
func (r Reply) Answer() (string, bool) {
	switch r.Kind {
	case ReplyText:
		return r.Text, r.Text != ""
	case ReplyReasoning:
		if len(r.Steps) == 0 {
			return "", false
		}
		last := r.Steps[len(r.Steps)-1]
		return last, last != ""
	default:
		return "", false
	}
}
