package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/service/llm"
	appErrors "dreamlog-backend/pkg/errors"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Complete(ctx context.Context, prompt string, options llm.CompletionOptions) (llm.Reply, error) {
	args := m.Called(ctx, prompt, options)
	return args.Get(0).(llm.Reply), args.Error(1)
}

func (m *mockProvider) IsAvailable() bool {
	return m.Called().Bool(0)
}

const validJSON = `{"type":"nightmare","themes":["Falling","being  chased","falling"],"emotions":["Fear"],"symbols":[],"confidence":0.8}`

func TestDecode_Shapes(t *testing.T) {
	want := dream.DreamPattern{
		Type:       dream.TypeNightmare,
		Themes:     []string{"falling", "being_chased"},
		Emotions:   []string{"fear"},
		Symbols:    []string{},
		Confidence: 0.8,
	}

	tests := []struct {
		name  string
		reply llm.Reply
	}{
		{"plain text", llm.TextReply(validJSON)},
		{"json fence", llm.TextReply("```json\n" + validJSON + "\n```")},
		{"bare fence", llm.TextReply("```\n" + validJSON + "\n```")},
		{"single line fence", llm.TextReply("```json" + validJSON + "```")},
		{"reasoning last step", llm.ReasoningReply("I see falling.", "```json\n"+validJSON+"\n```")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		reply llm.Reply
	}{
		{"empty text", llm.TextReply("")},
		{"no steps", llm.ReasoningReply()},
		{"empty last step", llm.ReasoningReply(validJSON, "")},
		{"only fence", llm.TextReply("```json\n```")},
		{"prose", llm.TextReply("This dream is about falling.")},
		{"array", llm.TextReply(`[1,2]`)},
		{"trailing data", llm.TextReply(validJSON + ` {"x":1}`)},
		{"missing confidence", llm.TextReply(`{"type":"normal","themes":[],"emotions":[],"symbols":[]}`)},
		{"null themes", llm.TextReply(`{"type":"normal","themes":null,"emotions":[],"symbols":[],"confidence":0.1}`)},
		{"unknown type", llm.TextReply(`{"type":"lucid","themes":[],"emotions":[],"symbols":[],"confidence":0.1}`)},
		{"confidence above one", llm.TextReply(`{"type":"normal","themes":[],"emotions":[],"symbols":[],"confidence":1.5}`)},
		{"too many themes", llm.TextReply(`{"type":"normal","themes":["a","b","c","d","e","f"],"emotions":[],"symbols":[],"confidence":0.1}`)},
		{"wrong field type", llm.TextReply(`{"type":"normal","themes":"falling","emotions":[],"symbols":[],"confidence":0.1}`)},
		{"unknown kind", llm.Reply{Kind: llm.ReplyKind(7), Text: validJSON}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.reply)
			require.Error(t, err)
			assert.True(t, appErrors.IsMalformedResponse(err), "got %v", err)
		})
	}
}

func TestDecode_ZeroConfidenceIsPresent(t *testing.T) {
	got, err := Decode(llm.TextReply(`{"type":"normal","themes":[],"emotions":[],"symbols":[],"confidence":0}`))
	require.NoError(t, err)
	assert.True(t, got.IsNeutral())
}

func TestClassify_Success(t *testing.T) {
	p := new(mockProvider)
	p.On("IsAvailable").Return(true)
	p.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return len(prompt) > 0 && prompt[len(prompt)-len("I fell"):] == "I fell"
	}), mock.MatchedBy(func(o llm.CompletionOptions) bool { return o.Format == "json" })).
		Return(llm.TextReply(validJSON), nil)

	metrics := observability.NewCollector("test")
	c := New(p, Config{}, zap.NewNop(), metrics)

	got := c.Classify(context.Background(), "  I fell ")
	assert.Equal(t, dream.TypeNightmare, got.Type)
	assert.Equal(t, []string{"falling", "being_chased"}, got.Themes)
	p.AssertExpectations(t)
}

func TestClassify_FallsBackWithoutError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *mockProvider)
		text  string
	}{
		{
			name: "collaborator error",
			setup: func(p *mockProvider) {
				p.On("IsAvailable").Return(true)
				p.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(llm.Reply{}, errors.New("connection reset"))
			},
			text: "a dream",
		},
		{
			name: "malformed reply",
			setup: func(p *mockProvider) {
				p.On("IsAvailable").Return(true)
				p.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(llm.TextReply("sorry, I cannot"), nil)
			},
			text: "a dream",
		},
		{
			name: "unavailable",
			setup: func(p *mockProvider) {
				p.On("IsAvailable").Return(false)
			},
			text: "a dream",
		},
		{
			name:  "blank text",
			setup: func(p *mockProvider) {},
			text:  "   ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockProvider)
			tt.setup(p)
			core, logs := observer.New(zapcore.WarnLevel)

			got := New(p, Config{}, zap.New(core), nil).Classify(context.Background(), tt.text)

			assert.Equal(t, dream.NeutralPattern(), got)
			assert.Equal(t, 1, logs.FilterMessage("dream classification fell back to neutral pattern").Len())
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	p := new(mockProvider)
	p.On("IsAvailable").Return(true)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(llm.Reply{}, context.DeadlineExceeded)

	c := New(p, Config{Timeout: 20 * time.Millisecond}, zap.NewNop(), nil)

	start := time.Now()
	got := c.Classify(context.Background(), "slow dream")
	assert.Equal(t, dream.NeutralPattern(), got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassify_WithMockProvider(t *testing.T) {
	c := New(llm.NewMockProvider(), Config{}, zap.NewNop(), nil)
	got := c.Classify(context.Background(), "A monster chased me through a dark house")
	assert.Equal(t, dream.TypeNightmare, got.Type)
	assert.Contains(t, got.Themes, "being_chased")
	assert.Contains(t, got.Symbols, "house")
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, stripFence("```{\"a\":1}\n```"))
	assert.Equal(t, "", stripFence("```json\n```"))
}
