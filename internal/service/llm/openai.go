package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for self-hosted or proxy endpoints
	Model   string
}

// OpenAIProvider talks to an OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider. It fails when no API key is configured.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}, nil
}

// IsAvailable implements Provider.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.client != nil
}

// Complete implements Provider. A message delivered as several text parts is returned as a
// reasoning reply; plain content is returned as a text reply.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (Reply, error) {
	model := options.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: options.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	}
	if options.Format == "json" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	p.logger.Debug("openai completion",
		zap.String("model", model),
		zap.String("finishReason", string(choice.FinishReason)),
		zap.Int("totalTokens", resp.Usage.TotalTokens))

	return replyFromMessage(choice.Message), nil
}

func replyFromMessage(msg openai.ChatCompletionMessage) Reply {
	if len(msg.MultiContent) > 0 {
		steps := make([]string, 0, len(msg.MultiContent))
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				steps = append(steps, part.Text)
			}
		}
		return ReasoningReply(steps...)
	}
	return TextReply(msg.Content)
}
