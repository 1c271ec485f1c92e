package provider

import (
	"context"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// AnthropicClient implements Client on top of the Anthropic Messages
// API, grounded on _examples/mgpai22-lipi's AnthropicTranslator.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewAnthropicClient builds an AnthropicClient from settings (api_key,
// model, defaulting to Claude Haiku 4.5; max_tokens defaulting to 4096).
func NewAnthropicClient(s settings.Settings) (*AnthropicClient, error) {
	apiKey := s.GetStringOr("api_key", "")
	if apiKey == "" {
		return nil, suberrors.NewProviderConfigurationError("anthropic: api_key is required")
	}
	model := anthropic.Model(s.GetStringOr("model", ""))
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(s.GetIntOr("max_tokens", 4096)),
	}, nil
}

func (c *AnthropicClient) SupportsStreaming() bool { return false }

func (c *AnthropicClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *AnthropicClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// Send issues a single Messages.New request. Anthropic has no "system"
// role message in its Messages list: a system prompt turn is passed via
// MessageNewParams.System instead, and the remaining turns become user
// or assistant blocks (spec.md §4.6).
func (c *AnthropicClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var system string
	var messages []anthropic.MessageParam
	for _, m := range request.Prompt.Messages {
		switch m.Role {
		case "system", "developer":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "anthropic message request failed", err)
	}
	if len(message.Content) == 0 {
		return nil, suberrors.NewTranslationResponseError("anthropic returned empty content", nil)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &translate.Response{
		Text:         text,
		FinishReason: string(message.StopReason),
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}
