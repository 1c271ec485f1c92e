package provider

import (
	"context"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// OpenAIChatClient implements Client on top of OpenAI's Chat
// Completions API, grounded on _examples/mgpai22-lipi's OpenAITranslator.
type OpenAIChatClient struct {
	client openai.Client
	model  string

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewOpenAIChatClient builds an OpenAIChatClient from settings
// (api_key, model, defaulting to gpt-5-mini).
func NewOpenAIChatClient(s settings.Settings) (*OpenAIChatClient, error) {
	apiKey := s.GetStringOr("api_key", "")
	if apiKey == "" {
		return nil, suberrors.NewProviderConfigurationError("openai: api_key is required")
	}
	model := s.GetStringOr("model", "gpt-5-mini")
	return &OpenAIChatClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *OpenAIChatClient) SupportsStreaming() bool { return false }

func (c *OpenAIChatClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *OpenAIChatClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func toChatMessages(messages []translate.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system", "developer":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Send issues a single Chat Completions request for request.Prompt.Messages
// (spec.md §4.6).
func (c *OpenAIChatClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    toChatMessages(request.Prompt.Messages),
		Model:       c.model,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "openai chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, suberrors.NewTranslationResponseError("openai returned no choices", nil)
	}

	choice := completion.Choices[0]
	resp := &translate.Response{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	if completion.Usage.TotalTokens > 0 {
		resp.PromptTokens = int(completion.Usage.PromptTokens)
		resp.OutputTokens = int(completion.Usage.CompletionTokens)
		resp.TotalTokens = int(completion.Usage.TotalTokens)
	}
	return resp, nil
}
