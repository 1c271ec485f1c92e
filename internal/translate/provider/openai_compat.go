package provider

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// openAICompatClient implements Client against any OpenAI-compatible
// chat-completions endpoint (Mistral, DeepSeek) via sashabaranov/go-openai
// with a provider-specific BaseURL, grounded on
// _examples/21d5-SRTran's OpenRouterService/LMStudioService, which both
// point openai.DefaultConfig at a non-OpenAI BaseURL.
type openAICompatClient struct {
	name   string
	client *openai.Client
	model  string

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

func newOpenAICompatClient(name, baseURL, defaultModel string, s settings.Settings) (*openAICompatClient, error) {
	apiKey := s.GetStringOr("api_key", "")
	if apiKey == "" {
		return nil, suberrors.NewProviderConfigurationError(name + ": api_key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = s.GetStringOr("base_url", baseURL)
	return &openAICompatClient{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
		model:  s.GetStringOr("model", defaultModel),
	}, nil
}

// NewMistralClient builds an openAICompatClient pointed at the Mistral
// "la plateforme" OpenAI-compatible endpoint.
func NewMistralClient(s settings.Settings) (Client, error) {
	return newOpenAICompatClient("mistral", "https://api.mistral.ai/v1", "mistral-large-latest", s)
}

// NewDeepSeekClient builds an openAICompatClient pointed at the
// DeepSeek OpenAI-compatible endpoint.
func NewDeepSeekClient(s settings.Settings) (Client, error) {
	return newOpenAICompatClient("deepseek", "https://api.deepseek.com/v1", "deepseek-chat", s)
}

func (c *openAICompatClient) SupportsStreaming() bool { return false }

func (c *openAICompatClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *openAICompatClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func toCompatMessages(messages []translate.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system", "developer":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func (c *openAICompatClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toCompatMessages(request.Prompt.Messages),
		Temperature: float32(temperature),
	})
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, c.name+" chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, suberrors.NewTranslationResponseError(c.name+" returned no choices", nil)
	}

	return &translate.Response{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}
