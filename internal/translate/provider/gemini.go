package provider

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// GeminiClient implements Client on top of the genai Models.GenerateContent
// API, grounded on _examples/mgpai22-lipi's GeminiTranslator.
type GeminiClient struct {
	client *genai.Client
	model  string

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewGeminiClient builds a GeminiClient from settings (api_key, model,
// defaulting to gemini-2.5-flash).
func NewGeminiClient(ctx context.Context, s settings.Settings) (*GeminiClient, error) {
	apiKey := s.GetStringOr("api_key", "")
	if apiKey == "" {
		return nil, suberrors.NewProviderConfigurationError("gemini: api_key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, suberrors.NewProviderConfigurationError("gemini: failed to create client: " + err.Error())
	}
	model := s.GetStringOr("model", "gemini-2.5-flash")
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) SupportsStreaming() bool { return false }

func (c *GeminiClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *GeminiClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// Send concatenates request.Prompt.Messages into a single user turn,
// since genai.Content in this SDK version has no distinct system role
// for simple text generation (spec.md §4.6).
func (c *GeminiClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var text string
	for _, m := range request.Prompt.Messages {
		if text != "" {
			text += "\n\n"
		}
		text += m.Content
	}

	parts := []*genai.Part{genai.NewPartFromText(text)}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "gemini generate content failed", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return nil, suberrors.NewTranslationResponseError("gemini returned no candidates", nil)
	}

	var responseText, finishReason string
	for _, candidate := range result.Candidates {
		finishReason = string(candidate.FinishReason)
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}
	if responseText == "" {
		return nil, suberrors.NewTranslationResponseError("gemini returned empty text", nil)
	}

	resp := &translate.Response{
		Text:         responseText,
		FinishReason: finishReason,
	}
	if result.UsageMetadata != nil {
		resp.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
		resp.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}
	return resp, nil
}
