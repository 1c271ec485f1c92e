package provider

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// BedrockClient implements Client against the Anthropic-on-Bedrock
// "messages" wire shape via InvokeModel, grounded on
// original_source/scripts/bedrock-subtrans.py (a supplemented provider
// not present in spec.md's distillation, added per the teacher's
// multi-provider shape).
type BedrockClient struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewBedrockClient builds a BedrockClient from settings (region,
// model_id defaulting to an Anthropic Claude Bedrock model id,
// max_tokens defaulting to 4096). Credentials are resolved by the
// default AWS config chain (env vars, shared config, IAM role).
func NewBedrockClient(ctx context.Context, s settings.Settings) (*BedrockClient, error) {
	region := s.GetStringOr("region", "us-east-1")
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, suberrors.NewProviderConfigurationError("bedrock: failed to load AWS config: " + err.Error())
	}
	modelID := s.GetStringOr("model_id", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: s.GetIntOr("max_tokens", 4096),
	}, nil
}

func (c *BedrockClient) SupportsStreaming() bool { return false }

func (c *BedrockClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *BedrockClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

type bedrockAnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockAnthropicRequest struct {
	AnthropicVersion string                    `json:"anthropic_version"`
	MaxTokens        int                       `json:"max_tokens"`
	System           string                    `json:"system,omitempty"`
	Messages         []bedrockAnthropicMessage `json:"messages"`
	Temperature      float64                   `json:"temperature,omitempty"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Send invokes modelID with the Anthropic Messages wire format Bedrock
// expects for Claude models (spec.md §4.6).
func (c *BedrockClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var system string
	var messages []bedrockAnthropicMessage
	for _, m := range request.Prompt.Messages {
		switch m.Role {
		case "system", "developer":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		default:
			messages = append(messages, bedrockAnthropicMessage{Role: "user", Content: m.Content})
		}
	}

	body, err := json.Marshal(bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxTokens,
		System:           system,
		Messages:         messages,
		Temperature:      temperature,
	})
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "bedrock: failed to encode request", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "bedrock invoke model failed", err)
	}

	var parsed bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return nil, suberrors.NewTranslationResponseError("bedrock returned unparseable body", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, suberrors.NewTranslationResponseError("bedrock returned empty content", nil)
	}

	return &translate.Response{
		Text:         text,
		FinishReason: parsed.StopReason,
		PromptTokens: parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}, nil
}
