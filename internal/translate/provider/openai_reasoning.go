package provider

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/gosubtrans/gosubtrans/internal/logging"
	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// OpenAIReasoningClient talks to OpenAI's Responses API for the
// reasoning-model family (o-series, gpt-5 "thinking" variants), grounded
// on original_source/PySubtrans/Providers/Clients/OpenAIReasoningClient.py:
// messages are validated against {user,system,developer,assistant},
// reasoning.effort defaults to "low", a BadRequestError mentioning
// "reasoning" is reported as a configuration problem, and
// 'max_output_tokens' normalizes to the legacy 'length' finish reason.
type OpenAIReasoningClient struct {
	client         openai.Client
	model          string
	reasoningEffort shared.ReasoningEffort

	// Log receives the structured bad-request dump from
	// logBadRequestDetails. Defaults to a nop logger so callers that
	// construct the client directly (tests, the factory) don't need to
	// wire one up.
	Log *logging.Logger

	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewOpenAIReasoningClient builds an OpenAIReasoningClient from
// settings (api_key, model, reasoning_effort defaulting to "low").
func NewOpenAIReasoningClient(s settings.Settings) (*OpenAIReasoningClient, error) {
	apiKey := s.GetStringOr("api_key", "")
	if apiKey == "" {
		return nil, suberrors.NewProviderConfigurationError("openai-reasoning: api_key is required")
	}
	model := s.GetStringOr("model", "o4-mini")
	effort := shared.ReasoningEffort(s.GetStringOr("reasoning_effort", "low"))
	return &OpenAIReasoningClient{
		client:          openai.NewClient(option.WithAPIKey(apiKey)),
		model:           model,
		reasoningEffort: effort,
		Log:             logging.NewNop(),
	}, nil
}

func (c *OpenAIReasoningClient) SupportsStreaming() bool { return true }

func (c *OpenAIReasoningClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *OpenAIReasoningClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// validReasoningRoles mirrors _convert_to_input_params's role whitelist.
var validReasoningRoles = map[string]bool{"user": true, "system": true, "developer": true, "assistant": true}

func (c *OpenAIReasoningClient) buildInput(messages []translate.Message) (responses.ResponseNewParamsInputUnion, error) {
	items := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		if !validReasoningRoles[role] {
			return responses.ResponseNewParamsInputUnion{}, suberrors.NewProviderConfigurationError(
				"openai-reasoning: invalid message role: " + role)
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRole(role)))
	}
	return responses.ResponseNewParamsInputUnion{OfInputItemList: items}, nil
}

// Send issues a non-streaming responses.create() call when
// request.IsStreaming is false, or iterates the streaming event loop
// (text deltas feeding request.ProcessStreamingDelta, a completed event
// ending the loop) otherwise.
func (c *OpenAIReasoningClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	if c.isAborted() {
		return nil, suberrors.NewTranslationAbortedError()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var instructions string
	var turns []translate.Message
	for _, m := range request.Prompt.Messages {
		if (m.Role == "system" || m.Role == "developer") && instructions == "" {
			instructions = m.Content
			continue
		}
		turns = append(turns, m)
	}

	input, err := c.buildInput(turns)
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model:       c.model,
		Input:       input,
		Instructions: openai.String(instructions),
		Reasoning:   shared.ReasoningParam{Effort: c.reasoningEffort},
	}

	if request.IsStreaming {
		return c.sendStreaming(ctx, request, params)
	}
	return c.sendOnce(ctx, params)
}

func (c *OpenAIReasoningClient) sendOnce(ctx context.Context, params responses.ResponseNewParams) (*translate.Response, error) {
	result, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, c.classifyError(err, "non-streaming")
	}
	return c.extractResponse(result)
}

func (c *OpenAIReasoningClient) sendStreaming(ctx context.Context, request *translate.Request, params responses.ResponseNewParams) (*translate.Response, error) {
	stream := c.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var final *responses.Response
	for stream.Next() {
		if c.isAborted() {
			return nil, suberrors.NewTranslationAbortedError()
		}
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case responses.ResponseTextDeltaEvent:
			request.ProcessStreamingDelta(variant.Delta)
		case responses.ResponseCompletedEvent:
			final = &variant.Response
		case responses.ResponseFailedEvent:
			final = &variant.Response
		case responses.ResponseIncompleteEvent:
			final = &variant.Response
		}
	}
	if err := stream.Err(); err != nil {
		return nil, c.classifyError(err, "streaming")
	}
	if final == nil {
		return nil, suberrors.NewTranslationResponseError("streaming did not complete successfully", nil)
	}
	return c.extractResponse(final)
}

func (c *OpenAIReasoningClient) classifyError(err error, where string) error {
	var apiErr *openai.Error
	msg := err.Error()
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			c.logBadRequestDetails(apiErr, where)
			if strings.Contains(strings.ToLower(msg), "reasoning") {
				return suberrors.NewProviderConfigurationError("openai-reasoning: invalid reasoning configuration: " + msg)
			}
			return suberrors.NewClientResponseError(apiErr.StatusCode, "openai-reasoning: bad request: "+msg)
		}
		return suberrors.NewServerResponseError(apiErr.StatusCode, "openai-reasoning request failed", err)
	}
	return suberrors.NewServerResponseError(0, "openai-reasoning request failed", err)
}

// logBadRequestDetails mirrors _log_bad_request_details: dump as much
// structured info as possible from a 4xx response so the exact
// validation failure the API returned is visible, not just its
// flattened message. where identifies which call site (non-streaming
// vs streaming) the error came from.
func (c *OpenAIReasoningClient) logBadRequestDetails(apiErr *openai.Error, where string) {
	requestID := ""
	if apiErr.Response != nil {
		requestID = apiErr.Response.Header.Get("x-request-id")
	}
	c.Log.Errorf("openai-reasoning bad request during %s: status=%d request_id=%s message=%s",
		where, apiErr.StatusCode, requestID, apiErr.Error())

	body := "<no response attached to error>"
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		if raw, readErr := io.ReadAll(apiErr.Response.Body); readErr == nil && len(raw) > 0 {
			body = string(raw)
		}
	}
	const maxBodyLen = 8000
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen] + " …[truncated]"
	}
	c.Log.Errorf("openai-reasoning bad request (%s) error body:\n%s", where, body)
}

// extractResponse mirrors _extract_text_content/_extract_usage_info/
// _normalize_finish_reason: text is the SDK's flattened output text, and
// 'max_output_tokens' normalizes to the legacy 'length' finish reason.
func (c *OpenAIReasoningClient) extractResponse(result *responses.Response) (*translate.Response, error) {
	if result == nil {
		return nil, suberrors.NewTranslationResponseError("no response from openai", nil)
	}

	text := result.OutputText()
	if text == "" {
		return nil, suberrors.NewTranslationResponseError("no text content found in response", nil)
	}

	finish := string(result.IncompleteDetails.Reason)
	if finish == "max_output_tokens" {
		finish = "length"
	}

	resp := &translate.Response{
		Text:         text,
		FinishReason: finish,
	}
	if result.Usage.TotalTokens > 0 {
		resp.PromptTokens = int(result.Usage.InputTokens)
		resp.OutputTokens = int(result.Usage.OutputTokens)
		resp.TotalTokens = int(result.Usage.TotalTokens)
		resp.ReasoningTokens = int(result.Usage.OutputTokensDetails.ReasoningTokens)
	}
	return resp, nil
}
