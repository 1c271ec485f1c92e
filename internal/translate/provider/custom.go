package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// CustomClient is the generic HTTP provider (spec.md §4.6), grounded
// on original_source/tests/PySubtransTests/test_CustomClient.py: HTTP
// 4xx raises ClientResponseError with exactly one POST attempt; 5xx
// retries up to max_retries then raises TranslationImpossibleError
// (max_retries=2 => 3 total attempts); on a streaming error the body
// is read before being used for error classification.
type CustomClient struct {
	ServerAddress string
	Endpoint      string
	APIKey        string
	MaxRetries    int
	BackoffTime   time.Duration

	httpClient *http.Client

	mu       sync.Mutex
	aborted  bool
	cancelFn context.CancelFunc
}

// NewCustomClient builds a CustomClient from settings
// (server_address, endpoint, apikey, max_retries, backoff_time).
func NewCustomClient(s settings.Settings) *CustomClient {
	return &CustomClient{
		ServerAddress: s.GetStringOr("server_address", ""),
		Endpoint:      s.GetStringOr("endpoint", "/v1/chat/completions"),
		APIKey:        s.GetStringOr("apikey", ""),
		MaxRetries:    s.GetIntOr("max_retries", 3),
		BackoffTime:   s.GetDurationOr("backoff_time", 5*time.Second),
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *CustomClient) SupportsStreaming() bool { return true }

func (c *CustomClient) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	if c.cancelFn != nil {
		c.cancelFn()
	}
}

func (c *CustomClient) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

type customRequestBody struct {
	Messages    []translate.Message `json:"messages"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream,omitempty"`
}

// Send POSTs prompt.Messages as JSON to ServerAddress+Endpoint,
// retrying 5xx responses with exponential backoff (initial
// BackoffTime, multiplier 2, cap 60s) up to MaxRetries times before
// raising TranslationImpossibleError; 4xx responses raise
// ClientResponseError immediately with no retry (spec.md §4.6/§4.7).
func (c *CustomClient) Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFn = cancel
	c.mu.Unlock()
	defer cancel()

	body := customRequestBody{
		Messages:    request.Prompt.Messages,
		Temperature: temperature,
		Stream:      request.IsStreaming,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding custom client request: %w", err)
	}

	backoff := c.BackoffTime
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	attempts := c.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if c.isAborted() {
			return nil, suberrors.NewTranslationAbortedError()
		}

		resp, err := c.doRequest(ctx, payload)
		if err == nil {
			return resp, nil
		}

		if _, ok := err.(*suberrors.ClientResponseError); ok {
			return nil, err
		}

		lastErr = err
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, suberrors.NewTranslationAbortedError()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
		}
	}

	return nil, suberrors.NewTranslationImpossibleError("custom client exhausted retries", lastErr)
}

func (c *CustomClient) doRequest(ctx context.Context, payload []byte) (*translate.Response, error) {
	url := c.ServerAddress + c.Endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, suberrors.NewServerResponseError(0, "custom client transport error", err)
	}
	defer httpResp.Body.Close()

	rawBody, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		return nil, suberrors.NewServerResponseError(httpResp.StatusCode, "failed reading response body", readErr)
	}

	if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
		return nil, suberrors.NewClientResponseError(httpResp.StatusCode,
			fmt.Sprintf("custom client request rejected: %s", string(rawBody)))
	}
	if httpResp.StatusCode >= 500 {
		return nil, suberrors.NewServerResponseError(httpResp.StatusCode,
			fmt.Sprintf("custom client server error: %s", string(rawBody)), nil)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, suberrors.NewTranslationResponseError("custom client returned unparseable body", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, suberrors.NewTranslationResponseError("custom client response has no choices", nil)
	}

	return &translate.Response{
		Text:         parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
		PromptTokens: parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		TotalTokens:  parsed.Usage.TotalTokens,
	}, nil
}
