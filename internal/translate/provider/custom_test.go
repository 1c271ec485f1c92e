package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

func newCustomRequest() *translate.Request {
	return translate.NewRequest(&translate.Prompt{Messages: []translate.Message{{Role: "user", Content: "hi"}}}, 0.5, nil)
}

func TestCustomClientSendParsesSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"bonjour"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer srv.Close()

	s := settings.New()
	s["server_address"] = srv.URL
	s["endpoint"] = "/v1/chat/completions"
	client := NewCustomClient(s)

	resp, err := client.Send(context.Background(), newCustomRequest(), 0.5)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d, want 3", resp.TotalTokens)
	}
}

func TestCustomClientSendDoesNotRetry4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`bad request`))
	}))
	defer srv.Close()

	s := settings.New()
	s["server_address"] = srv.URL
	s["max_retries"] = 3
	client := NewCustomClient(s)

	_, err := client.Send(context.Background(), newCustomRequest(), 0.5)
	if err == nil {
		t.Fatal("expected an error for a 4xx response")
	}
	if _, ok := err.(*suberrors.ClientResponseError); !ok {
		t.Errorf("expected *ClientResponseError, got %T", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for a 4xx, got %d", calls.Load())
	}
}

func TestCustomClientSendRetries5xxThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`server error`))
	}))
	defer srv.Close()

	s := settings.New()
	s["server_address"] = srv.URL
	s["max_retries"] = 2
	s["backoff_time"] = time.Millisecond
	client := NewCustomClient(s)

	_, err := client.Send(context.Background(), newCustomRequest(), 0.5)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if _, ok := err.(*suberrors.TranslationImpossibleError); !ok {
		t.Errorf("expected *TranslationImpossibleError, got %T", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 total attempts (1 + 2 retries), got %d", calls.Load())
	}
}

func TestCustomClientAbortStopsInFlightRequest(t *testing.T) {
	s := settings.New()
	s["server_address"] = "http://127.0.0.1:1"
	client := NewCustomClient(s)
	client.Abort()

	_, err := client.Send(context.Background(), newCustomRequest(), 0.5)
	if err == nil {
		t.Fatal("expected an error for an aborted client")
	}
	if _, ok := err.(*suberrors.TranslationAbortedError); !ok {
		t.Errorf("expected *TranslationAbortedError, got %T", err)
	}
}

func TestCustomClientSupportsStreamingIsTrue(t *testing.T) {
	if !NewCustomClient(settings.New()).SupportsStreaming() {
		t.Error("expected CustomClient to support streaming")
	}
}
