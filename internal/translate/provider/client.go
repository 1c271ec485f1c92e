// Package provider implements the abstract translation chat-client
// capability from spec.md §4.6 and its concrete provider clients.
package provider

import (
	"context"

	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// Client is the unified provider interface spec.md §9 calls for:
// "unify behind a trait/interface with two operations: send(request)
// -> Response, and abort()". Chat-completions style providers
// (OpenAI, DeepSeek, Mistral, Anthropic, Gemini, Bedrock) and the
// OpenAI Responses/reasoning family are distinct implementations of
// this interface. It is structurally identical to translate.Client;
// every value returned by New satisfies both without a cast.
type Client interface {
	// Send dispatches request at the given sampling temperature and
	// returns the provider-agnostic Response (spec.md §4.6).
	Send(ctx context.Context, request *translate.Request, temperature float64) (*translate.Response, error)

	// Abort cooperatively cancels any in-flight request (spec.md §4.7).
	Abort()

	// SupportsStreaming reports whether this client+configuration
	// combination permits streaming (spec.md §4.5 is_streaming rule).
	SupportsStreaming() bool
}
