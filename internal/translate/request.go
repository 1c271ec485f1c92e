package translate

import "strings"

// StreamingCallback receives each partial Translation as streaming
// deltas complete full `<line n="K">...</line>` entries (spec.md §4.5).
type StreamingCallback func(partial *Translation)

// Request carries a Prompt to a provider client plus optional
// streaming support (spec.md §4.5).
type Request struct {
	Prompt            *Prompt
	Temperature       float64
	IsStreaming       bool
	StreamingCallback StreamingCallback

	buffer strings.Builder
	parser *Parser
}

// NewRequest returns a Request for prompt, streaming only if a
// callback is supplied.
func NewRequest(prompt *Prompt, temperature float64, callback StreamingCallback) *Request {
	r := &Request{
		Prompt:            prompt,
		Temperature:       temperature,
		StreamingCallback: callback,
		IsStreaming:       callback != nil,
	}
	r.parser = NewParser()
	return r
}

// Buffer returns the accumulated streaming text so far.
func (r *Request) Buffer() string { return r.buffer.String() }

// ProcessStreamingDelta appends fragment to the buffer and, for every
// complete `<line n="K">...</line>` entry the parser can now extract,
// invokes StreamingCallback with a partial Translation (spec.md §4.5,
// invariant 5). The parser never restarts from zero (spec.md §9).
func (r *Request) ProcessStreamingDelta(fragment string) {
	r.buffer.WriteString(fragment)
	if r.parser == nil {
		r.parser = NewParser()
	}
	lines := r.parser.Feed(fragment)
	if len(lines) == 0 || r.StreamingCallback == nil {
		return
	}
	r.StreamingCallback(&Translation{Lines: lines})
}

// Response is the provider-agnostic result of a completed request
// (spec.md §3 Translation entity, §4.6 send() contract).
type Response struct {
	Text             string
	FinishReason     string
	Reasoning        string
	PromptTokens     int
	OutputTokens     int
	TotalTokens      int
	CachedTokens     int
	ReasoningTokens  int
	ResponseTimeSecs float64
}

const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
	FinishReasonError         = "error"
	FinishReasonAborted       = "aborted"
)
