// Package format implements the subtitle format registry and the
// pluggable SRT/WebVTT/ASS handlers described in spec.md §4.4 and §6.
package format

import "time"

// ParsedLine is one cue/dialogue as produced by a Handler.Parse* call.
type ParsedLine struct {
	Number   int
	Start    time.Duration
	End      time.Duration
	Text     string
	Metadata map[string]any
}

// SubtitleData is the handler-agnostic result of a parse, or the
// input to Compose.
type SubtitleData struct {
	Lines          []ParsedLine
	Metadata       map[string]any
	DetectedFormat string
}

// Handler is the contract every format implementation satisfies
// (spec.md §4.4).
type Handler interface {
	// Extension is the canonical, lowercase, dot-prefixed extension
	// this handler is registered for (".srt", ".vtt", ".ass").
	Extension() string
	// Priority breaks ties when more than one handler accepts the
	// same ambiguous content; higher wins.
	Priority() int
	// Sniff reports whether text looks like this handler's format.
	Sniff(text string) bool
	ParseString(text string) (*SubtitleData, error)
	LoadFile(path string) (*SubtitleData, error)
	Compose(data *SubtitleData) (string, error)
}
