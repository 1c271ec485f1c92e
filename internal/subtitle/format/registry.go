package format

import (
	"sort"
	"strings"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// Registry resolves a Handler by file extension or by sniffing file
// content, supporting priority-ordered tie-breaking on ambiguous
// extensions (spec.md §4.4, §5, §9).
type Registry struct {
	handlers []Handler
}

// NewRegistry returns an empty registry; tests use this to control
// exactly which handlers participate in resolution.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry pre-populated with the built-in
// SRT, WebVTT and ASS handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSRTHandler())
	r.Register(NewVTTHandler())
	r.Register(NewASSHandler())
	return r
}

// Register adds a handler, keeping handlers for the same extension
// sorted by descending priority so HandlerForFormat picks the highest
// priority match first.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].Priority() > r.handlers[j].Priority()
	})
}

// Clear removes all registered handlers.
func (r *Registry) Clear() {
	r.handlers = nil
}

// HandlerForFormat resolves a handler by extension, case-insensitively,
// accepting both ".srt" and "srt" style inputs.
func (r *Registry) HandlerForFormat(ext string) (Handler, error) {
	ext = normalizeExt(ext)
	for _, h := range r.handlers {
		if normalizeExt(h.Extension()) == ext {
			return h, nil
		}
	}
	return nil, suberrors.NewSubtitleParseError("no handler registered for format "+ext, nil)
}

// HandlerForPath resolves a handler for a file path: it first tries
// the path's extension, then falls back to content sniffing when the
// extension is unknown or ambiguous (spec.md §4.4).
func (r *Registry) HandlerForPath(path string) (Handler, error) {
	ext := extensionOf(path)
	if h, err := r.HandlerForFormat(ext); err == nil {
		return h, nil
	}

	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.HandlerForContent(text)
}

// HandlerForContent sniffs content against all registered handlers in
// priority order, returning the first match.
func (r *Registry) HandlerForContent(text string) (Handler, error) {
	for _, h := range r.handlers {
		if h.Sniff(text) {
			return h, nil
		}
	}
	return nil, suberrors.NewSubtitleParseError("could not detect subtitle format from content", nil)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func extensionOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return strings.ToLower(path[idx:])
}
