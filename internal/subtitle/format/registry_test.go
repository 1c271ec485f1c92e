package format

import (
	"path/filepath"
	"testing"
)

func TestRegistryHandlerForFormatNormalizesExtension(t *testing.T) {
	r := DefaultRegistry()
	h, err := r.HandlerForFormat("SRT")
	if err != nil {
		t.Fatalf("HandlerForFormat returned error: %v", err)
	}
	if h.Extension() != ".srt" {
		t.Errorf("Extension() = %q, want .srt", h.Extension())
	}
}

func TestRegistryHandlerForFormatUnknown(t *testing.T) {
	r := DefaultRegistry()
	if _, err := r.HandlerForFormat(".xyz"); err == nil {
		t.Error("expected error for an unregistered format")
	}
}

func TestRegistryHandlerForPathFallsBackToSniff(t *testing.T) {
	r := DefaultRegistry()
	path := filepath.Join(t.TempDir(), "mystery.txt")
	if err := WriteFile(path, vttFixture); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	h, err := r.HandlerForPath(path)
	if err != nil {
		t.Fatalf("HandlerForPath returned error: %v", err)
	}
	if h.Extension() != ".vtt" {
		t.Errorf("expected content sniffing to resolve .vtt, got %q", h.Extension())
	}
}

func TestRegistryPriorityOrdering(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubHandler{ext: ".srt", priority: 1, sniffs: true})
	r.Register(&stubHandler{ext: ".srt", priority: 5, sniffs: true})

	h, err := r.HandlerForFormat(".srt")
	if err != nil {
		t.Fatalf("HandlerForFormat returned error: %v", err)
	}
	if h.Priority() != 5 {
		t.Errorf("expected higher priority handler to win, got priority %d", h.Priority())
	}
}

type stubHandler struct {
	ext      string
	priority int
	sniffs   bool
}

func (s *stubHandler) Extension() string { return s.ext }
func (s *stubHandler) Priority() int     { return s.priority }
func (s *stubHandler) Sniff(string) bool { return s.sniffs }
func (s *stubHandler) ParseString(string) (*SubtitleData, error) { return &SubtitleData{}, nil }
func (s *stubHandler) LoadFile(string) (*SubtitleData, error)    { return &SubtitleData{}, nil }
func (s *stubHandler) Compose(*SubtitleData) (string, error)     { return "", nil }
