package subtitle

import (
	"testing"
	"time"
)

func TestLineValid(t *testing.T) {
	start := 2 * time.Second
	valid := &Line{Number: 1, Start: &start}
	if !valid.Valid() {
		t.Error("expected line with positive number and start to be valid")
	}
	if (&Line{Number: 0, Start: &start}).Valid() {
		t.Error("expected line with zero number to be invalid")
	}
	if (&Line{Number: 1}).Valid() {
		t.Error("expected line with nil start to be invalid")
	}
}

func TestLineDuration(t *testing.T) {
	l := NewLine(1, time.Second, 3*time.Second, "hello")
	if got := l.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
}

func TestLineCloneIsIndependent(t *testing.T) {
	l := NewLine(1, time.Second, 2*time.Second, "hi")
	l.Metadata = map[string]any{"cue_id": "x"}

	clone := l.Clone()
	clone.Text = "bye"
	*clone.Start = 5 * time.Second
	clone.Metadata["cue_id"] = "y"

	if l.Text != "hi" {
		t.Errorf("original text mutated: %q", l.Text)
	}
	if *l.Start != time.Second {
		t.Errorf("original start mutated: %v", *l.Start)
	}
	if l.Metadata["cue_id"] != "x" {
		t.Errorf("original metadata mutated: %v", l.Metadata["cue_id"])
	}
}

func TestAsTranslationPreservesTimingAndNumber(t *testing.T) {
	l := NewLine(7, time.Second, 2*time.Second, "original")
	translated := l.AsTranslation("translated")

	if translated.Number != 7 {
		t.Errorf("Number = %d, want 7", translated.Number)
	}
	if *translated.Start != time.Second || *translated.End != 2*time.Second {
		t.Error("translated line should keep the original's timing")
	}
	if translated.Text != "translated" {
		t.Errorf("Text = %q, want translated", translated.Text)
	}
	if l.Text != "original" {
		t.Error("AsTranslation should not mutate the receiver")
	}
}
