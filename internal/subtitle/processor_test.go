package subtitle

import (
	"testing"
	"time"
)

func TestProcessorTrimWhitespace(t *testing.T) {
	p := &Processor{}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "  hello  \n  world  ")})
	if lines[0].Text != "hello\nworld" {
		t.Errorf("Text = %q, want %q", lines[0].Text, "hello\nworld")
	}
}

func TestProcessorConvertWhitespaceToNewlines(t *testing.T) {
	p := &Processor{ConvertWhitespace: true}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "hello   world")})
	if lines[0].Text != "hello\nworld" {
		t.Errorf("Text = %q, want %q", lines[0].Text, "hello\nworld")
	}
}

func TestProcessorRemovesFillerWords(t *testing.T) {
	p := &Processor{FillerWords: []string{"um", "uh"}}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "um hello uh world")})
	if lines[0].Text != "hello world" {
		t.Errorf("Text = %q, want %q", lines[0].Text, "hello world")
	}
}

func TestProcessorBreaksLongLinesAtSentenceBoundary(t *testing.T) {
	p := &Processor{MaxLineLength: 10}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "Hi there. Bye now.")})
	want := "Hi there.\nBye now."
	if lines[0].Text != want {
		t.Errorf("Text = %q, want %q", lines[0].Text, want)
	}
}

func TestProcessorLeavesUnbreakableLongLineAlone(t *testing.T) {
	p := &Processor{MaxLineLength: 5}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "supercalifragilisticexpialidocious")})
	if lines[0].Text != "supercalifragilisticexpialidocious" {
		t.Errorf("expected line without a sentence boundary left untouched, got %q", lines[0].Text)
	}
}

func TestProcessorClampsDuration(t *testing.T) {
	p := &Processor{MaxLineDuration: 2 * time.Second}
	lines := p.PreprocessLines([]*Line{NewLine(1, 0, 5*time.Second, "text")})
	if *lines[0].End != 2*time.Second {
		t.Errorf("End = %v, want 2s", *lines[0].End)
	}
}

func TestProcessorIsIdempotent(t *testing.T) {
	p := &Processor{ConvertWhitespace: true, MaxLineLength: 10, FillerWords: []string{"um"}}
	once := p.PreprocessLines([]*Line{NewLine(1, 0, time.Second, "um hello   world, this is fine.")})
	twice := p.PreprocessLines(once)
	if once[0].Text != twice[0].Text {
		t.Errorf("PreprocessLines is not idempotent: %q != %q", once[0].Text, twice[0].Text)
	}
}

func TestProcessorDoesNotMutateInput(t *testing.T) {
	p := &Processor{}
	original := NewLine(1, 0, time.Second, "  hello  ")
	p.PreprocessLines([]*Line{original})
	if original.Text != "  hello  " {
		t.Errorf("input line mutated: %q", original.Text)
	}
}
