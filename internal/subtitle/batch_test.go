package subtitle

import (
	"testing"
	"time"
)

func lineAt(number int, start time.Duration) *Line {
	return NewLine(number, start, start+time.Second, "text")
}

func TestBatchAllTranslated(t *testing.T) {
	b := &Batch{Originals: []*Line{lineAt(1, 0), lineAt(2, time.Second)}}
	if b.AllTranslated() {
		t.Error("expected AllTranslated false with no translations")
	}

	b.AddTranslatedLine(lineAt(1, 0))
	if b.AllTranslated() {
		t.Error("expected AllTranslated false with a partial translation")
	}

	b.AddTranslatedLine(lineAt(2, time.Second))
	if !b.AllTranslated() {
		t.Error("expected AllTranslated true once every original has a translation")
	}
}

func TestBatchAddTranslatedLineKeepsSortedOrder(t *testing.T) {
	b := &Batch{}
	b.AddTranslatedLine(lineAt(3, 0))
	b.AddTranslatedLine(lineAt(1, 0))
	b.AddTranslatedLine(lineAt(2, 0))

	want := []int{1, 2, 3}
	for i, n := range want {
		if b.Translated[i].Number != n {
			t.Fatalf("Translated[%d].Number = %d, want %d", i, b.Translated[i].Number, n)
		}
	}

	replacement := lineAt(2, 0)
	replacement.Text = "replaced"
	b.AddTranslatedLine(replacement)
	if len(b.Translated) != 3 {
		t.Fatalf("expected replace in place, got len %d", len(b.Translated))
	}
	if b.Translated[1].Text != "replaced" {
		t.Errorf("expected line 2 replaced, got %q", b.Translated[1].Text)
	}
}

func TestBatchDeleteLines(t *testing.T) {
	b := &Batch{Originals: []*Line{lineAt(1, 0), lineAt(2, time.Second), lineAt(3, 2*time.Second)}}
	b.AddTranslatedLine(lineAt(2, time.Second))

	deletedOriginals, deletedTranslated := b.DeleteLines([]int{2})
	if len(deletedOriginals) != 1 || deletedOriginals[0].Number != 2 {
		t.Errorf("expected original line 2 deleted, got %+v", deletedOriginals)
	}
	if len(deletedTranslated) != 1 || deletedTranslated[0].Number != 2 {
		t.Errorf("expected translated line 2 deleted, got %+v", deletedTranslated)
	}
	if len(b.Originals) != 2 {
		t.Errorf("expected 2 originals remaining, got %d", len(b.Originals))
	}
}

func TestBatchMergeLinesJoinsTextAndTiming(t *testing.T) {
	b := &Batch{Originals: []*Line{lineAt(1, 0), lineAt(2, time.Second), lineAt(3, 2*time.Second)}}
	b.Originals[0].Text = "one"
	b.Originals[1].Text = "two"

	merged, _, err := b.MergeLines([]int{1, 2})
	if err != nil {
		t.Fatalf("MergeLines returned error: %v", err)
	}
	if merged.Text != "one\ntwo" {
		t.Errorf("merged.Text = %q, want \"one\\ntwo\"", merged.Text)
	}
	if *merged.End != 2*time.Second {
		t.Errorf("merged.End = %v, want 2s", *merged.End)
	}
	if len(b.Originals) != 2 {
		t.Errorf("expected 2 originals after merge (merged + line 3), got %d", len(b.Originals))
	}
}

func TestBatchMergeLinesRequiresTwoNumbers(t *testing.T) {
	b := &Batch{Originals: []*Line{lineAt(1, 0)}}
	if _, _, err := b.MergeLines([]int{1}); err == nil {
		t.Error("expected error merging a single line")
	}
}
