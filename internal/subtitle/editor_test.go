package subtitle

import (
	"testing"
	"time"
)

func newTestSubtitles(lineCount int) *Subtitles {
	s := New()
	lines := make([]*Line, lineCount)
	for i := range lines {
		lines[i] = lineAt(i+1, time.Duration(i)*time.Second)
	}
	s.Scenes = []*Scene{{Number: 1, Batches: []*Batch{{Scene: 1, Number: 1, Originals: lines}}}}
	s.RebuildProjections()
	return s
}

func TestEditorDeleteLinesErrorsWhenNothingMatches(t *testing.T) {
	s := newTestSubtitles(3)
	editor := NewEditor(s)
	defer editor.Close()

	if _, err := editor.DeleteLines([]int{99}); err == nil {
		t.Error("expected error deleting a line number that does not exist")
	}
}

func TestEditorDeleteLinesRemovesFromOwningBatch(t *testing.T) {
	s := newTestSubtitles(3)
	editor := NewEditor(s)
	defer editor.Close()

	deletions, err := editor.DeleteLines([]int{2})
	if err != nil {
		t.Fatalf("DeleteLines returned error: %v", err)
	}
	if len(deletions) != 1 {
		t.Fatalf("expected 1 deletion record, got %d", len(deletions))
	}
	if len(s.Originals) != 2 {
		t.Errorf("expected 2 originals remaining, got %d", len(s.Originals))
	}
}

func TestEditorUpdateLineTextUpsertsTranslation(t *testing.T) {
	s := newTestSubtitles(2)
	editor := NewEditor(s)
	defer editor.Close()

	if err := editor.UpdateLineText(1, "", "bonjour"); err != nil {
		t.Fatalf("UpdateLineText returned error: %v", err)
	}

	batch := s.GetBatchContainingLine(1)
	if batch.GetOriginal(1) == nil {
		t.Fatal("expected original line 1 to still exist")
	}
	found := false
	for _, tr := range batch.Translated {
		if tr.Number == 1 && tr.Text == "bonjour" {
			found = true
		}
	}
	if !found {
		t.Error("expected a translated line 1 with text 'bonjour'")
	}
}

func TestEditorMergeScenesRejectsNonSequential(t *testing.T) {
	s := New()
	s.Scenes = []*Scene{
		{Number: 1, Batches: []*Batch{makeBatch(1, 1, 1)}},
		{Number: 2, Batches: []*Batch{makeBatch(2, 1, 1)}},
		{Number: 3, Batches: []*Batch{makeBatch(3, 1, 1)}},
	}
	editor := NewEditor(s)
	defer editor.Close()

	if _, err := editor.MergeScenes([]int{1, 3}); err == nil {
		t.Error("expected error merging non-sequential scene numbers")
	}
}

func TestEditorMergeScenesAbsorbsTailScenes(t *testing.T) {
	s := New()
	s.Scenes = []*Scene{
		{Number: 1, Batches: []*Batch{makeBatch(1, 1, 1)}},
		{Number: 2, Batches: []*Batch{makeBatch(2, 1, 1)}},
		{Number: 3, Batches: []*Batch{makeBatch(3, 1, 1)}},
	}
	editor := NewEditor(s)
	defer editor.Close()

	merged, err := editor.MergeScenes([]int{1, 2})
	if err != nil {
		t.Fatalf("MergeScenes returned error: %v", err)
	}
	if len(merged.Batches) != 2 {
		t.Errorf("expected merged scene to hold 2 batches, got %d", len(merged.Batches))
	}
	if len(s.Scenes) != 2 {
		t.Fatalf("expected 2 scenes remaining, got %d", len(s.Scenes))
	}
	if s.Scenes[1].Number != 2 {
		t.Errorf("expected trailing scene renumbered to 2, got %d", s.Scenes[1].Number)
	}
}

func TestEditorSplitSceneRenumbersFromOne(t *testing.T) {
	s := New()
	s.Scenes = []*Scene{
		{Number: 1, Batches: []*Batch{makeBatch(1, 1, 1), makeBatch(1, 2, 1), makeBatch(1, 3, 1)}},
	}
	editor := NewEditor(s)
	defer editor.Close()

	if err := editor.SplitScene(1, 2); err != nil {
		t.Fatalf("SplitScene returned error: %v", err)
	}
	if len(s.Scenes) != 2 {
		t.Fatalf("expected 2 scenes after split, got %d", len(s.Scenes))
	}
	if len(s.Scenes[0].Batches) != 1 {
		t.Errorf("expected original scene to retain 1 batch, got %d", len(s.Scenes[0].Batches))
	}
	if len(s.Scenes[1].Batches) != 2 {
		t.Errorf("expected new scene to receive 2 batches, got %d", len(s.Scenes[1].Batches))
	}
	if s.Scenes[1].Batches[0].Number != 1 {
		t.Errorf("expected new scene's first batch renumbered to 1, got %d", s.Scenes[1].Batches[0].Number)
	}
}

func TestEditorSanitiseDropsInvalidLinesAndEmptyBatches(t *testing.T) {
	s := New()
	invalid := &Line{Number: 0}
	s.Scenes = []*Scene{
		{Number: 1, Batches: []*Batch{
			{Scene: 1, Number: 1, Originals: []*Line{lineAt(1, 0), invalid}},
			{Scene: 1, Number: 2, Originals: []*Line{invalid}},
		}},
	}
	editor := NewEditor(s)
	defer editor.Close()

	editor.Sanitise()

	if len(s.Scenes) != 1 {
		t.Fatalf("expected 1 scene after sanitise, got %d", len(s.Scenes))
	}
	if len(s.Scenes[0].Batches) != 1 {
		t.Fatalf("expected empty batch dropped, got %d batches", len(s.Scenes[0].Batches))
	}
	if len(s.Scenes[0].Batches[0].Originals) != 1 {
		t.Errorf("expected invalid line dropped, got %d originals", len(s.Scenes[0].Batches[0].Originals))
	}
}

func TestEditorSanitiseDropsUnmatchedTranslations(t *testing.T) {
	s := New()
	batch := &Batch{Scene: 1, Number: 1, Originals: []*Line{lineAt(1, 0)}}
	batch.Translated = []*Line{lineAt(1, 0), lineAt(99, 0)}
	s.Scenes = []*Scene{{Number: 1, Batches: []*Batch{batch}}}

	editor := NewEditor(s)
	defer editor.Close()
	editor.Sanitise()

	if len(s.Scenes[0].Batches[0].Translated) != 1 {
		t.Errorf("expected unmatched translated line 99 removed, got %d translated", len(s.Scenes[0].Batches[0].Translated))
	}
}

func TestEditorDuplicateOriginalsAsTranslations(t *testing.T) {
	s := newTestSubtitles(3)
	editor := NewEditor(s)
	defer editor.Close()

	if err := editor.DuplicateOriginalsAsTranslations(); err != nil {
		t.Fatalf("DuplicateOriginalsAsTranslations returned error: %v", err)
	}
	s.RebuildProjections()
	if len(s.Translated) != 3 {
		t.Fatalf("expected 3 translated lines, got %d", len(s.Translated))
	}
	for i, tr := range s.Translated {
		if tr.Text != s.Originals[i].Text {
			t.Errorf("translated[%d].Text = %q, want %q", i, tr.Text, s.Originals[i].Text)
		}
	}
}
