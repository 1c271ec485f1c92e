package subtitle

import (
	"fmt"
	"sort"

	"github.com/gosubtrans/gosubtrans/internal/logging"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// Editor is a scoped acquisition of Subtitles.lock with guaranteed
// release on all exit paths, including a panicking caller (spec.md
// §4.2, §9). Use it as:
//
//	editor := subtitle.NewEditor(subs)
//	defer editor.Close()
//	editor.Sanitise()
type Editor struct {
	subtitles *Subtitles
	closed    bool
	log       *logging.Logger
}

// NewEditor acquires the lock and returns a scope for mutating subtitles.
func NewEditor(subtitles *Subtitles) *Editor {
	subtitles.Lock()
	return &Editor{subtitles: subtitles, log: logging.NewNop()}
}

// WithLogger attaches a logger used for warnings Sanitise emits.
func (e *Editor) WithLogger(log *logging.Logger) *Editor {
	e.log = log
	return e
}

// Close releases the lock. Safe to call multiple times (e.g. from a
// deferred call after an early return already closed it).
func (e *Editor) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.subtitles.Unlock()
}

// PreProcess rewrites originals in place via the given processor
// (spec.md §4.2). Deterministic and idempotent.
func (e *Editor) PreProcess(p *Processor) {
	if len(e.subtitles.Originals) == 0 {
		return
	}
	for _, scene := range e.subtitles.Scenes {
		for _, batch := range scene.Batches {
			batch.Originals = p.PreprocessLines(batch.Originals)
		}
	}
	e.subtitles.RebuildProjections()
}

// AutoBatch replaces scenes with the batcher's partition and
// renumbers (spec.md §4.2).
func (e *Editor) AutoBatch(b *Batcher) {
	if len(e.subtitles.Originals) == 0 {
		return
	}
	e.subtitles.Scenes = b.BatchLines(e.subtitles.Originals)
	e.subtitles.RebuildProjections()
}

// AddScene appends a new scene.
func (e *Editor) AddScene(scene *Scene) {
	e.subtitles.Scenes = append(e.subtitles.Scenes, scene)
}

// UpdateScene merges the given fields into a scene's summary/context.
func (e *Editor) UpdateScene(sceneNumber int, summary, context string) error {
	scene := e.subtitles.GetScene(sceneNumber)
	if scene == nil {
		return fmt.Errorf("scene %d does not exist", sceneNumber)
	}
	if summary != "" {
		scene.Summary = summary
	}
	if context != "" {
		scene.Context = context
	}
	return nil
}

// UpdateBatch merges the given fields into a batch's summary/context/prompt.
func (e *Editor) UpdateBatch(sceneNumber, batchNumber int, summary, context, prompt, translation string) error {
	batch := e.subtitles.GetBatch(sceneNumber, batchNumber)
	if batch == nil {
		return fmt.Errorf("batch (%d,%d) does not exist", sceneNumber, batchNumber)
	}
	if summary != "" {
		batch.Summary = summary
	}
	if context != "" {
		batch.Context = context
	}
	if prompt != "" {
		batch.Prompt = prompt
	}
	if translation != "" {
		batch.Translation = translation
	}
	return nil
}

// UpdateLineText edits an original line's text and upserts the
// matching translated line, keeping Translated sorted by number
// (grounded on original_source/PySubtrans/SubtitleEditor.py).
func (e *Editor) UpdateLineText(lineNumber int, originalText, translatedText string) error {
	if e.subtitles.Originals == nil {
		return suberrors.NewSubtitleParseError("original subtitles are missing", nil)
	}

	original := findLine(e.subtitles.Originals, lineNumber)
	if original == nil {
		return fmt.Errorf("line %d not found", lineNumber)
	}

	if originalText != "" {
		original.Text = originalText
		if translatedText != "" {
			original.Translation = &translatedText
		}
	}

	if translatedText == "" {
		return nil
	}

	batch := e.subtitles.GetBatchContainingLine(lineNumber)
	if batch == nil {
		return fmt.Errorf("line %d has no owning batch", lineNumber)
	}

	if existing := findLine(batch.Translated, lineNumber); existing != nil {
		existing.Text = translatedText
		e.subtitles.RebuildProjections()
		return nil
	}

	translated := &Line{
		Number:   lineNumber,
		Start:    original.Start,
		End:      original.End,
		Text:     translatedText,
		Metadata: original.Metadata,
	}
	batch.AddTranslatedLine(translated)
	e.subtitles.RebuildProjections()
	return nil
}

func findLine(lines []*Line, number int) *Line {
	for _, l := range lines {
		if l.Number == number {
			return l
		}
	}
	return nil
}

// Deletion records what was removed by DeleteLines from one batch.
type Deletion struct {
	Scene              int
	Batch              int
	DeletedOriginals    []*Line
	DeletedTranslated   []*Line
}

// DeleteLines removes the given line numbers from every batch that
// contains them, erroring if nothing matched (spec.md §4.2).
func (e *Editor) DeleteLines(lineNumbers []int) ([]Deletion, error) {
	var deletions []Deletion
	for _, batch := range e.subtitles.GetBatchesContainingLines(lineNumbers) {
		deletedOriginals, deletedTranslated := batch.DeleteLines(lineNumbers)
		if len(deletedOriginals) > 0 || len(deletedTranslated) > 0 {
			deletions = append(deletions, Deletion{
				Scene: batch.Scene, Batch: batch.Number,
				DeletedOriginals: deletedOriginals, DeletedTranslated: deletedTranslated,
			})
		}
	}
	if len(deletions) == 0 {
		return nil, fmt.Errorf("no lines were deleted from any batches")
	}
	e.subtitles.RebuildProjections()
	return deletions, nil
}

// MergeScenes merges scenes with strictly sequential numbers into the
// first (spec.md §4.2 contract).
func (e *Editor) MergeScenes(sceneNumbers []int) (*Scene, error) {
	if len(sceneNumbers) == 0 {
		return nil, fmt.Errorf("no scene numbers supplied to MergeScenes")
	}

	sorted := append([]int(nil), sceneNumbers...)
	sort.Ints(sorted)
	for i, n := range sorted {
		if n != sorted[0]+i {
			return nil, fmt.Errorf("scene numbers to be merged are not sequential")
		}
	}

	var scenes []*Scene
	for _, scene := range e.subtitles.Scenes {
		for _, n := range sorted {
			if scene.Number == n {
				scenes = append(scenes, scene)
				break
			}
		}
	}
	if len(scenes) != len(sorted) {
		return nil, fmt.Errorf("could not find all scenes to merge")
	}

	merged := scenes[0]
	merged.MergeScenes(scenes[1:])

	startIdx := indexOfScene(e.subtitles.Scenes, scenes[0])
	endIdx := indexOfScene(e.subtitles.Scenes, scenes[len(scenes)-1])
	e.subtitles.Scenes = append(
		append([]*Scene{}, e.subtitles.Scenes[:startIdx+1]...),
		e.subtitles.Scenes[endIdx+1:]...,
	)

	e.RenumberScenes()
	e.subtitles.RebuildProjections()
	return merged, nil
}

func indexOfScene(scenes []*Scene, target *Scene) int {
	for i, s := range scenes {
		if s == target {
			return i
		}
	}
	return -1
}

// MergeBatches merges batch numbers within a scene into the first.
func (e *Editor) MergeBatches(sceneNumber int, batchNumbers []int) error {
	if len(batchNumbers) == 0 {
		return fmt.Errorf("no batch numbers supplied to MergeBatches")
	}
	scene := e.subtitles.GetScene(sceneNumber)
	if scene == nil {
		return fmt.Errorf("scene %d not found", sceneNumber)
	}
	err := scene.MergeBatches(batchNumbers)
	if err == nil {
		e.subtitles.RebuildProjections()
	}
	return err
}

// MergeLinesInBatch merges sequential lines within one batch.
func (e *Editor) MergeLinesInBatch(sceneNumber, batchNumber int, lineNumbers []int) (*Line, *Line, error) {
	batch := e.subtitles.GetBatch(sceneNumber, batchNumber)
	if batch == nil {
		return nil, nil, fmt.Errorf("batch (%d,%d) does not exist", sceneNumber, batchNumber)
	}
	merged, mergedTranslation, err := batch.MergeLines(lineNumbers)
	if err == nil {
		e.subtitles.RebuildProjections()
	}
	return merged, mergedTranslation, err
}

// SplitScene creates a new scene immediately after scene, containing
// batches at-and-after batchNumber, then renumbers (spec.md §4.2).
func (e *Editor) SplitScene(sceneNumber, batchNumber int) error {
	scene := e.subtitles.GetScene(sceneNumber)
	if scene == nil {
		return fmt.Errorf("scene %d does not exist", sceneNumber)
	}
	batch := scene.GetBatch(batchNumber)
	if batch == nil {
		return fmt.Errorf("scene %d batch %d does not exist", sceneNumber, batchNumber)
	}

	batchIndex := -1
	for i, b := range scene.Batches {
		if b == batch {
			batchIndex = i
			break
		}
	}

	newScene := &Scene{Number: sceneNumber + 1}
	newScene.Batches = append([]*Batch{}, scene.Batches[batchIndex:]...)
	scene.Batches = scene.Batches[:batchIndex]

	for i, b := range newScene.Batches {
		b.Scene = newScene.Number
		b.Number = i + 1
	}

	splitIndex := -1
	for i, s := range e.subtitles.Scenes {
		if s == scene {
			splitIndex = i + 1
			break
		}
	}
	if splitIndex >= 0 && splitIndex < len(e.subtitles.Scenes) {
		tail := append([]*Scene{}, e.subtitles.Scenes[splitIndex:]...)
		e.subtitles.Scenes = append(append(e.subtitles.Scenes[:splitIndex], newScene), tail...)
	} else {
		e.subtitles.Scenes = append(e.subtitles.Scenes, newScene)
	}

	e.RenumberScenes()
	e.subtitles.RebuildProjections()
	return nil
}

// Sanitise removes lines with invalid number or nil start, removes
// empty batches, removes empty scenes, and drops translated lines
// whose number has no matching original, logging a warning (spec.md
// §4.2, §8 invariant 1).
func (e *Editor) Sanitise() {
	for _, scene := range e.subtitles.Scenes {
		kept := scene.Batches[:0:0]
		for _, batch := range scene.Batches {
			batch.Originals = filterValidLines(batch.Originals)
			if len(batch.Originals) == 0 {
				continue
			}
			batch.Translated = filterValidLines(batch.Translated)

			originalNumbers := make(map[int]bool, len(batch.Originals))
			for _, l := range batch.Originals {
				originalNumbers[l.Number] = true
			}
			var unmatched int
			keptTranslated := batch.Translated[:0:0]
			for _, l := range batch.Translated {
				if originalNumbers[l.Number] {
					keptTranslated = append(keptTranslated, l)
				} else {
					unmatched++
				}
			}
			if unmatched > 0 {
				e.log.Warnw("removing unmatched translated lines", "count", unmatched, "scene", batch.Scene, "batch", batch.Number)
			}
			batch.Translated = keptTranslated
			kept = append(kept, batch)
		}
		scene.Batches = kept
	}

	keptScenes := e.subtitles.Scenes[:0:0]
	for _, scene := range e.subtitles.Scenes {
		if len(scene.Batches) > 0 {
			keptScenes = append(keptScenes, scene)
		}
	}
	e.subtitles.Scenes = keptScenes

	e.RenumberScenes()
	e.subtitles.RebuildProjections()
}

func filterValidLines(lines []*Line) []*Line {
	kept := lines[:0:0]
	for _, l := range lines {
		if l.Valid() {
			kept = append(kept, l)
		}
	}
	return kept
}

// RenumberScenes ensures scenes and their batches are numbered
// sequentially from 1 (spec.md §4.2, §8 invariant 8).
func (e *Editor) RenumberScenes() {
	for sceneNumber, scene := range e.subtitles.Scenes {
		scene.Number = sceneNumber + 1
		for batchNumber, batch := range scene.Batches {
			batch.Scene = scene.Number
			batch.Number = batchNumber + 1
		}
	}
}

// DuplicateOriginalsAsTranslations copies originals into Translated
// for every batch, for preview/test purposes (spec.md §6 CLI --preview).
func (e *Editor) DuplicateOriginalsAsTranslations() error {
	for _, scene := range e.subtitles.Scenes {
		for _, batch := range scene.Batches {
			if batch.AnyTranslated() {
				return suberrors.NewSubtitleParseError("translations already exist", nil)
			}
			translated := make([]*Line, len(batch.Originals))
			for i, l := range batch.Originals {
				translated[i] = l.AsTranslation(l.Text)
			}
			batch.Translated = translated
		}
	}
	e.subtitles.RebuildProjections()
	return nil
}
