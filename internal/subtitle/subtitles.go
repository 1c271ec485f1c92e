package subtitle

import (
	"sort"
	"sync"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/subtitle/format"
)

// Subtitles is the root of the hierarchical model (spec.md §3). It
// exclusively owns its scenes; scenes own batches; batches own lines.
// Originals/Translated are read-only projections rebuilt from owned
// data after mutation.
type Subtitles struct {
	Scenes     []*Scene
	Originals  []*Line
	Translated []*Line

	SourcePath string
	OutputPath string
	FileFormat string
	Metadata   map[string]any
	Settings   settings.Settings

	// lock guards every mutation. It is acquired exclusively through an
	// Editor scope (NewEditor/Close), never directly: Editor methods
	// never construct a nested Editor on the same Subtitles, so a
	// single non-reentrant mutex is sufficient and simpler than
	// simulating Python's RLock across goroutines.
	lock sync.Mutex
}

// Lock and Unlock expose the guard for Editor; not for direct use.
func (s *Subtitles) Lock()   { s.lock.Lock() }
func (s *Subtitles) Unlock() { s.lock.Unlock() }

// New returns an empty Subtitles with default settings.
func New() *Subtitles {
	return &Subtitles{
		Metadata: map[string]any{},
		Settings: settings.New(),
	}
}

// RebuildProjections recomputes Originals/Translated as the
// concatenation of batch originals/translated across scenes in scene,
// then batch order (spec.md §3 invariant).
func (s *Subtitles) RebuildProjections() {
	var originals, translated []*Line
	for _, scene := range s.Scenes {
		for _, batch := range scene.Batches {
			originals = append(originals, batch.Originals...)
			translated = append(translated, batch.Translated...)
		}
	}
	s.Originals = originals
	s.Translated = translated
}

// GetScene returns the scene with the given number, or nil.
func (s *Subtitles) GetScene(number int) *Scene {
	for _, scene := range s.Scenes {
		if scene.Number == number {
			return scene
		}
	}
	return nil
}

// GetBatch returns the batch (scene,batch), or nil.
func (s *Subtitles) GetBatch(sceneNumber, batchNumber int) *Batch {
	scene := s.GetScene(sceneNumber)
	if scene == nil {
		return nil
	}
	return scene.GetBatch(batchNumber)
}

// GetBatchContainingLine scans scenes/batches in order, skipping any
// batch whose first..last original numbers exclude the line, to find
// the batch whose originals contain the given line number.
func (s *Subtitles) GetBatchContainingLine(number int) *Batch {
	for _, scene := range s.Scenes {
		for _, batch := range scene.Batches {
			if len(batch.Originals) == 0 {
				continue
			}
			first := batch.Originals[0].Number
			last := batch.Originals[len(batch.Originals)-1].Number
			if number < first || number > last {
				continue
			}
			if batch.GetOriginal(number) != nil {
				return batch
			}
		}
	}
	return nil
}

// GetBatchesContainingLines returns, in scene/batch order, every batch
// that contains at least one of the given line numbers.
func (s *Subtitles) GetBatchesContainingLines(numbers []int) []*Batch {
	wanted := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = true
	}
	var out []*Batch
	for _, scene := range s.Scenes {
		for _, batch := range scene.Batches {
			for _, l := range batch.Originals {
				if wanted[l.Number] {
					out = append(out, batch)
					break
				}
			}
		}
	}
	return out
}

// AddTranslatedLine finds the batch containing the matching original
// line and inserts/replaces the translation there (spec.md §4.1).
func (s *Subtitles) AddTranslatedLine(line *Line) error {
	batch := s.GetBatchContainingLine(line.Number)
	if batch == nil {
		return suberrors.NewSubtitleParseError("no original line with that number", nil)
	}
	batch.AddTranslatedLine(line)
	s.RebuildProjections()
	return nil
}

// LoadSubtitles detects the format by extension (or content sniff on
// ambiguous extensions), parses with the resolved handler, and
// sanitises the result (spec.md §4.1).
func (s *Subtitles) LoadSubtitles(path string, registry *format.Registry) error {
	if registry == nil {
		registry = format.DefaultRegistry()
	}

	handler, err := registry.HandlerForPath(path)
	if err != nil {
		return err
	}

	data, err := handler.LoadFile(path)
	if err != nil {
		return err
	}

	s.populateFromData(data, handler.Extension())
	s.SourcePath = path

	editor := NewEditor(s)
	defer editor.Close()
	editor.Sanitise()
	return nil
}

func (s *Subtitles) populateFromData(data *format.SubtitleData, ext string) {
	seen := make(map[int]bool, len(data.Lines))
	lines := make([]*Line, 0, len(data.Lines))
	for _, dl := range data.Lines {
		if seen[dl.Number] {
			continue // later parse-time dedupe handled by handler; guard belt-and-braces
		}
		seen[dl.Number] = true
		start, end := dl.Start, dl.End
		lines = append(lines, &Line{
			Number:   dl.Number,
			Start:    &start,
			End:      &end,
			Text:     dl.Text,
			Metadata: dl.Metadata,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return *lines[i].Start < *lines[j].Start })

	batch := &Batch{Scene: 1, Number: 1, Originals: lines}
	s.Scenes = []*Scene{{Number: 1, Batches: []*Batch{batch}}}
	s.Metadata = data.Metadata
	if data.DetectedFormat != "" {
		s.FileFormat = data.DetectedFormat
	} else {
		s.FileFormat = ext
	}
	s.RebuildProjections()
}

// SaveOriginal composes and writes the originals using the handler
// matching FileFormat (falling back to path's extension).
func (s *Subtitles) SaveOriginal(path string, registry *format.Registry) error {
	return s.save(path, registry, false)
}

// SaveTranslation composes and writes the translated lines (falling
// back to originals for any line without a translation) using the
// handler matching FileFormat.
func (s *Subtitles) SaveTranslation(path string, registry *format.Registry) error {
	return s.save(path, registry, true)
}

func (s *Subtitles) save(path string, registry *format.Registry, useTranslation bool) error {
	if registry == nil {
		registry = format.DefaultRegistry()
	}

	handler, err := registry.HandlerForFormat(s.FileFormat)
	if err != nil {
		handler, err = registry.HandlerForPath(path)
		if err != nil {
			return err
		}
	}

	lines := s.Originals
	if useTranslation {
		lines = s.translationLines()
	}

	data := &format.SubtitleData{
		Lines:    make([]format.ParsedLine, 0, len(lines)),
		Metadata: s.Metadata,
	}
	for _, l := range lines {
		pl := format.ParsedLine{Number: l.Number, Text: l.Text, Metadata: l.Metadata}
		if l.Start != nil {
			pl.Start = *l.Start
		}
		if l.End != nil {
			pl.End = *l.End
		}
		data.Lines = append(data.Lines, pl)
	}

	text, err := handler.Compose(data)
	if err != nil {
		return err
	}
	return format.WriteFile(path, text)
}

// translationLines returns, per original line, its translation if
// present or the original text otherwise.
func (s *Subtitles) translationLines() []*Line {
	byNumber := make(map[int]*Line, len(s.Translated))
	for _, t := range s.Translated {
		byNumber[t.Number] = t
	}
	out := make([]*Line, 0, len(s.Originals))
	for _, o := range s.Originals {
		if t, ok := byNumber[o.Number]; ok {
			out = append(out, t)
		} else {
			out = append(out, o)
		}
	}
	return out
}
