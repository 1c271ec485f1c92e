package project

import (
	"encoding/json"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/subtitle/format"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// The project file is a single pretty-printed (indent 4) JSON document
// with a custom codec (spec.md §6): every class-typed object carries a
// "_type" marker field, time.Duration values are encoded as float
// seconds, format.Color values are encoded as {r,g,b,a}, and legacy
// settings field names are accepted on load.

type jsonDuration time.Duration

func (d jsonDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Seconds())
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	*d = jsonDuration(time.Duration(secs * float64(time.Second)))
	return nil
}

type jsonColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

func encodeMetadataValue(v any) any {
	switch t := v.(type) {
	case format.Color:
		return jsonColor{R: t.R, G: t.G, B: t.B, A: t.A}
	case time.Duration:
		return jsonDuration(t)
	default:
		return v
	}
}

func decodeMetadataValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	_, hasR := m["r"]
	_, hasG := m["g"]
	_, hasB := m["b"]
	_, hasA := m["a"]
	if hasR && hasG && hasB && hasA {
		return format.Color{
			R: uint8(toFloat(m["r"])),
			G: uint8(toFloat(m["g"])),
			B: uint8(toFloat(m["b"])),
			A: uint8(toFloat(m["a"])),
		}
	}
	return v
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

type lineDoc struct {
	Type     string         `json:"_type"`
	Number   int            `json:"number"`
	Start    *jsonDuration  `json:"start,omitempty"`
	End      *jsonDuration  `json:"end,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func lineToDoc(l *subtitle.Line) *lineDoc {
	if l == nil {
		return nil
	}
	doc := &lineDoc{Type: "Line", Number: l.Number, Text: l.Text}
	if l.Start != nil {
		d := jsonDuration(*l.Start)
		doc.Start = &d
	}
	if l.End != nil {
		d := jsonDuration(*l.End)
		doc.End = &d
	}
	if len(l.Metadata) > 0 {
		doc.Metadata = make(map[string]any, len(l.Metadata))
		for k, v := range l.Metadata {
			doc.Metadata[k] = encodeMetadataValue(v)
		}
	}
	return doc
}

func docToLine(doc *lineDoc) *subtitle.Line {
	if doc == nil {
		return nil
	}
	l := &subtitle.Line{Number: doc.Number, Text: doc.Text}
	if doc.Start != nil {
		d := time.Duration(*doc.Start)
		l.Start = &d
	}
	if doc.End != nil {
		d := time.Duration(*doc.End)
		l.End = &d
	}
	if len(doc.Metadata) > 0 {
		l.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			l.Metadata[k] = decodeMetadataValue(v)
		}
	}
	return l
}

type batchDoc struct {
	Type        string     `json:"_type"`
	Scene       int        `json:"scene"`
	Number      int        `json:"number"`
	Summary     string     `json:"summary,omitempty"`
	Context     string     `json:"context,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	Translation string     `json:"translation,omitempty"`
	Originals   []*lineDoc `json:"originals"`
	Translated  []*lineDoc `json:"translated,omitempty"`
}

func batchToDoc(b *subtitle.Batch) *batchDoc {
	doc := &batchDoc{
		Type: "Batch", Scene: b.Scene, Number: b.Number,
		Summary: b.Summary, Context: b.Context,
		Prompt: b.Prompt, Translation: b.Translation,
	}
	for _, l := range b.Originals {
		doc.Originals = append(doc.Originals, lineToDoc(l))
	}
	for _, l := range b.Translated {
		doc.Translated = append(doc.Translated, lineToDoc(l))
	}
	return doc
}

func docToBatch(doc *batchDoc) *subtitle.Batch {
	b := &subtitle.Batch{
		Scene: doc.Scene, Number: doc.Number,
		Summary: doc.Summary, Context: doc.Context,
		Prompt: doc.Prompt, Translation: doc.Translation,
	}
	for _, l := range doc.Originals {
		b.Originals = append(b.Originals, docToLine(l))
	}
	for _, l := range doc.Translated {
		b.Translated = append(b.Translated, docToLine(l))
	}
	return b
}

type sceneDoc struct {
	Type    string      `json:"_type"`
	Number  int         `json:"number"`
	Summary string      `json:"summary,omitempty"`
	Context string      `json:"context,omitempty"`
	Batches []*batchDoc `json:"batches"`
}

func sceneToDoc(s *subtitle.Scene) *sceneDoc {
	doc := &sceneDoc{Type: "Scene", Number: s.Number, Summary: s.Summary, Context: s.Context}
	for _, b := range s.Batches {
		doc.Batches = append(doc.Batches, batchToDoc(b))
	}
	return doc
}

func docToScene(doc *sceneDoc) *subtitle.Scene {
	s := &subtitle.Scene{Number: doc.Number, Summary: doc.Summary, Context: doc.Context}
	for _, b := range doc.Batches {
		s.Batches = append(s.Batches, docToBatch(b))
	}
	return s
}

// legacySettingsKeys maps a deprecated project-file field name to its
// current settings key (spec.md §6: "accepts legacy field names...
// during load").
var legacySettingsKeys = map[string]string{
	"gpt_model":           "model",
	"characters":          "names",
	"synopsis":            "description",
	"match_partial_words": "substitution_mode",
}

func migrateLegacySettings(raw map[string]any) settings.Settings {
	s := settings.New()
	for k, v := range raw {
		key := k
		if modern, ok := legacySettingsKeys[k]; ok {
			key = modern
		}
		s[key] = v
	}
	return s
}

type subtitlesDoc struct {
	Type       string         `json:"_type"`
	SourcePath string         `json:"source_path,omitempty"`
	OutputPath string         `json:"output_path,omitempty"`
	FileFormat string         `json:"file_format,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	Scenes     []*sceneDoc    `json:"scenes"`
}

// MarshalProject encodes subs as the pretty-printed project JSON
// document (spec.md §4.8/§6).
func MarshalProject(subs *subtitle.Subtitles) ([]byte, error) {
	doc := &subtitlesDoc{
		Type:       "Subtitles",
		SourcePath: subs.SourcePath,
		OutputPath: subs.OutputPath,
		FileFormat: subs.FileFormat,
	}
	if len(subs.Settings) > 0 {
		doc.Settings = make(map[string]any, len(subs.Settings))
		for k, v := range subs.Settings {
			doc.Settings[k] = encodeMetadataValue(v)
		}
	}
	if len(subs.Metadata) > 0 {
		doc.Metadata = make(map[string]any, len(subs.Metadata))
		for k, v := range subs.Metadata {
			doc.Metadata[k] = encodeMetadataValue(v)
		}
	}
	for _, scene := range subs.Scenes {
		doc.Scenes = append(doc.Scenes, sceneToDoc(scene))
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, suberrors.NewSubtitleParseError("failed to encode project file", err)
	}
	return data, nil
}

// UnmarshalProject decodes a project JSON document into a Subtitles
// tree, accepting legacy settings field names (spec.md §6).
func UnmarshalProject(data []byte) (*subtitle.Subtitles, error) {
	var doc subtitlesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, suberrors.NewSubtitleParseError("failed to decode project file", err)
	}

	subs := subtitle.New()
	subs.SourcePath = doc.SourcePath
	subs.OutputPath = doc.OutputPath
	subs.FileFormat = doc.FileFormat
	if len(doc.Settings) > 0 {
		subs.Settings = migrateLegacySettings(doc.Settings)
	}
	if len(doc.Metadata) > 0 {
		subs.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			subs.Metadata[k] = decodeMetadataValue(v)
		}
	}
	for _, sceneDoc := range doc.Scenes {
		subs.Scenes = append(subs.Scenes, docToScene(sceneDoc))
	}
	subs.RebuildProjections()
	return subs, nil
}
