package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/subtitle/format"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

const projectSampleSRT = `1
00:00:01,000 --> 00:00:02,000
Hello.

2
00:00:02,500 --> 00:00:03,500
World.

`

func writeSampleSRT(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := format.WriteFile(path, projectSampleSRT); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestInitialiseProjectLoadsSourceFileAndComputesOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	p.Subtitles.Settings["target_language"] = "fr"
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}

	if len(p.Subtitles.Originals) != 2 {
		t.Fatalf("expected 2 originals loaded, got %d", len(p.Subtitles.Originals))
	}
	want := filepath.Join(dir, "movie.fr.srt")
	if p.Subtitles.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", p.Subtitles.OutputPath, want)
	}
	if p.UseProjectFile {
		t.Error("expected UseProjectFile to stay false for a plain source path")
	}
}

func TestInitialiseProjectReloadsExistingProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	first := New(nil)
	if err := first.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("first InitialiseProject returned error: %v", err)
	}
	if err := first.Subtitles.AddTranslatedLine(&subtitle.Line{
		Number: 1, Start: first.Subtitles.Originals[0].Start, End: first.Subtitles.Originals[0].End, Text: "Bonjour.",
	}); err != nil {
		t.Fatalf("AddTranslatedLine returned error: %v", err)
	}
	first.Persistent = true
	if err := first.SaveProject(); err != nil {
		t.Fatalf("SaveProject returned error: %v", err)
	}

	projectPath := path + ProjectExtension
	if _, err := os.Stat(projectPath); err != nil {
		t.Fatalf("expected project file to be written: %v", err)
	}

	second := New(nil)
	if err := second.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("second InitialiseProject returned error: %v", err)
	}
	if !second.Persistent {
		t.Error("expected reloaded project to be marked Persistent")
	}
	if len(second.Subtitles.Translated) != 1 {
		t.Fatalf("expected the reloaded project to carry its translated line, got %d", len(second.Subtitles.Translated))
	}
	if second.Subtitles.Translated[0].Text != "Bonjour." {
		t.Errorf("Translated[0].Text = %q, want %q", second.Subtitles.Translated[0].Text, "Bonjour.")
	}
}

func TestInitialiseProjectReloadSubtitlesIgnoresExistingProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	first := New(nil)
	if err := first.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("first InitialiseProject returned error: %v", err)
	}
	first.Persistent = true
	if err := first.SaveProject(); err != nil {
		t.Fatalf("SaveProject returned error: %v", err)
	}

	second := New(nil)
	if err := second.InitialiseProject(path, "", true); err != nil {
		t.Fatalf("second InitialiseProject returned error: %v", err)
	}
	if len(second.Subtitles.Translated) != 0 {
		t.Errorf("expected reloadSubtitles=true to re-parse the source file, got %d translated lines", len(second.Subtitles.Translated))
	}
}

func TestSaveProjectWritesTranslationOnlyWhenAnyTranslated(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	if err := p.SaveProject(); err != nil {
		t.Fatalf("SaveProject returned error: %v", err)
	}
	if _, err := os.Stat(p.Subtitles.OutputPath); err == nil {
		t.Error("expected no translation file to be written when nothing is translated")
	}

	if err := p.Subtitles.AddTranslatedLine(&subtitle.Line{
		Number: 1, Start: p.Subtitles.Originals[0].Start, End: p.Subtitles.Originals[0].End, Text: "Bonjour.",
	}); err != nil {
		t.Fatalf("AddTranslatedLine returned error: %v", err)
	}
	if err := p.SaveProject(); err != nil {
		t.Fatalf("SaveProject returned error: %v", err)
	}
	if _, err := os.Stat(p.Subtitles.OutputPath); err != nil {
		t.Errorf("expected a translation file to be written once a line is translated: %v", err)
	}
	if p.NeedsWriting {
		t.Error("expected NeedsWriting to be cleared after SaveProject")
	}
}

func TestSaveProjectDoesNotWriteProjectFileWhenNotPersistent(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	if p.Persistent {
		t.Fatal("expected a freshly loaded source file to not be Persistent")
	}
	if err := p.SaveProject(); err != nil {
		t.Fatalf("SaveProject returned error: %v", err)
	}
	if _, err := os.Stat(path + ProjectExtension); err == nil {
		t.Error("expected no .subtrans file to be written when Persistent is false")
	}
}

type stubProjectClient struct {
	text string
	err  error
}

func (c *stubProjectClient) Send(ctx context.Context, req *translate.Request, temperature float64) (*translate.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &translate.Response{Text: c.text}, nil
}

func (c *stubProjectClient) Abort()                  {}
func (c *stubProjectClient) SupportsStreaming() bool { return false }

func TestTranslateSubtitlesMarksNeedsWritingOnBatchTranslated(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	p.NeedsWriting = false

	client := &stubProjectClient{text: `<line n="1">Bonjour.</line><line n="2">Monde.</line>`}
	s := settings.New()
	translator := translate.NewTranslator(client, s, nil)

	if err := p.TranslateSubtitles(context.Background(), translator); err != nil {
		t.Fatalf("TranslateSubtitles returned error: %v", err)
	}
	if !p.NeedsWriting {
		t.Error("expected NeedsWriting to be set once a batch is translated")
	}
	if len(p.Subtitles.Translated) != 2 {
		t.Fatalf("expected 2 translated lines, got %d", len(p.Subtitles.Translated))
	}
}

func TestTranslateSubtitlesSavesPartialProgressOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	if err := p.Subtitles.AddTranslatedLine(&subtitle.Line{
		Number: 1, Start: p.Subtitles.Originals[0].Start, End: p.Subtitles.Originals[0].End, Text: "Bonjour.",
	}); err != nil {
		t.Fatalf("AddTranslatedLine returned error: %v", err)
	}

	client := &stubProjectClient{err: context.DeadlineExceeded}
	s := settings.New()
	s["max_retries"] = 0
	translator := translate.NewTranslator(client, s, nil)

	err := p.TranslateSubtitles(context.Background(), translator)
	if err == nil {
		t.Fatal("expected TranslateSubtitles to propagate the translation error")
	}
	if _, statErr := os.Stat(p.Subtitles.OutputPath); statErr != nil {
		t.Errorf("expected partial progress to be saved despite the error: %v", statErr)
	}
}

func TestTranslateSceneTranslatesOnlyNamedScene(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	p.Subtitles.Scenes = []*subtitle.Scene{
		{Number: 1, Batches: []*subtitle.Batch{{Scene: 1, Number: 1, Originals: []*subtitle.Line{p.Subtitles.Originals[0]}}}},
		{Number: 2, Batches: []*subtitle.Batch{{Scene: 2, Number: 1, Originals: []*subtitle.Line{p.Subtitles.Originals[1]}}}},
	}
	p.Subtitles.RebuildProjections()
	p.NeedsWriting = false

	client := &stubProjectClient{text: `<line n="2">Monde.</line>`}
	s := settings.New()
	translator := translate.NewTranslator(client, s, nil)

	if err := p.TranslateScene(context.Background(), translator, 2); err != nil {
		t.Fatalf("TranslateScene returned error: %v", err)
	}
	if !p.NeedsWriting {
		t.Error("expected NeedsWriting to be set after TranslateScene")
	}
	if len(p.Subtitles.Translated) != 1 || p.Subtitles.Translated[0].Number != 2 {
		t.Errorf("expected only line 2 to be translated, got %+v", p.Subtitles.Translated)
	}
}

func TestTranslateSceneReturnsErrorForUnknownScene(t *testing.T) {
	p := New(nil)
	p.Subtitles = subtitle.New()
	translator := translate.NewTranslator(&stubProjectClient{}, settings.New(), nil)

	if err := p.TranslateScene(context.Background(), translator, 99); err == nil {
		t.Error("expected an error for a scene number that does not exist")
	}
}

func TestReparseBatchTranslationReplacesTranslatedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}
	p.NeedsWriting = false

	response := "<line n=\"1\">Bonjour.</line><line n=\"2\">Monde.</line><summary>greeting</summary>"
	if err := p.ReparseBatchTranslation(1, 1, response); err != nil {
		t.Fatalf("ReparseBatchTranslation returned error: %v", err)
	}

	batch := p.Subtitles.GetBatch(1, 1)
	if batch == nil {
		t.Fatal("expected to find batch 1/1")
	}
	if len(batch.Translated) != 2 {
		t.Fatalf("expected 2 translated lines in the batch, got %d", len(batch.Translated))
	}
	if batch.Summary != "greeting" {
		t.Errorf("Summary = %q, want %q", batch.Summary, "greeting")
	}
	if !p.NeedsWriting {
		t.Error("expected NeedsWriting to be set")
	}
}

func TestReparseBatchTranslationReturnsErrorForUnknownBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}

	if err := p.ReparseBatchTranslation(99, 1, "<line n=\"1\">x</line>"); err == nil {
		t.Error("expected an error for an unknown scene/batch")
	}
}

func TestReparseBatchTranslationReturnsErrorForEmptyResponse(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleSRT(t, dir, "movie.srt")

	p := New(nil)
	if err := p.InitialiseProject(path, "", false); err != nil {
		t.Fatalf("InitialiseProject returned error: %v", err)
	}

	if err := p.ReparseBatchTranslation(1, 1, "no line tags here"); err == nil {
		t.Error("expected an error when the response contains no line tags")
	}
}

func TestUpdateProjectSettingsMergesValues(t *testing.T) {
	p := New(nil)
	p.Subtitles = subtitle.New()
	p.Subtitles.Settings = settings.New()

	p.UpdateProjectSettings(settings.Settings{"target_language": "es", "scene_threshold": 42.0})

	if p.Subtitles.Settings.GetStringOr("target_language", "") != "es" {
		t.Errorf("target_language = %q, want es", p.Subtitles.Settings.GetStringOr("target_language", ""))
	}
	if p.Subtitles.Settings["scene_threshold"] != 42.0 {
		t.Errorf("scene_threshold = %v, want 42.0", p.Subtitles.Settings["scene_threshold"])
	}
}

func TestComputeOutputPathUsesFileFormatWhenTargetLanguageEmpty(t *testing.T) {
	p := New(nil)
	p.Subtitles = subtitle.New()
	p.Subtitles.FileFormat = ".srt"

	got := p.computeOutputPath(filepath.Join("dir", "movie.srt"))
	want := filepath.Join("dir", "movie.srt")
	if got != want {
		t.Errorf("computeOutputPath = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, ".srt") {
		t.Errorf("expected output path to keep .srt extension, got %q", got)
	}
}
