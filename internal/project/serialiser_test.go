package project

import (
	"strings"
	"testing"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/subtitle/format"
)

func TestMarshalProjectRoundTripsSceneBatchLine(t *testing.T) {
	subs := subtitle.New()
	subs.SourcePath = "movie.srt"
	subs.OutputPath = "movie.fr.srt"
	subs.FileFormat = ".srt"
	subs.Settings["target_language"] = "fr"
	start := time.Second
	end := 2 * time.Second
	line := &subtitle.Line{Number: 1, Start: &start, End: &end, Text: "Hello.", Metadata: map[string]any{
		"color": format.Color{R: 0, G: 128, B: 255, A: 10},
	}}
	subs.Scenes = []*subtitle.Scene{
		{Number: 1, Summary: "opening", Batches: []*subtitle.Batch{
			{Scene: 1, Number: 1, Summary: "greeting", Originals: []*subtitle.Line{line}},
		}},
	}

	data, err := MarshalProject(subs)
	if err != nil {
		t.Fatalf("MarshalProject returned error: %v", err)
	}
	if !strings.Contains(string(data), `"_type": "Subtitles"`) {
		t.Errorf("expected a _type marker for the root document, got %s", data)
	}

	decoded, err := UnmarshalProject(data)
	if err != nil {
		t.Fatalf("UnmarshalProject returned error: %v", err)
	}
	if decoded.SourcePath != "movie.srt" || decoded.OutputPath != "movie.fr.srt" {
		t.Errorf("unexpected paths: %+v", decoded)
	}
	if decoded.Settings.GetStringOr("target_language", "") != "fr" {
		t.Errorf("target_language = %q, want fr", decoded.Settings.GetStringOr("target_language", ""))
	}
	if len(decoded.Scenes) != 1 || len(decoded.Scenes[0].Batches) != 1 {
		t.Fatalf("expected one scene with one batch, got %+v", decoded.Scenes)
	}
	if decoded.Scenes[0].Summary != "opening" {
		t.Errorf("scene Summary = %q, want opening", decoded.Scenes[0].Summary)
	}
	gotBatch := decoded.Scenes[0].Batches[0]
	if gotBatch.Summary != "greeting" {
		t.Errorf("batch Summary = %q, want greeting", gotBatch.Summary)
	}
	if len(gotBatch.Originals) != 1 {
		t.Fatalf("expected one original line, got %d", len(gotBatch.Originals))
	}
	gotLine := gotBatch.Originals[0]
	if gotLine.Text != "Hello." {
		t.Errorf("line Text = %q, want Hello.", gotLine.Text)
	}
	if gotLine.Start == nil || *gotLine.Start != start {
		t.Errorf("line Start = %v, want %v", gotLine.Start, start)
	}
	if gotLine.End == nil || *gotLine.End != end {
		t.Errorf("line End = %v, want %v", gotLine.End, end)
	}
	color, ok := gotLine.Metadata["color"].(format.Color)
	if !ok {
		t.Fatalf("expected color metadata to decode back to format.Color, got %T", gotLine.Metadata["color"])
	}
	if color != (format.Color{R: 0, G: 128, B: 255, A: 10}) {
		t.Errorf("color = %+v, want {0 128 255 10}", color)
	}
}

func TestUnmarshalProjectMigratesLegacySettingsKeys(t *testing.T) {
	data := []byte(`{
		"_type": "Subtitles",
		"settings": {"gpt_model": "gpt-4", "characters": ["Alice"], "synopsis": "a story"},
		"scenes": []
	}`)

	subs, err := UnmarshalProject(data)
	if err != nil {
		t.Fatalf("UnmarshalProject returned error: %v", err)
	}
	if subs.Settings.GetStringOr("model", "") != "gpt-4" {
		t.Errorf("expected gpt_model to migrate to model, got %q", subs.Settings.GetStringOr("model", ""))
	}
	if subs.Settings.GetStringOr("description", "") != "a story" {
		t.Errorf("expected synopsis to migrate to description, got %q", subs.Settings.GetStringOr("description", ""))
	}
	names, ok := subs.Settings["names"].([]any)
	if !ok || len(names) != 1 || names[0] != "Alice" {
		t.Errorf("expected characters to migrate to names, got %#v", subs.Settings["names"])
	}
}

func TestUnmarshalProjectRejectsInvalidJSON(t *testing.T) {
	if _, err := UnmarshalProject([]byte("not json")); err == nil {
		t.Error("expected an error for malformed project JSON")
	}
}

func TestMarshalProjectOmitsEmptyMetadata(t *testing.T) {
	subs := subtitle.New()
	data, err := MarshalProject(subs)
	if err != nil {
		t.Fatalf("MarshalProject returned error: %v", err)
	}
	if strings.Contains(string(data), `"metadata"`) {
		t.Errorf("expected no metadata key for an empty Metadata map, got %s", data)
	}
}

func TestJSONDurationRoundTrips(t *testing.T) {
	d := jsonDuration(1500 * time.Millisecond)
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}
	if string(data) != "1.5" {
		t.Errorf("MarshalJSON = %s, want 1.5", data)
	}

	var decoded jsonDuration
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON returned error: %v", err)
	}
	if time.Duration(decoded) != d {
		t.Errorf("decoded = %v, want %v", time.Duration(decoded), time.Duration(d))
	}
}
