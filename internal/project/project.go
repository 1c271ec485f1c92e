// Package project implements SubtitleProject (spec.md §4.8): loading
// a subtitle or project file, running a Translator over it, and
// persisting results, including the `.subtrans` project file codec.
package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/logging"
	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/subtitle/format"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/translate"
)

// ProjectExtension is the persisted project file's extension.
const ProjectExtension = ".subtrans"

// Project owns a Subtitles tree plus the bookkeeping
// SubtitleProject adds on top of it: whether a project file is in
// use, whether it needs (re)writing, and the registry used to
// load/save the underlying subtitle format (spec.md §4.8).
type Project struct {
	Subtitles      *subtitle.Subtitles
	Registry       *format.Registry
	Log            *logging.Logger
	UseProjectFile bool
	Persistent     bool
	NeedsWriting   bool

	// Autosave coalesces needs_writing transitions into a single
	// deferred SaveProject call (spec.md §5). Built once settings are
	// known, in InitialiseProject; nil until then, and Trigger only
	// fires when the "autosave" setting is enabled.
	Autosave *AutosaveScheduler

	projectPath string
}

// New returns an empty Project using the default format registry.
func New(log *logging.Logger) *Project {
	if log == nil {
		log = logging.NewNop()
	}
	return &Project{
		Subtitles: subtitle.New(),
		Registry:  format.DefaultRegistry(),
		Log:       log,
	}
}

// markNeedsWriting sets NeedsWriting and, if autosave is enabled,
// (re)starts the 20-second coalescing window so repeated changes
// collapse into one deferred save.
func (p *Project) markNeedsWriting() {
	p.NeedsWriting = true
	if p.Autosave != nil && p.Subtitles.Settings.GetBoolOr("autosave", true) {
		p.Autosave.Trigger()
	}
}

// AnyTranslated reports whether any line in the project has a
// translation.
func (p *Project) AnyTranslated() bool {
	return len(p.Subtitles.Translated) > 0
}

// InitialiseProject loads either an existing `.subtrans` project file
// alongside path (when UseProjectFile is set, or path itself is a
// `.subtrans` path) or the source subtitle file directly, reapplies
// settings, and computes outputPath from target_language+file format
// when outputPath is empty (spec.md §4.8).
func (p *Project) InitialiseProject(path, outputPath string, reloadSubtitles bool) error {
	ext := strings.ToLower(filepath.Ext(path))
	projectPath := path
	sourcePath := path

	if ext == ProjectExtension {
		p.UseProjectFile = true
		sourcePath = strings.TrimSuffix(path, ProjectExtension)
	} else {
		projectPath = path + ProjectExtension
	}
	p.projectPath = projectPath

	useExisting := p.UseProjectFile
	if !useExisting {
		if _, err := os.Stat(projectPath); err == nil {
			useExisting = true
		}
	}

	if useExisting && !reloadSubtitles {
		data, err := os.ReadFile(projectPath)
		if err != nil {
			return suberrors.NewSubtitleParseError("failed to read project file", err)
		}
		subs, err := UnmarshalProject(data)
		if err != nil {
			return err
		}
		p.Subtitles = subs
		p.Persistent = true
	} else {
		if err := p.Subtitles.LoadSubtitles(sourcePath, p.Registry); err != nil {
			return err
		}
		if useExisting {
			p.Persistent = true
		}
	}

	if outputPath != "" {
		p.Subtitles.OutputPath = outputPath
	} else if p.Subtitles.OutputPath == "" {
		p.Subtitles.OutputPath = p.computeOutputPath(sourcePath)
	}

	p.NeedsWriting = true
	p.Autosave = NewAutosaveScheduler(
		p.Subtitles.Settings.GetDurationOr("autosave_delay", autosaveDelay),
		p.SaveProject,
		func(err error) { p.Log.Warnf("autosave failed: %v", err) },
	)
	return nil
}

// computeOutputPath derives the translated file's path from
// target_language and the detected file format, inserting the
// language before the extension (e.g. movie.srt -> movie.en.srt).
func (p *Project) computeOutputPath(sourcePath string) string {
	lang := p.Subtitles.Settings.GetStringOr("target_language", "")
	ext := strings.TrimPrefix(p.Subtitles.FileFormat, ".")
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(sourcePath), ".")
	}
	base := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
	if lang != "" {
		return base + "." + lang + "." + ext
	}
	return base + "." + ext
}

// SaveProject writes the translated subtitle file when any line is
// translated, and writes the `.subtrans` project file when Persistent
// (spec.md §4.8).
func (p *Project) SaveProject() error {
	if p.AnyTranslated() {
		if err := p.Subtitles.SaveTranslation(p.Subtitles.OutputPath, p.Registry); err != nil {
			return err
		}
	}
	if p.Persistent {
		data, err := MarshalProject(p.Subtitles)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p.projectPath, data, 0o644); err != nil {
			return suberrors.NewSubtitleParseError("failed to write project file", err)
		}
	}
	p.NeedsWriting = false
	if p.Autosave != nil {
		p.Autosave.Stop()
	}
	return nil
}

// TranslateSubtitles subscribes to translator's events for logging and
// drives a full translation run, writing a partial translation on
// failure (when any line already translated) and re-raising any
// non-aborted error (spec.md §4.8).
func (p *Project) TranslateSubtitles(ctx context.Context, translator *translate.Translator) error {
	translator.Events.OnError(func(err error) { p.Log.Warnf("translation error: %v", err) })
	translator.Events.OnWarning(func(msg string) { p.Log.Warnf("%s", msg) })
	translator.Events.OnInfo(func(msg string) { p.Log.Infof("%s", msg) })
	translator.Events.OnBatchTranslated(func(b *subtitle.Batch) { p.markNeedsWriting() })
	translator.Events.OnSceneTranslated(func(s *subtitle.Scene) { p.markNeedsWriting() })

	err := translator.Translate(ctx, p.Subtitles)
	if err != nil {
		if p.AnyTranslated() {
			_ = p.SaveProject()
		}
		return err
	}
	return nil
}

// TranslateScene runs translator over a single scene by number,
// reusing the same pipeline as TranslateSubtitles (spec.md §4.8).
func (p *Project) TranslateScene(ctx context.Context, translator *translate.Translator, sceneNumber int) error {
	scene := p.Subtitles.GetScene(sceneNumber)
	if scene == nil {
		return suberrors.NewSubtitleParseError("no scene with that number", nil)
	}

	single := &subtitle.Subtitles{
		Scenes:   []*subtitle.Scene{scene},
		Settings: p.Subtitles.Settings,
	}
	if err := translator.Translate(ctx, single); err != nil {
		return err
	}
	p.Subtitles.RebuildProjections()
	p.markNeedsWriting()
	return nil
}

// ReparseBatchTranslation re-runs the parser/validator over a raw
// response body for one batch, replacing its translated lines (spec.md
// §4.8's "targeted operations reusing the same machinery").
func (p *Project) ReparseBatchTranslation(sceneNumber, batchNumber int, responseText string) error {
	batch := p.Subtitles.GetBatch(sceneNumber, batchNumber)
	if batch == nil {
		return suberrors.NewSubtitleParseError("no batch with that scene/number", nil)
	}

	translation := translate.ParseFull(responseText)
	if len(translation.Lines) == 0 {
		return suberrors.NewTranslationResponseError("reparsed response contained no lines", nil)
	}

	batch.Translation = translation.Response
	if translation.Summary != "" {
		batch.Summary = translation.Summary
	}
	for _, lt := range translation.Lines {
		original := batch.GetOriginal(lt.Number)
		if original == nil {
			continue
		}
		batch.AddTranslatedLine(original.AsTranslation(lt.Text))
	}

	validator := translate.NewValidator(p.Subtitles.Settings)
	validator.ValidateBatch(batch)

	p.Subtitles.RebuildProjections()
	p.markNeedsWriting()
	return nil
}

// UpdateProjectSettings merges updates into the project's settings
// (spec.md §5 "Shared-resource policy": updates go through
// UpdateProjectSettings under the lock).
func (p *Project) UpdateProjectSettings(updates settings.Settings) {
	editor := subtitle.NewEditor(p.Subtitles)
	defer editor.Close()
	for k, v := range updates {
		p.Subtitles.Settings[k] = v
	}
}
