package translate

import (
	"testing"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
)

func TestValidateTranslationsEmptyInputIsUntranslated(t *testing.T) {
	v := NewValidator(settings.New())
	errs := v.ValidateTranslations(nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if _, ok := errs[0].(*suberrors.UntranslatedLinesError); !ok {
		t.Errorf("expected UntranslatedLinesError, got %T", errs[0])
	}
}

func TestValidateTranslationsDetectsEachErrorKind(t *testing.T) {
	v := &Validator{MaxCharacters: 5, MaxNewlines: 1}
	lines := []*subtitle.Line{
		{Number: 0, Text: "bad number"},
		subtitle.NewLine(1, 0, time.Second, "   "),
		subtitle.NewLine(2, 0, time.Second, "way too long"),
		subtitle.NewLine(3, 0, time.Second, "a\nb\nc"),
	}
	errs := v.ValidateTranslations(lines)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	if _, ok := errs[0].(*suberrors.UnmatchedLinesError); !ok {
		t.Errorf("errs[0] = %T, want UnmatchedLinesError", errs[0])
	}
	if _, ok := errs[1].(*suberrors.EmptyLinesError); !ok {
		t.Errorf("errs[1] = %T, want EmptyLinesError", errs[1])
	}
	if _, ok := errs[2].(*suberrors.LineTooLongError); !ok {
		t.Errorf("errs[2] = %T, want LineTooLongError", errs[2])
	}
	if _, ok := errs[3].(*suberrors.TooManyNewlinesError); !ok {
		t.Errorf("errs[3] = %T, want TooManyNewlinesError", errs[3])
	}
}

func TestValidateBatchFlagsUntranslatedOriginals(t *testing.T) {
	v := NewValidator(settings.New())
	batch := &subtitle.Batch{
		Number:    1,
		Originals: []*subtitle.Line{subtitle.NewLine(1, 0, time.Second, "a"), subtitle.NewLine(2, time.Second, 2*time.Second, "b")},
	}
	batch.AddTranslatedLine(subtitle.NewLine(1, 0, time.Second, "x"))

	v.ValidateBatch(batch)
	if len(batch.Errors) != 1 {
		t.Fatalf("expected 1 batch error, got %d", len(batch.Errors))
	}
	if _, ok := batch.Errors[0].(*suberrors.UntranslatedLinesError); !ok {
		t.Errorf("expected UntranslatedLinesError, got %T", batch.Errors[0])
	}
}

func TestValidateBatchNoErrorWhenFullyTranslated(t *testing.T) {
	v := NewValidator(settings.New())
	batch := &subtitle.Batch{
		Number:    1,
		Originals: []*subtitle.Line{subtitle.NewLine(1, 0, time.Second, "a")},
	}
	batch.AddTranslatedLine(subtitle.NewLine(1, 0, time.Second, "x"))

	v.ValidateBatch(batch)
	if len(batch.Errors) != 0 {
		t.Errorf("expected no batch errors, got %d", len(batch.Errors))
	}
}

func TestValidateBatchFlagsNearDuplicateTranslation(t *testing.T) {
	v := NewValidator(settings.New())
	batch := &subtitle.Batch{
		Number:    1,
		Originals: []*subtitle.Line{subtitle.NewLine(1, 0, time.Second, "Hello world")},
	}
	batch.AddTranslatedLine(subtitle.NewLine(1, 0, time.Second, "Hello world!"))

	v.ValidateBatch(batch)
	if len(batch.Errors) != 1 {
		t.Fatalf("expected 1 batch error for a near-duplicate translation, got %d", len(batch.Errors))
	}
	if _, ok := batch.Errors[0].(*suberrors.UntranslatedLinesError); !ok {
		t.Errorf("expected UntranslatedLinesError, got %T", batch.Errors[0])
	}
}

func TestCheckUnmatchedReportsTranslationWithNoOriginal(t *testing.T) {
	v := NewValidator(settings.New())
	batch := &subtitle.Batch{
		Originals:  []*subtitle.Line{subtitle.NewLine(1, 0, time.Second, "a")},
		Translated: []*subtitle.Line{subtitle.NewLine(1, 0, time.Second, "x"), subtitle.NewLine(99, 0, time.Second, "y")},
	}
	if err := v.CheckUnmatched(batch); err == nil {
		t.Error("expected error for unmatched translated line 99")
	}
}

func TestIsNearDuplicate(t *testing.T) {
	if !IsNearDuplicate("Hello world", "Hello world!") {
		t.Error("expected a one-character difference to be a near duplicate")
	}
	if IsNearDuplicate("Hello world", "Bonjour le monde") {
		t.Error("expected an unrelated translation not to be a near duplicate")
	}
	if IsNearDuplicate("", "anything") {
		t.Error("expected empty original to never be a near duplicate")
	}
}
