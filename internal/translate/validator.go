package translate

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// Validator checks translated lines against the constraints in
// spec.md §4.7, grounded on
// original_source/PySubtitle/UnitTests/test_SubtitleValidator.py.
type Validator struct {
	MaxCharacters int
	MaxNewlines   int
}

// NewValidator builds a Validator from project settings.
func NewValidator(s settings.Settings) *Validator {
	return &Validator{
		MaxCharacters: s.GetIntOr("max_characters", 120),
		MaxNewlines:   s.GetIntOr("max_newlines", 2),
	}
}

// ValidateTranslations checks a flat list of translated lines,
// returning one error per distinct problem found (test_SubtitleValidator
// .test_ValidateTranslations_detects_errors: a line with no number is
// UnmatchedLinesError, empty text is EmptyLinesError, an overlong line
// is LineTooLongError, too many newlines is TooManyNewlinesError). An
// empty input list itself is UntranslatedLinesError.
func (v *Validator) ValidateTranslations(lines []*subtitle.Line) []error {
	if len(lines) == 0 {
		return []error{suberrors.NewUntranslatedLinesError("no translated lines")}
	}

	var errs []error
	for _, l := range lines {
		if l.Number <= 0 {
			errs = append(errs, suberrors.NewUnmatchedLinesError(
				fmt.Sprintf("line has no valid number: %q", l.Text)))
			continue
		}
		if strings.TrimSpace(l.Text) == "" {
			errs = append(errs, suberrors.NewEmptyLinesError(
				fmt.Sprintf("line %d has empty text", l.Number)))
			continue
		}
		if v.MaxCharacters > 0 && len(l.Text) > v.MaxCharacters {
			errs = append(errs, suberrors.NewLineTooLongError(
				fmt.Sprintf("line %d exceeds max_characters (%d > %d)", l.Number, len(l.Text), v.MaxCharacters)))
		}
		if v.MaxNewlines > 0 && strings.Count(l.Text, "\n") > v.MaxNewlines {
			errs = append(errs, suberrors.NewTooManyNewlinesError(
				fmt.Sprintf("line %d exceeds max_newlines", l.Number)))
		}
	}
	return errs
}

// ValidateBatch checks that every original line has a matching
// translation, appending an UntranslatedLinesError to batch.Errors if
// not (test_SubtitleValidator.test_ValidateBatch_adds_untranslated_error).
// A translation that comes back within NearDuplicateThreshold of its
// original by edit distance is flagged the same way: most providers
// echoing the source text back verbatim means the line was never
// actually translated, not that the translation happens to be short.
func (v *Validator) ValidateBatch(batch *subtitle.Batch) {
	translatedByNumber := make(map[int]*subtitle.Line, len(batch.Translated))
	for _, t := range batch.Translated {
		translatedByNumber[t.Number] = t
	}

	var missing []int
	for _, o := range batch.Originals {
		t, ok := translatedByNumber[o.Number]
		if !ok {
			missing = append(missing, o.Number)
			continue
		}
		if IsNearDuplicate(o.Text, t.Text) {
			batch.Errors = append(batch.Errors, suberrors.NewUntranslatedLinesError(
				fmt.Sprintf("line %d translation is near-identical to the original, likely untranslated", o.Number)))
		}
	}
	if len(missing) > 0 {
		batch.Errors = append(batch.Errors, suberrors.NewUntranslatedLinesError(
			fmt.Sprintf("%d untranslated lines in batch %d", len(missing), batch.Number)))
	}
}

// CheckUnmatched reports any translated line number with no matching
// original (spec.md §4.7 "line numbers must map 1:1 to originals").
func (v *Validator) CheckUnmatched(batch *subtitle.Batch) error {
	originalNumbers := make(map[int]bool, len(batch.Originals))
	for _, o := range batch.Originals {
		originalNumbers[o.Number] = true
	}
	var unmatched []int
	for _, t := range batch.Translated {
		if !originalNumbers[t.Number] {
			unmatched = append(unmatched, t.Number)
		}
	}
	if len(unmatched) > 0 {
		return suberrors.NewUnmatchedLinesError(
			fmt.Sprintf("translated lines with no matching original: %v", unmatched))
	}
	return nil
}

// NearDuplicateThreshold is the normalised Levenshtein distance below
// which a reparsed translation is flagged as suspiciously close to the
// original (possibly an untranslated passthrough).
const NearDuplicateThreshold = 0.15

// IsNearDuplicate reports whether translated is within
// NearDuplicateThreshold of original by normalised edit distance,
// using github.com/agnivade/levenshtein for the fuzzy comparison
// instead of an exact string match.
func IsNearDuplicate(original, translated string) bool {
	if original == "" || translated == "" {
		return false
	}
	dist := levenshtein.ComputeDistance(original, translated)
	maxLen := len(original)
	if len(translated) > maxLen {
		maxLen = len(translated)
	}
	if maxLen == 0 {
		return false
	}
	return float64(dist)/float64(maxLen) <= NearDuplicateThreshold
}
