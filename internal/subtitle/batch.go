package subtitle

import (
	"sort"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// Batch is a contiguous group of lines translated together (spec.md
// §3 SubtitleBatch).
type Batch struct {
	Scene      int
	Number     int
	Originals  []*Line
	Translated []*Line
	Summary    string
	Context    string
	Prompt     string
	Translation string
	Errors     []error
}

// AnyTranslated reports whether this batch has at least one translated line.
func (b *Batch) AnyTranslated() bool {
	return len(b.Translated) > 0
}

// AllTranslated reports whether every original line has a matching translation.
func (b *Batch) AllTranslated() bool {
	if len(b.Originals) == 0 {
		return false
	}
	if len(b.Translated) < len(b.Originals) {
		return false
	}
	have := make(map[int]bool, len(b.Translated))
	for _, t := range b.Translated {
		have[t.Number] = true
	}
	for _, o := range b.Originals {
		if !have[o.Number] {
			return false
		}
	}
	return true
}

// LineCount is the number of original lines in the batch.
func (b *Batch) LineCount() int { return len(b.Originals) }

// GetOriginal returns the original line with the given number, or nil.
func (b *Batch) GetOriginal(number int) *Line {
	for _, l := range b.Originals {
		if l.Number == number {
			return l
		}
	}
	return nil
}

// AddTranslatedLine inserts or replaces a translated line, keeping the
// slice sorted by number (spec.md §4.1 AddTranslatedLine).
func (b *Batch) AddTranslatedLine(line *Line) {
	idx := sort.Search(len(b.Translated), func(i int) bool {
		return b.Translated[i].Number >= line.Number
	})
	if idx < len(b.Translated) && b.Translated[idx].Number == line.Number {
		b.Translated[idx] = line
		return
	}
	b.Translated = append(b.Translated, nil)
	copy(b.Translated[idx+1:], b.Translated[idx:])
	b.Translated[idx] = line
}

// DeleteLines removes lines with the given numbers from both originals
// and translated, returning what was actually removed from each.
func (b *Batch) DeleteLines(numbers []int) (deletedOriginals, deletedTranslated []*Line) {
	wanted := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = true
	}

	keepOriginals := b.Originals[:0:0]
	for _, l := range b.Originals {
		if wanted[l.Number] {
			deletedOriginals = append(deletedOriginals, l)
		} else {
			keepOriginals = append(keepOriginals, l)
		}
	}
	b.Originals = keepOriginals

	keepTranslated := b.Translated[:0:0]
	for _, l := range b.Translated {
		if wanted[l.Number] {
			deletedTranslated = append(deletedTranslated, l)
		} else {
			keepTranslated = append(keepTranslated, l)
		}
	}
	b.Translated = keepTranslated

	return deletedOriginals, deletedTranslated
}

// MergeLines merges a contiguous run of original lines (by number)
// into a single line spanning their timing, joining text with
// newlines. Returns the merged original and, if present, the merged
// translation.
func (b *Batch) MergeLines(numbers []int) (*Line, *Line, error) {
	if len(numbers) < 2 {
		return nil, nil, suberrors.NewSettingsError("need at least two line numbers to merge")
	}

	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)

	var toMerge []*Line
	for _, n := range sorted {
		l := b.GetOriginal(n)
		if l == nil {
			return nil, nil, suberrors.NewSettingsError("line not found in batch")
		}
		toMerge = append(toMerge, l)
	}

	merged := toMerge[0].Clone()
	merged.End = toMerge[len(toMerge)-1].End
	texts := make([]string, 0, len(toMerge))
	for _, l := range toMerge {
		texts = append(texts, l.Text)
	}
	merged.Text = joinNonEmpty(texts, "\n")

	remove := make(map[int]bool, len(sorted))
	for _, n := range sorted[1:] {
		remove[n] = true
	}
	kept := b.Originals[:0:0]
	for _, l := range b.Originals {
		if l.Number == sorted[0] {
			kept = append(kept, merged)
		} else if !remove[l.Number] {
			kept = append(kept, l)
		}
	}
	b.Originals = kept

	var mergedTranslation *Line
	if len(b.Translated) > 0 {
		var translatedToMerge []*Line
		for _, n := range sorted {
			for _, t := range b.Translated {
				if t.Number == n {
					translatedToMerge = append(translatedToMerge, t)
				}
			}
		}
		if len(translatedToMerge) > 0 {
			mergedTranslation = translatedToMerge[0].Clone()
			mergedTranslation.End = merged.End
			ttexts := make([]string, 0, len(translatedToMerge))
			for _, t := range translatedToMerge {
				ttexts = append(ttexts, t.Text)
			}
			mergedTranslation.Text = joinNonEmpty(ttexts, "\n")

			keptT := b.Translated[:0:0]
			for _, t := range b.Translated {
				if t.Number == sorted[0] {
					keptT = append(keptT, mergedTranslation)
				} else if !remove[t.Number] {
					keptT = append(keptT, t)
				}
			}
			b.Translated = keptT
		}
	}

	return merged, mergedTranslation, nil
}

func joinNonEmpty(parts []string, sep string) string {
	var out string
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
