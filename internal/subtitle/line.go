// Package subtitle implements the hierarchical subtitle data model
// described in spec.md §3-§4: Line, Batch, Scene, Subtitles, the
// scoped Editor, the Batcher, and the preprocessing pass.
package subtitle

import "time"

// Line is a single subtitle entry, addressable by a globally unique
// number within its owning file.
type Line struct {
	Number      int
	Start       *time.Duration
	End         *time.Duration
	Text        string
	Translation *string
	Original    *string
	Metadata    map[string]any
}

// Clone returns a deep-enough copy for safe independent mutation.
func (l *Line) Clone() *Line {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Start != nil {
		start := *l.Start
		clone.Start = &start
	}
	if l.End != nil {
		end := *l.End
		clone.End = &end
	}
	if l.Metadata != nil {
		clone.Metadata = make(map[string]any, len(l.Metadata))
		for k, v := range l.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Valid reports whether the line satisfies the invariant in spec.md
// §3: number must be positive and Start must be set.
func (l *Line) Valid() bool {
	return l != nil && l.Number > 0 && l.Start != nil
}

// Duration is End-Start, or zero if either bound is missing.
func (l *Line) Duration() time.Duration {
	if l.Start == nil || l.End == nil {
		return 0
	}
	return *l.End - *l.Start
}

// NewLine builds a line with explicit start/end.
func NewLine(number int, start, end time.Duration, text string) *Line {
	s, e := start, end
	return &Line{Number: number, Start: &s, End: &e, Text: text}
}

// AsTranslation builds a translated line carrying the same number,
// timing and metadata as the original, per spec.md §4.2
// UpdateLineText / DuplicateOriginalsAsTranslations semantics.
func (l *Line) AsTranslation(text string) *Line {
	clone := l.Clone()
	clone.Text = text
	return clone
}
