package subtitle

import (
	"regexp"
	"strings"
	"time"
)

// Processor implements the PreProcess pass from spec.md §4.2: trim
// whitespace, break long lines at sentence boundaries, convert
// whitespace-only separators to newlines, remove configured filler
// words, clamp max line duration. A line longer than MaxLineDuration
// has its End moved back; it is not split into several lines.
//
// Deterministic and idempotent (spec.md §8 invariant 4): running it
// twice in a row produces the same result as running it once.
type Processor struct {
	MaxLineDuration  time.Duration
	MaxLineLength    int
	FillerWords      []string
	ConvertWhitespace bool
}

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// PreprocessLines applies every configured pass to a copy of lines,
// returning new Line values (never mutating the input slice headers,
// though clones share no state with the originals).
func (p *Processor) PreprocessLines(lines []*Line) []*Line {
	out := make([]*Line, len(lines))
	for i, l := range lines {
		clone := l.Clone()
		clone.Text = p.trimWhitespace(clone.Text)
		if p.ConvertWhitespace {
			clone.Text = p.whitespaceToNewlines(clone.Text)
		}
		clone.Text = p.removeFillerWords(clone.Text)
		if p.MaxLineLength > 0 {
			clone.Text = p.breakLongLines(clone.Text)
		}
		p.clampDuration(clone)
		out[i] = clone
	}
	return out
}

func (p *Processor) trimWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}

// whitespaceToNewlines turns runs of horizontal whitespace between
// non-empty segments into newlines when the text has no newline yet,
// a normalisation some subtitle sources require (text wrapped onto
// one physical line with multiple spaces standing in for a break).
func (p *Processor) whitespaceToNewlines(text string) string {
	if strings.Contains(text, "\n") {
		return text
	}
	re := regexp.MustCompile(`\s{2,}`)
	return re.ReplaceAllString(text, "\n")
}

func (p *Processor) removeFillerWords(text string) string {
	if len(p.FillerWords) == 0 {
		return text
	}
	for _, word := range p.FillerWords {
		if word == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		text = re.ReplaceAllString(text, "")
	}
	re := regexp.MustCompile(`[ \t]{2,}`)
	text = re.ReplaceAllString(text, " ")
	return p.trimWhitespace(text)
}

// breakLongLines inserts a newline at the nearest sentence boundary
// before MaxLineLength, if one exists; otherwise leaves the line
// untouched rather than breaking mid-word.
func (p *Processor) breakLongLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		out = append(out, p.breakLine(line)...)
	}
	return strings.Join(out, "\n")
}

func (p *Processor) breakLine(line string) []string {
	if len(line) <= p.MaxLineLength {
		return []string{line}
	}

	matches := sentenceBoundary.FindAllStringIndex(line, -1)
	bestSplit := -1
	for _, m := range matches {
		if m[1] <= p.MaxLineLength {
			bestSplit = m[1]
		}
	}
	if bestSplit <= 0 {
		return []string{line}
	}

	first := strings.TrimSpace(line[:bestSplit])
	rest := strings.TrimSpace(line[bestSplit:])
	if rest == "" {
		return []string{first}
	}
	return append([]string{first}, p.breakLine(rest)...)
}

// clampDuration enforces MaxLineDuration by shortening End, never
// moving it before Start.
func (p *Processor) clampDuration(l *Line) {
	if p.MaxLineDuration <= 0 || l.Start == nil || l.End == nil {
		return
	}
	if *l.End-*l.Start > p.MaxLineDuration {
		clamped := *l.Start + p.MaxLineDuration
		l.End = &clamped
	}
}
