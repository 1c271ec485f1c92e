package translate

import (
	"regexp"
	"strconv"
	"strings"
)

// LineTranslation is one parsed `<line n="K">text</line>` entry.
type LineTranslation struct {
	Number int
	Text   string
}

// Translation is the parsed result of a (possibly partial) response
// (spec.md §3 Translation entity).
type Translation struct {
	Response     string
	Lines        []LineTranslation
	Summary      string
	SceneSummary string
	Reasoning    string
	FinishReason string
}

var lineTagRe = regexp.MustCompile(`(?s)<line\s+n="(\d+)">(.*?)</line>`)
var summaryTagRe = regexp.MustCompile(`(?s)<summary>(.*?)</summary>`)
var sceneSummaryTagRe = regexp.MustCompile(`(?s)<scene_summary>(.*?)</scene_summary>`)

// Parser is a lazy, restartable line-by-line parser over an
// accumulating streaming buffer: each Feed call only re-scans the
// unconsumed tail, never restarting from zero (spec.md §9).
type Parser struct {
	buffer    strings.Builder
	consumed  int
	lineCount int
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed appends fragment to the internal buffer and returns any newly
// completed `<line>` entries found since the last call.
func (p *Parser) Feed(fragment string) []LineTranslation {
	p.buffer.WriteString(fragment)
	tail := p.buffer.String()[p.consumed:]

	var newLines []LineTranslation
	matches := lineTagRe.FindAllStringSubmatchIndex(tail, -1)
	for _, m := range matches {
		numStr := tail[m[2]:m[3]]
		body := tail[m[4]:m[5]]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		newLines = append(newLines, LineTranslation{Number: n, Text: strings.TrimSpace(body)})
	}
	if len(matches) > 0 {
		p.consumed += matches[len(matches)-1][1]
		p.lineCount += len(matches)
	}
	return newLines
}

// ParseFull parses a complete (non-streaming) response body into a
// Translation, extracting lines, an optional batch summary and scene
// summary (spec.md §4.5/§4.7).
func ParseFull(text string) *Translation {
	t := &Translation{Response: text}

	for _, m := range lineTagRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		t.Lines = append(t.Lines, LineTranslation{Number: n, Text: strings.TrimSpace(m[2])})
	}

	if m := summaryTagRe.FindStringSubmatch(text); m != nil {
		t.Summary = strings.TrimSpace(m[1])
	}
	if m := sceneSummaryTagRe.FindStringSubmatch(text); m != nil {
		t.SceneSummary = strings.TrimSpace(m[1])
	}

	return t
}
