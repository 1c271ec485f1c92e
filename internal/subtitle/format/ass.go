package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// ASSHandler implements ASS/SSA (spec.md §4.4, §6, §9). No mature
// pure-Go ASS library exists in the retrieval pack to wrap (see
// DESIGN.md), so this is a hand-written parser/composer built to the
// "library-level fidelity" bar: full Script Info / Styles / Aegisub
// Project Garbage round-trip, lossless Color, and override-tag <->
// HTML mapping for basic formatting.
type ASSHandler struct{}

func NewASSHandler() *ASSHandler { return &ASSHandler{} }

func (h *ASSHandler) Extension() string { return ".ass" }
func (h *ASSHandler) Priority() int     { return 10 }

func (h *ASSHandler) Sniff(text string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSpace(text), "\xef\xbb\xbf")
	return strings.HasPrefix(trimmed, "[Script Info]")
}

// Color is a lossless RGBA representation of an ASS &HAABBGGRR colour.
type Color struct{ R, G, B, A uint8 }

// ParseASSColor decodes "&HAABBGGRR" (alpha optional, defaults 0).
func ParseASSColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "&H"), "&h")
	s = strings.TrimSuffix(s, "&")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, err
	}
	return Color{
		A: uint8((v >> 24) & 0xFF),
		B: uint8((v >> 16) & 0xFF),
		G: uint8((v >> 8) & 0xFF),
		R: uint8(v & 0xFF),
	}, nil
}

// String encodes back to "&HAABBGGRR".
func (c Color) String() string {
	v := uint32(c.A)<<24 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
	return fmt.Sprintf("&H%08X", v)
}

func (h *ASSHandler) ParseString(text string) (*SubtitleData, error) {
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	rawLines := strings.Split(text, "\n")

	sections := map[string][]string{}
	var sectionOrder []string
	currentSection := ""

	sectionRe := regexp.MustCompile(`^\[(.+)\]\s*$`)
	for _, line := range rawLines {
		if m := sectionRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			currentSection = m[1]
			if _, ok := sections[currentSection]; !ok {
				sectionOrder = append(sectionOrder, currentSection)
			}
			continue
		}
		if currentSection == "" {
			continue
		}
		sections[currentSection] = append(sections[currentSection], line)
	}

	eventLines, ok := sections["Events"]
	if !ok {
		return nil, suberrors.NewSubtitleParseError("ASS file missing [Events] section", nil)
	}

	formatColumns, textIdx, startIdx, endIdx, err := parseASSEventFormat(eventLines)
	if err != nil {
		return nil, err
	}

	var parsed []ParsedLine
	var nonDialogue []string
	number := 0

	for _, line := range eventLines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Format:") || trimmed == "" {
			continue
		}
		kind, rest, ok := splitEventKind(trimmed)
		if !ok {
			continue
		}
		if kind != "Dialogue" {
			nonDialogue = append(nonDialogue, line)
			continue
		}

		fields := splitASSFields(rest, len(formatColumns))
		if len(fields) < len(formatColumns) {
			return nil, suberrors.NewSubtitleParseError("malformed ASS Dialogue line", nil)
		}

		start := parseASSTimestamp(fields[startIdx])
		end := parseASSTimestamp(fields[endIdx])
		rawText := fields[textIdx]

		number++
		overrideStart, htmlText := assTextToHTML(rawText)

		metadata := map[string]any{
			"ass_fields_before": append([]string(nil), fields[:textIdx]...),
			"ass_fields_after":  append([]string(nil), fields[textIdx+1:]...),
		}
		if overrideStart != "" {
			metadata["override_tags_start"] = overrideStart
		}

		parsed = append(parsed, ParsedLine{
			Number:   number,
			Start:    start,
			End:      end,
			Text:     htmlText,
			Metadata: metadata,
		})
	}

	meta := map[string]any{
		"ass_sections":       sections,
		"ass_section_order":  sectionOrder,
		"ass_format_columns": formatColumns,
		"ass_non_dialogue":   nonDialogue,
	}

	if styleSection, styleFormat, styles, styleOther := parseASSStyles(sections); styleSection != "" {
		meta["ass_style_section"] = styleSection
		meta["ass_style_format"] = styleFormat
		meta["ass_styles"] = styles
		meta["ass_style_other"] = styleOther
	}

	return &SubtitleData{Lines: parsed, Metadata: meta, DetectedFormat: ".ass"}, nil
}

// assStyleSectionNames are the section headers that carry color-bearing
// "Style:" lines, newest first.
var assStyleSectionNames = []string{"V4+ Styles", "V4 Styles"}

// assColorColumns are the [V4+ Styles] Format columns whose values are
// "&HAABBGGRR" colors rather than plain numbers/strings.
var assColorColumns = map[string]bool{
	"primarycolour":   true,
	"secondarycolour": true,
	"outlinecolour":   true,
	"backcolour":      true,
}

// ASSStyle is one [V4+ Styles] "Style:" line, decomposed so its four
// color columns round-trip through Color/ParseASSColor as typed values
// instead of as an opaque string (spec.md §4.4's lossless color
// requirement).
type ASSStyle struct {
	Fields []string
	Colors map[string]Color
}

// parseASSStyles decomposes the first present styles section (if any),
// returning its Format columns, each Style: line with color fields
// parsed into typed Color values, and any other (comment/blank) lines
// in that section preserved verbatim.
func parseASSStyles(sections map[string][]string) (sectionName string, formatColumns []string, styles []*ASSStyle, other []string) {
	var lines []string
	for _, name := range assStyleSectionNames {
		if l, ok := sections[name]; ok {
			sectionName, lines = name, l
			break
		}
	}
	if sectionName == "" {
		return "", nil, nil, nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Format:") {
			parts := strings.Split(strings.TrimPrefix(trimmed, "Format:"), ",")
			for i, p := range parts {
				parts[i] = strings.TrimSpace(p)
			}
			formatColumns = parts
			break
		}
	}
	if len(formatColumns) == 0 {
		return sectionName, nil, nil, lines
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		kind, rest, ok := splitEventKind(trimmed)
		if !ok || kind != "Style" {
			if trimmed != "" && !strings.HasPrefix(trimmed, "Format:") {
				other = append(other, line)
			}
			continue
		}

		fields := strings.Split(rest, ",")
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}
		style := &ASSStyle{Fields: fields, Colors: map[string]Color{}}
		for i, col := range formatColumns {
			if i >= len(fields) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(col))
			if !assColorColumns[key] {
				continue
			}
			if c, err := ParseASSColor(fields[i]); err == nil {
				style.Colors[col] = c
			}
		}
		styles = append(styles, style)
	}
	return sectionName, formatColumns, styles, other
}

// buildASSStyleLine re-serializes a decomposed style, rendering its
// color fields back through Color.String() and leaving every other
// field as parsed.
func buildASSStyleLine(st *ASSStyle, formatColumns []string) string {
	fields := append([]string(nil), st.Fields...)
	for i, col := range formatColumns {
		if i >= len(fields) {
			continue
		}
		if c, ok := st.Colors[col]; ok {
			fields[i] = c.String()
		}
	}
	return "Style: " + strings.Join(fields, ",")
}

func (h *ASSHandler) LoadFile(path string) (*SubtitleData, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.ParseString(text)
}

func (h *ASSHandler) Compose(data *SubtitleData) (string, error) {
	sections, _ := data.Metadata["ass_sections"].(map[string][]string)
	order, _ := data.Metadata["ass_section_order"].([]string)
	formatColumns, _ := data.Metadata["ass_format_columns"].([]string)
	nonDialogue, _ := data.Metadata["ass_non_dialogue"].([]string)

	styleSection, _ := data.Metadata["ass_style_section"].(string)
	styleFormat, _ := data.Metadata["ass_style_format"].([]string)
	styles, _ := data.Metadata["ass_styles"].([]*ASSStyle)
	styleOther, _ := data.Metadata["ass_style_other"].([]string)

	if len(formatColumns) == 0 {
		formatColumns = defaultASSEventFormat
	}
	textIdx, startIdx, endIdx := -1, -1, -1
	for i, c := range formatColumns {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "text":
			textIdx = i
		case "start":
			startIdx = i
		case "end":
			endIdx = i
		}
	}

	var sb strings.Builder
	for _, name := range order {
		fmt.Fprintf(&sb, "[%s]\n", name)
		switch {
		case name == "Events":
			// Dialogue lines are re-emitted from the line model below;
			// only non-Format/non-Dialogue lines in Events (e.g.
			// Comment:) are carried verbatim via nonDialogue.
			for _, line := range sections[name] {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "Format:") {
					sb.WriteString(line)
					sb.WriteString("\n")
				}
			}
			for _, l := range data.Lines {
				sb.WriteString(buildASSDialogue(l, formatColumns, textIdx, startIdx, endIdx))
				sb.WriteString("\n")
			}
			for _, line := range nonDialogue {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		case name == styleSection && len(styles) > 0:
			// Style: lines are re-emitted from the decomposed styles so
			// their color columns round-trip through Color.String()
			// rather than as opaque passthrough text.
			for _, line := range sections[name] {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "Format:") {
					sb.WriteString(line)
					sb.WriteString("\n")
				}
			}
			for _, st := range styles {
				sb.WriteString(buildASSStyleLine(st, styleFormat))
				sb.WriteString("\n")
			}
			for _, line := range styleOther {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		default:
			for _, line := range sections[name] {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

var defaultASSEventFormat = []string{
	"Layer", "Start", "End", "Style", "Name", "MarginL", "MarginR", "MarginV", "Effect", "Text",
}

func parseASSEventFormat(eventLines []string) (columns []string, textIdx, startIdx, endIdx int, err error) {
	for _, line := range eventLines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Format:") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(trimmed, "Format:"), ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		columns = parts
		break
	}
	if len(columns) == 0 {
		return nil, -1, -1, -1, suberrors.NewSubtitleParseError("ASS file missing Format line in [Events]", nil)
	}
	textIdx, startIdx, endIdx = -1, -1, -1
	for i, c := range columns {
		switch strings.ToLower(c) {
		case "text":
			textIdx = i
		case "start":
			startIdx = i
		case "end":
			endIdx = i
		}
	}
	if textIdx == -1 {
		return nil, -1, -1, -1, suberrors.NewSubtitleParseError("ASS Format line missing Text column", nil)
	}
	return columns, textIdx, startIdx, endIdx, nil
}

func splitEventKind(line string) (kind, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// splitASSFields splits a Dialogue value list on commas, keeping the
// final (Text) field intact even if it contains commas.
func splitASSFields(content string, numFields int) []string {
	if numFields <= 0 {
		return nil
	}
	parts := make([]string, 0, numFields)
	remaining := content
	for i := 0; i < numFields-1; i++ {
		idx := strings.Index(remaining, ",")
		if idx == -1 {
			parts = append(parts, remaining)
			remaining = ""
			break
		}
		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+1:]
	}
	parts = append(parts, remaining)
	return parts
}

func buildASSDialogue(l ParsedLine, columns []string, textIdx, startIdx, endIdx int) string {
	fields := make([]string, len(columns))
	before, _ := l.Metadata["ass_fields_before"].([]string)
	after, _ := l.Metadata["ass_fields_after"].([]string)
	for i := 0; i < textIdx && i < len(before); i++ {
		fields[i] = before[i]
	}
	for i := 0; i < len(after) && textIdx+1+i < len(fields); i++ {
		fields[textIdx+1+i] = after[i]
	}
	if startIdx >= 0 {
		fields[startIdx] = formatASSTimestamp(l.Start)
	}
	if endIdx >= 0 {
		fields[endIdx] = formatASSTimestamp(l.End)
	}

	overrideStart, _ := l.Metadata["override_tags_start"].(string)
	fields[textIdx] = overrideStart + htmlToASSText(l.Text)

	return "Dialogue: " + strings.Join(fields, ",")
}

func parseASSTimestamp(ts string) time.Duration {
	ts = strings.TrimSpace(ts)
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	secParts := strings.Split(parts[2], ".")
	if len(secParts) != 2 {
		return 0
	}
	s, _ := strconv.Atoi(secParts[0])
	centis, _ := strconv.Atoi(secParts[1])
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(centis)*10*time.Millisecond
}

func formatASSTimestamp(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	centis := int(d/(10*time.Millisecond)) % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, centis)
}

// Basic override tags that translate to HTML for display.
var (
	basicTagOpenRe = regexp.MustCompile(`\\([ibus])1`)
	leadingBlockRe = regexp.MustCompile(`^(\{[^}]*\})+`)
)

// assTextToHTML splits the leading override block into a
// non-formatting prefix (returned as overrideStart, restored verbatim
// on compose) and converts basic formatting tags + \N/\n within the
// remaining text to HTML, per spec.md §4.4/S3.
func assTextToHTML(raw string) (overrideStart string, html string) {
	leading := leadingBlockRe.FindString(raw)
	rest := raw[len(leading):]

	// Extract basic tags from the leading block as an immediate <tag>
	// opener; anything else in the block is non-formatting and is
	// preserved verbatim in overrideStart.
	var nonFormatting strings.Builder
	var openers []string
	if leading != "" {
		inner := leading
		blockRe := regexp.MustCompile(`\{([^}]*)\}`)
		for _, blockMatch := range blockRe.FindAllStringSubmatch(inner, -1) {
			tags := splitASSTagList(blockMatch[1])
			var keep []string
			for _, tag := range tags {
				if m := basicTagOpenRe.FindStringSubmatch("\\" + tag); m != nil && strings.HasPrefix(tag, m[1]+"1") {
					openers = append(openers, m[1])
					continue
				}
				keep = append(keep, tag)
			}
			if len(keep) > 0 {
				nonFormatting.WriteString("{\\" + strings.Join(keep, "\\") + "}")
			}
		}
	}

	body := assInlineToHTML(rest, openers)

	return nonFormatting.String(), body
}

func splitASSTagList(block string) []string {
	var tags []string
	for _, part := range strings.Split(block, "\\") {
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// assInlineToHTML walks the remaining text converting \N -> newline,
// \n -> <wbr>, and any {\i1}../{\i0} etc. pairs to <i>..</i>. openers
// are basic tags already opened by the leading override block; they
// are emitted as opening HTML tags up front and rely on a matching
// {\tagN 0} later in text to close them via the ordinary inline
// conversion below — they are not force-closed at the end, since the
// closing directive (if present) already produces that close tag.
func assInlineToHTML(text string, openers []string) string {
	text = strings.ReplaceAll(text, "\\N", "\n")
	text = strings.ReplaceAll(text, "\\n", "<wbr>")

	inlineTagRe := regexp.MustCompile(`\{\\([ibus])([01])\}`)
	text = inlineTagRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineTagRe.FindStringSubmatch(m)
		tag, state := sub[1], sub[2]
		if state == "1" {
			return "<" + tag + ">"
		}
		return "</" + tag + ">"
	})

	var sb strings.Builder
	for _, tag := range openers {
		sb.WriteString("<" + tag + ">")
	}
	sb.WriteString(text)
	return sb.String()
}

// htmlToASSText is the inverse of assTextToHTML's body conversion:
// <i>..</i> etc. back to {\i1}..{\i0}, newline -> \N, <wbr> -> \n.
func htmlToASSText(html string) string {
	var sb strings.Builder
	tagRe := regexp.MustCompile(`</?([ibus])>`)
	last := 0
	for _, loc := range tagRe.FindAllStringSubmatchIndex(html, -1) {
		sb.WriteString(html[last:loc[0]])
		tag := html[loc[2]:loc[3]]
		if html[loc[0]+1] == '/' {
			sb.WriteString("{\\" + tag + "0}")
		} else {
			sb.WriteString("{\\" + tag + "1}")
		}
		last = loc[1]
	}
	sb.WriteString(html[last:])

	out := sb.String()
	out = strings.ReplaceAll(out, "<wbr>", "\\n")
	out = strings.ReplaceAll(out, "\n", "\\N")
	return out
}
