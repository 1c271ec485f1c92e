package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// VTTHandler implements WebVTT (spec.md §4.4, §6): STYLE/NOTE blocks,
// cue identifiers, cue settings, and full-line voice tags.
type VTTHandler struct{}

func NewVTTHandler() *VTTHandler { return &VTTHandler{} }

func (h *VTTHandler) Extension() string { return ".vtt" }
func (h *VTTHandler) Priority() int     { return 10 }

func (h *VTTHandler) Sniff(text string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSpace(text), "\xef\xbb\xbf")
	return strings.HasPrefix(trimmed, "WEBVTT")
}

var (
	vttLongTimestampRe  = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})\.(\d{3})(.*)$`)
	vttShortTimestampRe = regexp.MustCompile(`^(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2})\.(\d{3})(.*)$`)
	vttVoiceLineRe      = regexp.MustCompile(`^<v(((?:\.[\w-]+)*))\s*([^>]*)>(.*?)(?:</v>)?$`)
)

func (h *VTTHandler) ParseString(text string) (*SubtitleData, error) {
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	rawLines := strings.Split(text, "\n")

	if len(rawLines) == 0 || !strings.HasPrefix(strings.TrimSpace(rawLines[0]), "WEBVTT") {
		return nil, suberrors.NewSubtitleParseError("not a WebVTT file: missing WEBVTT header", nil)
	}

	var styles, notes []string
	var parsed []ParsedLine
	entryIndex := 0
	i := 1

	for i < len(rawLines) {
		line := rawLines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++
			continue

		case strings.HasPrefix(trimmed, "STYLE"):
			block, next := consumeBlock(rawLines, i)
			styles = append(styles, strings.Join(block, "\n"))
			i = next
			continue

		case trimmed == "NOTE" || strings.HasPrefix(trimmed, "NOTE "):
			block, next := consumeBlock(rawLines, i)
			notes = append(notes, strings.Join(block, "\n"))
			i = next
			continue
		}

		// Optional cue identifier line precedes the timestamp line.
		cueID := ""
		timestampLine := line
		if !isTimestampLine(timestampLine) {
			if i+1 < len(rawLines) && isTimestampLine(rawLines[i+1]) {
				cueID = trimmed
				i++
				timestampLine = rawLines[i]
			} else {
				// Stray non-cue content; skip.
				i++
				continue
			}
		}

		start, end, settings, err := parseVTTTimestampLine(timestampLine)
		if err != nil {
			return nil, err
		}
		i++

		var textLines []string
		for i < len(rawLines) && strings.TrimSpace(rawLines[i]) != "" {
			textLines = append(textLines, rawLines[i])
			i++
		}

		entryIndex++
		cueText := strings.Join(textLines, "\n")
		metadata := map[string]any{}
		if cueID != "" {
			metadata["cue_id"] = cueID
		}
		if settings != "" {
			metadata["vtt_settings"] = settings
		}

		cueText = extractVoiceTag(cueText, metadata)

		parsed = append(parsed, ParsedLine{
			Number:   entryIndex,
			Start:    start,
			End:      end,
			Text:     cueText,
			Metadata: metadata,
		})
	}

	meta := map[string]any{}
	if len(styles) > 0 {
		meta["vtt_styles"] = styles
	}
	if len(notes) > 0 {
		meta["vtt_notes"] = notes
	}

	return &SubtitleData{Lines: parsed, Metadata: meta, DetectedFormat: ".vtt"}, nil
}

func (h *VTTHandler) LoadFile(path string) (*SubtitleData, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.ParseString(text)
}

func (h *VTTHandler) Compose(data *SubtitleData) (string, error) {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	if data.Metadata != nil {
		if styles, ok := data.Metadata["vtt_styles"].([]string); ok {
			for _, block := range styles {
				sb.WriteString(block)
				sb.WriteString("\n\n")
			}
		}
		if notes, ok := data.Metadata["vtt_notes"].([]string); ok {
			for _, block := range notes {
				sb.WriteString(block)
				sb.WriteString("\n\n")
			}
		}
	}

	for _, l := range data.Lines {
		if l.Metadata != nil {
			if cueID, ok := l.Metadata["cue_id"].(string); ok && cueID != "" {
				sb.WriteString(cueID)
				sb.WriteString("\n")
			}
		}

		sb.WriteString(formatVTTTime(l.Start))
		sb.WriteString(" --> ")
		sb.WriteString(formatVTTTime(l.End))
		if l.Metadata != nil {
			if settings, ok := l.Metadata["vtt_settings"].(string); ok && settings != "" {
				sb.WriteString(settings)
			}
		}
		sb.WriteString("\n")

		sb.WriteString(restoreVoiceTag(l.Text, l.Metadata))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

func isTimestampLine(line string) bool {
	return vttLongTimestampRe.MatchString(strings.TrimSpace(line)) ||
		vttShortTimestampRe.MatchString(strings.TrimSpace(line))
}

func parseVTTTimestampLine(line string) (start, end time.Duration, settings string, err error) {
	trimmed := strings.TrimSpace(line)

	if m := vttLongTimestampRe.FindStringSubmatch(trimmed); m != nil {
		start, err = parseVTTTimestamp(m[1], m[2], m[3], m[4])
		if err != nil {
			return 0, 0, "", suberrors.NewSubtitleParseError("invalid VTT start timestamp", err)
		}
		end, err = parseVTTTimestamp(m[5], m[6], m[7], m[8])
		if err != nil {
			return 0, 0, "", suberrors.NewSubtitleParseError("invalid VTT end timestamp", err)
		}
		return start, end, strings.TrimSpace(m[9]), nil
	}

	if m := vttShortTimestampRe.FindStringSubmatch(trimmed); m != nil {
		start, err = parseVTTTimestamp("00", m[1], m[2], m[3])
		if err != nil {
			return 0, 0, "", suberrors.NewSubtitleParseError("invalid VTT start timestamp", err)
		}
		end, err = parseVTTTimestamp("00", m[4], m[5], m[6])
		if err != nil {
			return 0, 0, "", suberrors.NewSubtitleParseError("invalid VTT end timestamp", err)
		}
		return start, end, strings.TrimSpace(m[7]), nil
	}

	return 0, 0, "", suberrors.NewSubtitleParseError("malformed VTT timestamp line: "+line, nil)
}

func parseVTTTimestamp(hh, mm, ss, ms string) (time.Duration, error) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(ss)
	if err != nil {
		return 0, err
	}
	msec, err := strconv.Atoi(ms)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(msec)*time.Millisecond, nil
}

func formatVTTTime(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	ms := int(d/time.Millisecond) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// consumeBlock returns the lines of a STYLE/NOTE block starting at
// index i (inclusive) up to but not including the next blank line.
func consumeBlock(lines []string, i int) ([]string, int) {
	var block []string
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
		block = append(block, lines[i])
		i++
	}
	return block, i
}

// extractVoiceTag recognises a full-line leading voice tag
// `<v(.class)* Name?>text</v?>`, storing speaker/voice_classes in
// metadata and returning the inner text. Partial/inline voice tags
// (not spanning the whole cue) are left verbatim.
func extractVoiceTag(text string, metadata map[string]any) string {
	m := vttVoiceLineRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}

	classPart, name, inner := m[1], strings.TrimSpace(m[3]), m[4]

	var classes []string
	for _, c := range strings.Split(classPart, ".") {
		if c != "" {
			classes = append(classes, c)
		}
	}

	if name != "" {
		metadata["speaker"] = name
	}
	if len(classes) > 0 {
		metadata["voice_classes"] = classes
	}
	return inner
}

// restoreVoiceTag rebuilds a full-line voice tag from metadata if
// speaker or voice_classes is present.
func restoreVoiceTag(text string, metadata map[string]any) string {
	if metadata == nil {
		return text
	}
	speaker, _ := metadata["speaker"].(string)
	classes, _ := metadata["voice_classes"].([]string)
	if speaker == "" && len(classes) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString("<v")
	for _, c := range classes {
		sb.WriteString(".")
		sb.WriteString(c)
	}
	if speaker != "" {
		sb.WriteString(" ")
		sb.WriteString(speaker)
	}
	sb.WriteString(">")
	sb.WriteString(text)
	sb.WriteString("</v>")
	return sb.String()
}
