package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// SRTHandler implements the standard SubRip format (spec.md §4.4, §6).
type SRTHandler struct{}

func NewSRTHandler() *SRTHandler { return &SRTHandler{} }

func (h *SRTHandler) Extension() string { return ".srt" }
func (h *SRTHandler) Priority() int     { return 10 }

var srtTimestampRe = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`,
)

func (h *SRTHandler) Sniff(text string) bool {
	trimmed := strings.TrimPrefix(text, "\xef\xbb\xbf")
	lines := strings.SplitN(trimmed, "\n", 4)
	for _, l := range lines {
		if srtTimestampRe.MatchString(l) {
			return true
		}
	}
	return false
}

func (h *SRTHandler) ParseString(text string) (*SubtitleData, error) {
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	blocks := splitBlocks(text)

	seen := make(map[int]bool)
	var lines []ParsedLine

	for _, block := range blocks {
		block = strings.TrimRight(block, "\r\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		rows := strings.Split(block, "\n")
		if len(rows) < 2 {
			continue
		}

		idx := 0
		number, err := strconv.Atoi(strings.TrimSpace(rows[0]))
		if err != nil {
			return nil, suberrors.NewSubtitleParseError("SRT block missing index", err)
		}
		idx++

		m := srtTimestampRe.FindStringSubmatch(rows[idx])
		if m == nil {
			return nil, suberrors.NewSubtitleParseError("SRT block missing timestamp", nil)
		}
		start, err := parseSRTTimestamp(m[1], m[2], m[3], m[4])
		if err != nil {
			return nil, suberrors.NewSubtitleParseError("invalid SRT start timestamp", err)
		}
		end, err := parseSRTTimestamp(m[5], m[6], m[7], m[8])
		if err != nil {
			return nil, suberrors.NewSubtitleParseError("invalid SRT end timestamp", err)
		}
		idx++

		text := strings.Join(rows[idx:], "\n")

		if seen[number] {
			return nil, suberrors.NewSubtitleParseError(
				fmt.Sprintf("duplicate SRT line number %d", number), nil)
		}
		seen[number] = true

		lines = append(lines, ParsedLine{Number: number, Start: start, End: end, Text: text})
	}

	return &SubtitleData{Lines: lines, Metadata: map[string]any{}, DetectedFormat: ".srt"}, nil
}

func (h *SRTHandler) LoadFile(path string) (*SubtitleData, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.ParseString(text)
}

// Compose reindexes lines sequentially from 1 unless metadata
// "no_reindex" is set (spec.md §4.4/§6).
func (h *SRTHandler) Compose(data *SubtitleData) (string, error) {
	reindex := true
	if data.Metadata != nil {
		if v, ok := data.Metadata["no_reindex"].(bool); ok && v {
			reindex = false
		}
	}

	var sb strings.Builder
	for i, l := range data.Lines {
		number := l.Number
		if reindex {
			number = i + 1
		}
		fmt.Fprintf(&sb, "%d\n", number)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTime(l.Start), formatSRTTime(l.End))
		sb.WriteString(l.Text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func splitBlocks(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return regexp.MustCompile(`\n\s*\n`).Split(normalized, -1)
}

func parseSRTTimestamp(hh, mm, ss, ms string) (time.Duration, error) {
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

func formatSRTTime(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	ms := int(d/time.Millisecond) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
