package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
)

// Message is one conversation turn (spec.md §4.5).
type Message struct {
	Role    string
	Content string
}

// Prompt assembles the system/user prompt sent to a provider for one
// batch (spec.md §4.5).
type Prompt struct {
	UserPrompt   string
	SystemPrompt string
	Messages     []Message
	BatchPrompt  string
	Conversation bool
}

// segmentRe matches a `[...]` template segment that collapses entirely
// if any variable inside it is unresolved.
var segmentRe = regexp.MustCompile(`\[([^\[\]]*)\]`)
var variableRe = regexp.MustCompile(`\{(\w+)\}`)

// ExpandTemplate resolves `{var}` placeholders against vars, collapsing
// any `[segment]` that contains an unresolved variable (spec.md §4.5).
func ExpandTemplate(template string, vars map[string]string) string {
	expanded := segmentRe.ReplaceAllStringFunc(template, func(seg string) string {
		inner := seg[1 : len(seg)-1]
		ok := true
		resolved := variableRe.ReplaceAllStringFunc(inner, func(m string) string {
			name := m[1 : len(m)-1]
			v, found := vars[name]
			if !found || v == "" {
				ok = false
				return m
			}
			return v
		})
		if !ok {
			return ""
		}
		return resolved
	})

	expanded = variableRe.ReplaceAllStringFunc(expanded, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})

	return expanded
}

// PromptVars builds the variable substitution map from settings (plus
// any caller-supplied extras), covering the recognised names in
// spec.md §4.5.
func PromptVars(s settings.Settings, extra map[string]string) map[string]string {
	vars := map[string]string{
		"target_language": s.GetStringOr("target_language", ""),
		"movie_name":      s.GetStringOr("movie_name", ""),
		"description":     s.GetStringOr("description", ""),
	}
	if names, err := s.GetStringList("names"); err == nil && len(names) > 0 {
		vars["names"] = strings.Join(names, ", ")
	}
	if subs, err := s.GetMap("substitutions"); err == nil && len(subs) > 0 {
		var parts []string
		for k, v := range subs {
			parts = append(parts, fmt.Sprintf("%v -> %v", k, v))
		}
		vars["substitutions"] = strings.Join(parts, "; ")
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// BuildBatchBody renders the XML-tagged batch payload enumerating
// `<line n="K">text</line>` entries for every original line in the
// batch (spec.md §4.5).
func BuildBatchBody(lines []*subtitle.Line) string {
	var sb strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&sb, "<line n=\"%d\">%s</line>\n", l.Number, l.Text)
	}
	return sb.String()
}

// NewPrompt assembles a TranslationPrompt for a batch: rolling context
// summary + per-scene summary prepended to the XML batch body, either
// as a single non-conversational user turn or a multi-turn
// conversation depending on s.GetBool("supports_conversation")
// (spec.md §4.5). When the provider accepts a "developer" role
// (reasoning family), systemRole should be passed as "developer".
func NewPrompt(s settings.Settings, lines []*subtitle.Line, rollingContext, sceneSummary, systemRole string) *Prompt {
	vars := PromptVars(s, nil)

	userTemplate := s.GetStringOr("prompt", "Translate these subtitles[ to {target_language}].")
	systemPrompt := ExpandTemplate(s.GetStringOr("instructions", "You are a subtitle translator."), vars)

	var context strings.Builder
	if rollingContext != "" {
		context.WriteString(rollingContext)
		context.WriteString("\n")
	}
	if sceneSummary != "" {
		context.WriteString(sceneSummary)
		context.WriteString("\n")
	}

	batchBody := BuildBatchBody(lines)
	userPrompt := ExpandTemplate(userTemplate, vars)

	content := context.String() + userPrompt + "\n" + batchBody

	conversational := s.GetBoolOr("supports_conversation", false)

	p := &Prompt{
		UserPrompt:   userPrompt,
		SystemPrompt: systemPrompt,
		BatchPrompt:  batchBody,
		Conversation: conversational,
	}

	role := "system"
	if systemRole != "" {
		role = systemRole
	}

	if conversational {
		p.Messages = []Message{
			{Role: role, Content: systemPrompt},
			{Role: "user", Content: content},
		}
	} else {
		p.Messages = []Message{
			{Role: "user", Content: systemPrompt + "\n\n" + content},
		}
	}

	return p
}
