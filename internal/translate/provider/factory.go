package provider

import (
	"context"
	"fmt"

	"github.com/gosubtrans/gosubtrans/internal/settings"
)

// Name identifies a translation provider, mirroring the teacher's
// Provider string type but covering the full spec.md §4.6 roster.
type Name string

const (
	NameOpenAI          Name = "openai"
	NameOpenAIReasoning Name = "openai-reasoning"
	NameAnthropic       Name = "anthropic"
	NameGemini          Name = "gemini"
	NameMistral         Name = "mistral"
	NameDeepSeek        Name = "deepseek"
	NameBedrock         Name = "bedrock"
	NameCustom          Name = "custom"
)

// New builds the concrete Client for name from settings (spec.md
// §4.6's "unify behind a trait/interface" requirement, dispatch
// grounded on the teacher's translate.Factory).
func New(ctx context.Context, name Name, s settings.Settings) (Client, error) {
	switch name {
	case NameOpenAI:
		return NewOpenAIChatClient(s)
	case NameOpenAIReasoning:
		return NewOpenAIReasoningClient(s)
	case NameAnthropic:
		return NewAnthropicClient(s)
	case NameGemini:
		return NewGeminiClient(ctx, s)
	case NameMistral:
		return NewMistralClient(s)
	case NameDeepSeek:
		return NewDeepSeekClient(s)
	case NameBedrock:
		return NewBedrockClient(ctx, s)
	case NameCustom:
		return NewCustomClient(s), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", name)
	}
}

// EnvVarFor returns the API-key environment variable a per-provider
// convenience command reads when -k/--apikey is omitted (spec.md §6
// "Environment variables").
func EnvVarFor(name Name) string {
	switch name {
	case NameOpenAI, NameOpenAIReasoning:
		return "OPENAI_API_KEY"
	case NameAnthropic:
		return "CLAUDE_API_KEY"
	case NameGemini:
		return "GEMINI_API_KEY"
	case NameMistral:
		return "MISTRAL_API_KEY"
	case NameDeepSeek:
		return "DEEPSEEK_API_KEY"
	default:
		return ""
	}
}

// DefaultModelEnvVar returns the environment variable a provider reads
// for its default model name (spec.md §6).
func DefaultModelEnvVar(name Name) string {
	switch name {
	case NameOpenAI, NameOpenAIReasoning:
		return "OPENAI_MODEL"
	case NameAnthropic:
		return "CLAUDE_MODEL"
	case NameGemini:
		return "GEMINI_MODEL"
	case NameMistral:
		return "MISTRAL_MODEL"
	case NameDeepSeek:
		return "DEEPSEEK_MODEL"
	default:
		return ""
	}
}
