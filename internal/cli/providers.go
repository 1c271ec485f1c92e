package cli

import (
	"github.com/spf13/cobra"

	"github.com/gosubtrans/gosubtrans/internal/translate/provider"
)

// Per-provider convenience commands, one per
// original_source/scripts/*-subtrans.py: each pins --provider and
// documents which environment variable supplies the API key/model
// default, but otherwise shares runTranslate with the generic
// `translate` command.
func init() {
	registerProviderCommand("gpt-subtrans", "Translate subtitles using an OpenAI chat model", provider.NameOpenAI)
	registerProviderCommand("gpt-reasoning-subtrans", "Translate subtitles using an OpenAI reasoning model", provider.NameOpenAIReasoning)
	registerProviderCommand("claude-subtrans", "Translate subtitles using an Anthropic Claude model", provider.NameAnthropic)
	registerProviderCommand("gemini-subtrans", "Translate subtitles using a Google Gemini model", provider.NameGemini)
	registerProviderCommand("mistral-subtrans", "Translate subtitles using a Mistral model", provider.NameMistral)
	registerProviderCommand("deepseek-subtrans", "Translate subtitles using a DeepSeek model", provider.NameDeepSeek)
	registerProviderCommand("bedrock-subtrans", "Translate subtitles using an Anthropic model on AWS Bedrock", provider.NameBedrock)
}

func registerProviderCommand(use, short string, name provider.Name) {
	cmd := &cobra.Command{
		Use:   use + " [subtitle_file]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, name)
		},
	}
	rootCmd.AddCommand(cmd)
}
