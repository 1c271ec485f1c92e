package cli

import (
	"github.com/gosubtrans/gosubtrans/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "gosubtrans",
	Short:         "AI-powered subtitle translator",
	SilenceErrors: true,
	SilenceUsage:  true,
	Long: `gosubtrans translates subtitle files (SRT, WebVTT, ASS/SSA) through a
configurable LLM provider, preserving timing and formatting.

It batches lines into scenes, sends them through a translation
provider with retry/backoff, and writes either a translated subtitle
file or a persisted .subtrans project for incremental work.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

// Execute runs the root command. main translates the returned error
// into spec.md §6's exit-code contract.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVar(&verbose, "debug", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("target_language", "l", "", "Target language (e.g., en, es, fr)")
	rootCmd.PersistentFlags().StringP("apikey", "k", "", "Provider API key")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model name (provider-specific default if omitted)")
	rootCmd.PersistentFlags().StringP("prompt", "p", "", "Custom system prompt override")
	rootCmd.PersistentFlags().BoolP("preview", "r", false, "Preview mode: copy originals into translated lines instead of calling the provider")
	rootCmd.PersistentFlags().String("instructions-file", "", "Path to a file of additional translation instructions")
	rootCmd.PersistentFlags().String("project", "", "Project file mode: persistent, read, or write")
	rootCmd.PersistentFlags().String("config", "", "Optional TOML config file supplying provider/model/api-key defaults")
}
