package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gosubtrans/gosubtrans/internal/project"
	"github.com/gosubtrans/gosubtrans/internal/settings"
	"github.com/gosubtrans/gosubtrans/internal/subtitle"
	"github.com/gosubtrans/gosubtrans/internal/translate"
	"github.com/gosubtrans/gosubtrans/internal/translate/provider"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate a subtitle or project file using AI",
	Long: `Translate an existing subtitle file (.srt, .vtt, .ass, .ssa) or a
previously saved .subtrans project, through the provider named by
--provider.

Supports SRT, WebVTT, and ASS/SSA formats; batching into scenes,
retry with backoff, and a rolling-context prompt window are all
handled by the translation pipeline.

Examples:
  gosubtrans translate movie.srt --provider openai -l french
  gosubtrans translate movie.srt --provider anthropic -l ja -o movie.ja.srt
  gosubtrans translate movie.subtrans --provider gemini -r`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerStr, _ := cmd.Flags().GetString("provider")
		return runTranslate(cmd, args, provider.Name(providerStr))
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().String("provider", "", "Translation provider (openai, openai-reasoning, anthropic, gemini, mistral, deepseek, bedrock, custom)")
	_ = translateCmd.MarkFlagRequired("provider")
}

// runTranslate implements the shared body of the generic translate
// command and every per-provider convenience command (spec.md §6 CLI
// surface, exit codes per ExitCode).
func runTranslate(cmd *cobra.Command, args []string, providerName provider.Name) error {
	ctx := context.Background()
	path := args[0]

	if _, err := os.Stat(path); err != nil {
		return newArgError("input file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt", ".vtt", ".ass", ".ssa", project.ProjectExtension:
	default:
		return newArgError("unsupported input format %q: use .srt, .vtt, .ass, .ssa, or .subtrans", ext)
	}

	apiKey, _ := cmd.Flags().GetString("apikey")
	model, _ := cmd.Flags().GetString("model")
	targetLanguage, _ := cmd.Flags().GetString("target_language")
	promptOverride, _ := cmd.Flags().GetString("prompt")
	preview, _ := cmd.Flags().GetBool("preview")
	instructionsFile, _ := cmd.Flags().GetString("instructions-file")
	projectMode, _ := cmd.Flags().GetString("project")
	outputPath, _ := cmd.Flags().GetString("output")
	configPath, _ := cmd.Flags().GetString("config")

	if apiKey == "" {
		apiKey = os.Getenv(provider.EnvVarFor(providerName))
	}
	if apiKey == "" && configPath != "" {
		defaults := settings.Settings{}
		if err := settings.LoadTOMLDefaults(configPath, defaults); err != nil {
			return newArgError("%v", err)
		}
		apiKey = defaults.GetStringOr("api_key", "")
	}
	if apiKey == "" && providerName != provider.NameCustom && term.IsTerminal(int(os.Stdin.Fd())) {
		apiKey = promptForAPIKey(providerName)
	}
	if apiKey == "" && providerName != provider.NameCustom {
		envVar := provider.EnvVarFor(providerName)
		if envVar == "" {
			envVar = "API_KEY"
		}
		return newArgError("API key is required: use -k/--apikey or set %s", envVar)
	}
	if targetLanguage == "" && ext != project.ProjectExtension {
		return newArgError("target language is required: use -l/--target_language")
	}

	instructions := ""
	if instructionsFile != "" {
		data, err := os.ReadFile(instructionsFile)
		if err != nil {
			return newArgError("failed to read instructions file %q: %v", instructionsFile, err)
		}
		instructions = string(data)
	}

	p := project.New(logger)
	p.Persistent = projectMode == "persistent" || projectMode == "write"
	reload := projectMode == "read"

	if targetLanguage != "" {
		p.Subtitles.Settings["target_language"] = targetLanguage
	}
	if err := p.InitialiseProject(path, outputPath, reload); err != nil {
		return err
	}

	updates := settings.Settings{}
	if targetLanguage != "" {
		updates["target_language"] = targetLanguage
	}
	if model != "" {
		updates["model"] = model
	}
	if apiKey != "" {
		updates["api_key"] = apiKey
	}
	if promptOverride != "" {
		updates["prompt"] = promptOverride
	}
	if instructions != "" {
		updates["instructions"] = instructions
	}
	p.UpdateProjectSettings(updates)

	if configPath != "" {
		if err := settings.LoadTOMLDefaults(configPath, p.Subtitles.Settings); err != nil {
			return newArgError("%v", err)
		}
	}

	if len(p.Subtitles.Scenes) <= 1 {
		prepareBatches(p.Subtitles)
	}

	if preview {
		editor := subtitle.NewEditor(p.Subtitles).WithLogger(logger)
		err := editor.DuplicateOriginalsAsTranslations()
		editor.Close()
		if err != nil {
			return err
		}
		return p.SaveProject()
	}

	client, err := provider.New(ctx, providerName, p.Subtitles.Settings)
	if err != nil {
		return newArgError("%v", err)
	}
	if reasoningClient, ok := client.(*provider.OpenAIReasoningClient); ok {
		reasoningClient.Log = logger
	}

	translator := translate.NewTranslator(client, p.Subtitles.Settings, logger)
	if err := p.TranslateSubtitles(ctx, translator); err != nil {
		return err
	}

	if err := p.SaveProject(); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(p.Subtitles.OutputPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Lines: %d\n", len(p.Subtitles.Originals))
	fmt.Printf("  Target language: %s\n", p.Subtitles.Settings.GetStringOr("target_language", ""))
	return nil
}

// promptForAPIKey reads a masked API key from the terminal when
// neither -k/--apikey nor the provider's environment variable supplied
// one, grounded on `luispater-gemini-srt-translator-go`'s
// getAPIKeyFromInput.
func promptForAPIKey(providerName provider.Name) string {
	fmt.Printf("Enter API key for %s: ", providerName)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bytePassword))
}

// prepareBatches runs the preprocessing+auto-batch pass for a freshly
// loaded (single-batch) subtitle, using scene/batch thresholds from
// settings (spec.md §4.2/§4.3).
func prepareBatches(subs *subtitle.Subtitles) {
	s := subs.Settings
	editor := subtitle.NewEditor(subs).WithLogger(logger)
	defer editor.Close()

	processor := &subtitle.Processor{
		MaxLineDuration:   s.GetDurationOr("max_line_duration", 0),
		MaxLineLength:     s.GetIntOr("max_characters", 0),
		ConvertWhitespace: true,
	}
	editor.PreProcess(processor)

	batcher := subtitle.NewBatcher(
		s.GetDurationOr("scene_threshold", 0),
		s.GetIntOr("min_batch_size", 0),
		s.GetIntOr("max_batch_size", 0),
		s.GetBoolOr("prevent_overlap", true),
	)
	editor.AutoBatch(batcher)
}
