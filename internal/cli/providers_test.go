package cli

import "testing"

func TestProviderConvenienceCommandsAreRegistered(t *testing.T) {
	for _, use := range []string{
		"gpt-subtrans", "gpt-reasoning-subtrans", "claude-subtrans",
		"gemini-subtrans", "mistral-subtrans", "deepseek-subtrans", "bedrock-subtrans",
	} {
		cmd, _, err := rootCmd.Find([]string{use, "movie.srt"})
		if err != nil {
			t.Fatalf("Find(%s) returned error: %v", use, err)
		}
		if cmd == nil || cmd.Use != use+" [subtitle_file]" {
			t.Errorf("expected to find registered command %q, got %+v", use, cmd)
		}
	}
}
