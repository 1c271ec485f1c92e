package settings

import (
	"github.com/BurntSushi/toml"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// tomlDefaults is the subset of Settings a config file may populate,
// grounded on `21d5-SRTran`'s internal/config.Config: a flat table of
// provider/model/api-key defaults read once at startup, overridden by
// CLI flags and environment variables.
type tomlDefaults struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TargetLanguage string `toml:"target_language"`
}

// LoadTOMLDefaults reads a TOML config file and merges non-empty
// fields into s, without overwriting keys s already carries — CLI
// flags and project-file settings always win over config-file
// defaults.
func LoadTOMLDefaults(path string, s Settings) error {
	var cfg tomlDefaults
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return suberrors.NewSettingsError("failed to decode config file: " + err.Error())
	}

	setIfAbsent(s, "provider", cfg.Provider)
	setIfAbsent(s, "model", cfg.Model)
	setIfAbsent(s, "api_key", cfg.APIKey)
	setIfAbsent(s, "base_url", cfg.BaseURL)
	setIfAbsent(s, "target_language", cfg.TargetLanguage)
	return nil
}

func setIfAbsent(s Settings, key, value string) {
	if value == "" {
		return
	}
	if existing, _ := s.GetString(key); existing != "" {
		return
	}
	s[key] = value
}
