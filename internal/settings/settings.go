// Package settings implements the tagged-union settings map described
// in spec.md §3 and §9: a dynamic key/value store with typed getters
// that coerce where unambiguous and raise SettingsError otherwise.
package settings

import (
	"strconv"
	"time"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// Settings is a project's mutable, per-project option map. Nested maps
// are returned by reference so edits through a getter propagate back.
type Settings map[string]any

// New builds an empty settings map, pre-populated with the documented
// defaults (spec.md §3: target_language, movie_name, names,
// substitutions, description, prompt, instructions, retry_instructions,
// include_original, add_right_to_left_markers, substitution_mode, ...).
func New() Settings {
	return Settings{
		"target_language":              "",
		"movie_name":                   "",
		"names":                        []string{},
		"substitutions":                map[string]string{},
		"description":                  "",
		"prompt":                       "",
		"instructions":                 "",
		"retry_instructions":           "",
		"include_original":             false,
		"add_right_to_left_markers":    false,
		"substitution_mode":            "partial_words",
		"scene_threshold":              30 * time.Second,
		"min_batch_size":               4,
		"max_batch_size":               30,
		"prevent_overlap":              true,
		"max_line_duration":            7 * time.Second,
		"max_newlines":                 2,
		"max_characters":               120,
		"max_context_summaries":        10,
		"stop_on_error":                false,
		"max_retries":                  3,
		"backoff_time":                 5 * time.Second,
	}
}

// Merge copies every key from other into s, overwriting existing keys.
func (s Settings) Merge(other Settings) {
	for k, v := range other {
		s[k] = v
	}
}

// Clone returns a shallow copy; nested maps/slices are shared by
// reference like the Python original's dict semantics.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GetString returns a string value; a missing key or nil yields "", and
// any non-string value is a SettingsError (no coercion is attempted).
func (s Settings) GetString(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case nil:
		return "", nil
	default:
		return "", suberrors.NewSettingsError("value for " + key + " is not a string")
	}
}

// GetStringOr is GetString with a fallback on error/absence.
func (s Settings) GetStringOr(key, fallback string) string {
	v, err := s.GetString(key)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

// GetInt coerces int/float64/string to int.
func (s Settings) GetInt(key string) (int, error) {
	v, ok := s[key]
	if !ok {
		return 0, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, suberrors.NewSettingsError("value for " + key + " is not an int")
		}
		return n, nil
	default:
		return 0, suberrors.NewSettingsError("value for " + key + " is not an int")
	}
}

// GetIntOr is GetInt with a fallback on error.
func (s Settings) GetIntOr(key string, fallback int) int {
	n, err := s.GetInt(key)
	if err != nil {
		return fallback
	}
	if n == 0 {
		if _, ok := s[key]; !ok {
			return fallback
		}
	}
	return n
}

// GetFloat coerces int/float64/string to float64.
func (s Settings) GetFloat(key string) (float64, error) {
	v, ok := s[key]
	if !ok {
		return 0, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, suberrors.NewSettingsError("value for " + key + " is not a float")
		}
		return f, nil
	default:
		return 0, suberrors.NewSettingsError("value for " + key + " is not a float")
	}
}

// GetBool coerces bool/string("true"/"false") to bool.
func (s Settings) GetBool(key string) (bool, error) {
	v, ok := s[key]
	if !ok {
		return false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, suberrors.NewSettingsError("value for " + key + " is not a bool")
		}
		return b, nil
	default:
		return false, suberrors.NewSettingsError("value for " + key + " is not a bool")
	}
}

// GetBoolOr is GetBool with a fallback on error.
func (s Settings) GetBoolOr(key string, fallback bool) bool {
	b, err := s.GetBool(key)
	if err != nil {
		return fallback
	}
	if _, ok := s[key]; !ok {
		return fallback
	}
	return b
}

// GetFloatOr is GetFloat with a fallback on error.
func (s Settings) GetFloatOr(key string, fallback float64) float64 {
	f, err := s.GetFloat(key)
	if err != nil {
		return fallback
	}
	if _, ok := s[key]; !ok {
		return fallback
	}
	return f
}

// GetStringList coerces []string or []any (of strings) to []string.
func (s Settings) GetStringList(key string) ([]string, error) {
	v, ok := s[key]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return nil, suberrors.NewSettingsError("value for " + key + " is not a list of strings")
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, suberrors.NewSettingsError("value for " + key + " is not a list")
	}
}

// GetMap returns a nested map by reference so mutations propagate.
func (s Settings) GetMap(key string) (map[string]string, error) {
	v, ok := s[key]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]string)
	if !ok {
		return nil, suberrors.NewSettingsError("value for " + key + " is not a map")
	}
	return m, nil
}

// GetDuration coerces time.Duration, a number of seconds, or a
// parseable duration string ("30s") to time.Duration.
func (s Settings) GetDuration(key string) (time.Duration, error) {
	v, ok := s[key]
	if !ok {
		return 0, nil
	}
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case int:
		return time.Duration(t) * time.Second, nil
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			secs, err2 := strconv.ParseFloat(t, 64)
			if err2 != nil {
				return 0, suberrors.NewSettingsError("value for " + key + " is not a duration")
			}
			return time.Duration(secs * float64(time.Second)), nil
		}
		return d, nil
	default:
		return 0, suberrors.NewSettingsError("value for " + key + " is not a duration")
	}
}

// GetDurationOr is GetDuration with a fallback on error/absence.
func (s Settings) GetDurationOr(key string, fallback time.Duration) time.Duration {
	d, err := s.GetDuration(key)
	if err != nil {
		return fallback
	}
	if _, ok := s[key]; !ok {
		return fallback
	}
	return d
}
