package format

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncodingName / FallbackEncodingName mirror the DEFAULT_ENCODING /
// FALLBACK_ENCODING environment variables from spec.md §6.
const (
	DefaultEncodingName  = "utf-8"
	FallbackEncodingName = "iso-8859-1"
)

func encodingNameFromEnv(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// ReadFile attempts UTF-8 first, falling back to ISO-8859-1 on decode
// failure (spec.md §4.4 load_file contract), with both encodings
// overridable via DEFAULT_ENCODING / FALLBACK_ENCODING.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	primary := encodingNameFromEnv("DEFAULT_ENCODING", DefaultEncodingName)
	if decoded, ok := tryDecode(raw, primary); ok {
		return decoded, nil
	}

	fallback := encodingNameFromEnv("FALLBACK_ENCODING", FallbackEncodingName)
	if decoded, ok := tryDecode(raw, fallback); ok {
		return decoded, nil
	}

	// Last resort: treat as raw bytes, replacing invalid sequences.
	return string(raw), nil
}

func tryDecode(raw []byte, name string) (string, bool) {
	switch name {
	case "utf-8", "utf8", "UTF-8":
		if !utf8.Valid(raw) {
			return "", false
		}
		dec := unicode.UTF8.NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	case "iso-8859-1", "ISO-8859-1", "latin1", "latin-1":
		dec := charmap.ISO8859_1.NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	default:
		return "", false
	}
}

// WriteFile writes UTF-8 text, creating parent directories as needed.
func WriteFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
