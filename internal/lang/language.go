// Package lang resolves the language used for user-facing messages.
// The backend only knows two preferred languages, French and English,
// so everything else falls back to Default.
package lang

import (
	"fmt"
	"strings"
)

// Supported language codes.
const (
	English = "en"
	French  = "fr"

	// Default is used when no language is configured.
	Default = English
)

// supported mirrors the backend's preferred_language pattern ^(fr|en)$.
var supported = map[string]bool{
	English: true,
	French:  true,
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "fr-CA", "fr_CA", "FR-CA", "fr-ca" -> "fr-ca"
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// BaseCode extracts the ISO 639-1 base language code from a locale.
// Examples: "fr-CA" -> "fr", "en-GB" -> "en", "en" -> "en"
func BaseCode(lang string) string {
	if lang == "" {
		return ""
	}
	normalized := Normalize(lang)
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// Validate checks that the language is one of the supported UI languages.
// Regional variants are accepted ("fr-CA" is French).
// An empty string is valid and means Default.
func Validate(lang string) error {
	if lang == "" {
		return nil
	}
	if !supported[BaseCode(lang)] {
		return fmt.Errorf("unsupported language %q (use %q or %q): %w",
			lang, English, French, ErrInvalid)
	}
	return nil
}

// Resolve returns the supported base code for lang, or Default when lang
// is empty or unsupported.
func Resolve(lang string) string {
	base := BaseCode(lang)
	if supported[base] {
		return base
	}
	return Default
}

// DisplayName returns a human-readable name for the supported locales.
// Falls back to the code itself for unknown locales.
func DisplayName(lang string) string {
	normalized := Normalize(lang)

	displayNames := map[string]string{
		"en":    "English",
		"en-us": "American English",
		"en-gb": "British English",
		"fr":    "French",
		"fr-ca": "Canadian French",
		"fr-fr": "French",
	}

	if name, ok := displayNames[normalized]; ok {
		return name
	}
	if name, ok := displayNames[BaseCode(normalized)]; ok {
		return name
	}
	return lang
}
