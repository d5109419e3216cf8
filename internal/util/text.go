package util

import "strings"

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, which text and
// jsonb columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

func SanitizePostgresTexts(values []string) []string {
	if values == nil {
		return nil
	}
	sanitized := make([]string, len(values))
	for i, v := range values {
		sanitized[i] = SanitizePostgresText(v)
	}
	return sanitized
}
