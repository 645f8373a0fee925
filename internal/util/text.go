package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText drops invalid UTF-8 sequences and NUL bytes so model output
// can be written into JSON artifacts without surprises.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// TruncateForLog shortens a string for log lines, keeping rune boundaries
// intact and appending an ellipsis when something was cut.
func TruncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}
