package logging

import (
	"regexp"
	"strings"
)

// Patterns for credential material that must never reach a log line or the
// terminal.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer|password)([=:\s]+)["']?[^\s"']+["']?`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
}

// MaskSecret masks a credential, keeping just enough to identify which one it
// is. Short values are masked entirely.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// Redact masks credential material embedded in free-form text, such as error
// messages that echo a request.
func Redact(s string) string {
	out := s
	out = sensitivePatterns[0].ReplaceAllString(out, "$1$2****")
	out = sensitivePatterns[1].ReplaceAllString(out, "sk-****")
	return out
}
