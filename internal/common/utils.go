package common

import (
	"strings"
	"unicode/utf8"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsJSONContentType reports whether a Content-Type header value describes JSON.
func IsJSONContentType(ct string) bool {
	return HasAny(strings.ToLower(ct), "application/json", "+json")
}

// MaskSecret keeps the first and last four characters of a secret.
// Secrets of eight characters or fewer are fully masked.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
