package util

import "unicode/utf8"

// TruncateString returns s cut to at most max runes, with "..." appended
// when anything was removed. Used to build safe previews of oversized
// payload strings for warning messages.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
