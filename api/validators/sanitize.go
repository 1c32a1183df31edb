package validators

import (
	"strings"
	"unicode"
)

// SanitizeString normalizes a single-line field such as a client or seller
// name: control characters are dropped, whitespace runs collapse to one space
// and the result is cut to maxLen characters (not bytes).
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return truncateRunes(b.String(), maxLen)
}

// SanitizeText is SanitizeString for free text like invoice notes: line
// breaks survive, trailing spaces on each line do not.
func SanitizeText(input string, maxLen int) string {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = SanitizeString(line, 0)
	}
	return truncateRunes(strings.TrimSpace(strings.Join(lines, "\n")), maxLen)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
