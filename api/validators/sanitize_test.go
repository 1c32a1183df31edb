package validators

import (
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "trims and collapses", input: "  Acme \t  Studio\n", max: 0, want: "Acme Studio"},
		{name: "drops control chars", input: "Acme\x00\x1b Labs", max: 0, want: "Acme Labs"},
		{name: "counts characters", input: "मराठी डिज़ाइन", max: 5, want: "मराठी"},
		{name: "no trailing space after cut", input: "ab cd", max: 3, want: "ab"},
		{name: "empty", input: "   ", max: 10, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input, tc.max); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.want)
			}
		})
	}
}

func TestSanitizeTextKeepsLineBreaks(t *testing.T) {
	got := SanitizeText("Bank: HDFC   \r\nIFSC:\tHDFC0001\n\n", 0)
	if got != "Bank: HDFC\nIFSC: HDFC0001" {
		t.Fatalf("unexpected text %q", got)
	}
	long := SanitizeText(strings.Repeat("न", 10), 4)
	if long != "नननन" {
		t.Fatalf("expected rune cut, got %q", long)
	}
}
