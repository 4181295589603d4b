package logger

import (
	"strings"
	"testing"
)

func TestContentPreview_RedactsPII(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"email", "mail me at alice@example.com please", "mail me at [EMAIL] please"},
		{"phone", "call 555-123-4567 now", "call [PHONE] now"},
		{"card", "pay with 4111 1111 1111 1111", "pay with [CARD]"},
		{"ipv4", "host is 10.0.0.1", "host is [IP]"},
		{"whitespace", "  trimmed  ", "trimmed"},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContentPreview(tc.input); got != tc.want {
				t.Errorf("ContentPreview(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestContentPreview_TruncatesLongContent(t *testing.T) {
	got := ContentPreview(strings.Repeat("a", 200))
	if len([]rune(got)) != previewLength+3 {
		t.Errorf("preview length = %d, want %d plus ellipsis", len([]rune(got)), previewLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview = %q, want ellipsis suffix", got)
	}
}
