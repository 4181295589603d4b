package logger

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const previewLength = 80

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// ContentPreview returns a short, log-safe preview of user content. Emails,
// phone numbers, card numbers, and IP addresses are redacted before
// truncation so partial matches cannot leak through the cut.
func ContentPreview(content string) string {
	preview := strings.TrimSpace(content)
	if preview == "" {
		return ""
	}

	preview = emailPattern.ReplaceAllString(preview, "[EMAIL]")
	preview = cardPattern.ReplaceAllString(preview, "[CARD]")
	preview = phonePattern.ReplaceAllString(preview, "[PHONE]")
	preview = ipv4Pattern.ReplaceAllString(preview, "[IP]")

	if utf8.RuneCountInString(preview) > previewLength {
		runes := []rune(preview)
		preview = string(runes[:previewLength]) + "..."
	}
	return preview
}
