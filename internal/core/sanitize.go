package core

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength bounds message text in runes after sanitizing.
const DefaultMaxMessageLength = 500

var tagPattern = regexp.MustCompile(`<.*?>`)

// SanitizeText trims text, strips HTML tags and escapes what remains.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	stripped := strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
	return html.EscapeString(stripped)
}

// cleanText sanitizes text and enforces the length limit. limit <= 0
// disables the check.
func cleanText(text string, limit int) (string, error) {
	clean := SanitizeText(text)
	if clean == "" {
		return "", ErrEmptyMessage
	}
	if limit > 0 && utf8.RuneCountInString(clean) > limit {
		return "", ErrMessageTooLong
	}
	return clean, nil
}
