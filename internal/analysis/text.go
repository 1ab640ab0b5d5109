package analysis

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Normalization regexes compiled once at package init.
var (
	reURL        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	reEmail      = regexp.MustCompile(`(?i)\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	rePhone      = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	reNumber     = regexp.MustCompile(`\d+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

const maxNormalizedBytes = 500

// NormalizeText reduces a review to a canonical form so that copy-pasted
// reviews differing only in links, contact details, numbers, case or spacing
// compare equal.
func NormalizeText(text string) string {
	text = reURL.ReplaceAllString(text, "URL")
	text = reEmail.ReplaceAllString(text, "EMAIL")
	text = rePhone.ReplaceAllString(text, "PHONE")
	text = reNumber.ReplaceAllString(text, "N")
	text = reWhitespace.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	text = strings.TrimSpace(text)
	return Truncate(text, maxNormalizedBytes)
}

// Fingerprint computes a stable SHA-256 fingerprint of the normalized text.
func Fingerprint(text string) string {
	return Hash(NormalizeText(text))
}

// Hash returns the lowercase hex SHA-256 of s without normalization.
func Hash(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// IsBlank reports whether text is empty after trimming whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// HasContactDetails reports whether text carries a URL, e-mail address or phone number.
func HasContactDetails(text string) bool {
	return reURL.MatchString(text) || reEmail.MatchString(text) || rePhone.MatchString(text)
}

// Truncate truncates s to maxBytes without splitting UTF-8 runes.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
