package platform

import (
	"regexp"
	"strings"
)

var urlShapes = []*regexp.Regexp{
	regexp.MustCompile(`https?://[^\s]+`),
	regexp.MustCompile(`www\.[^\s]+`),
	regexp.MustCompile(`[^\s]+\.[a-zA-Z]{2,}[^\s]*`),
}

// LooksLikeURL reports whether text contains something URL-shaped: a
// scheme URL, a bare www. host or a loose domain.tld, tried in that order.
func LooksLikeURL(text string) bool {
	return ExtractURL(text) != ""
}

// ExtractURL returns the first URL-shaped token in text, or "".
func ExtractURL(text string) string {
	for _, re := range urlShapes {
		if m := re.FindString(text); m != "" {
			return strings.TrimRight(m, ".,;:!?)\"'")
		}
	}
	return ""
}
