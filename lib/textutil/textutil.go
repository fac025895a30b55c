package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and strips all whitespace, it is used as a
// matching key rather than for display.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return whitespaceRegex.ReplaceAllString(name, "")
}

// NormalizeLabel uppercases and trims a scraped label, it is the identity
// of a course label.
func NormalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
