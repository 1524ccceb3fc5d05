package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Clean collapses runs of whitespace (including non-breaking spaces)
// into single spaces and trims the ends.
func Clean(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " \n\t")
}

// NormalizeLabel lowercases and whitespace-collapses a field label so it
// can be used as a lookup key.
func NormalizeLabel(label string) string {
	return strings.ToLower(Clean(label))
}

func MatchLabel(label string, matchers []string) bool {
	label = NormalizeLabel(label)
	for _, m := range matchers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}
