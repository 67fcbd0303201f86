package textutil

import (
	"regexp"
	"strings"
)

// Sentinel stands in for any field a page failed to yield.
const Sentinel = "?"

var whitespaceRegex = regexp.MustCompile(`\s+`)
var digitsRegex = regexp.MustCompile(`\d+`)

// NormalizeSpace collapses all whitespace runs (including newlines, tabs and
// non-breaking spaces) into single spaces and trims the ends.
func NormalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}

// Digits returns the first run of numeric characters in s,
// or the sentinel when there is none.
func Digits(s string) string {
	match := digitsRegex.FindString(s)
	if match == "" {
		return Sentinel
	}
	return match
}

// StripThousands removes thousands separators from a numeric capture.
func StripThousands(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// SplitList splits a comma separated page value into an ordered,
// trimmed list.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
