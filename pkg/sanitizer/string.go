package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims the ends and collapses inner whitespace runs to a
// single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeName is used for display names (spot names, renter first and last
// names).
func NormalizeName(name string) string {
	return Pipeline{dropControl, TrimAndNormalize}.Apply(name)
}

// NormalizeID cleans an opaque identifier taken from a header or path. IDs
// never contain whitespace, so anything after the first space is dropped.
func NormalizeID(id string) string {
	id = Pipeline{dropControl, strings.TrimSpace}.Apply(id)
	if i := strings.IndexFunc(id, unicode.IsSpace); i >= 0 {
		id = id[:i]
	}
	return id
}
