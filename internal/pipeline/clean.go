package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"dataunifier/internal/record"
)

// printable replaces every non-printable rune with a space.
func printable(r rune) rune {
	if unicode.IsPrint(r) {
		return r
	}
	return ' '
}

// CleanValue trims surrounding whitespace and blanks out non-printable
// characters. Everything else, including the Unicode normalisation form, is
// left as read.
func CleanValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	t := transform.Chain(runes.Map(printable))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(printable, s)
	}
	return out
}

// Clean applies CleanValue to every value of r, keeping field order.
func Clean(r record.Row) record.Row {
	b := record.Builder{}
	r.Each(func(k, v string) { b.Set(k, CleanValue(v)) })
	return b.Row()
}
