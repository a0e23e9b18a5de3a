// Package strptime parses date strings against C-locale strptime(3) style
// format strings.
//
// Go's time.Parse works on reference layouts; pipeline files carry %-style
// formats, and the accepted values are the ones a C/POSIX strptime accepts:
//
//   - matching is case-insensitive and anchored at both ends;
//   - a run of whitespace in the format matches one or more whitespace
//     characters in the value;
//   - numeric directives accept unpadded values (%d matches "7" and "07");
//   - fields the format does not mention default to 1900-01-01 00:00:00;
//   - an impossible calendar date (Feb 30, second 61) is a parse failure,
//     never a silent normalisation.
//
// Supported directives: %a %A %b %B %d %f %H %I %j %m %M %p %S %y %Y %z %Z
// %%. Anything else is rejected by Compile so a bad format surfaces when the
// pipeline is built rather than on the first row.
package strptime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrNoMatch is returned by Parse when the value does not fit the layout.
var ErrNoMatch = errors.New("strptime: value does not match format")

var (
	weekdays      = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	weekdaysShort = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	months        = []string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"}
	monthsShort   = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
)

// directives maps each supported directive to the pattern of its value. The
// patterns contain no capturing groups of their own.
var directives = map[byte]string{
	'a': alternation(weekdaysShort),
	'A': alternation(weekdays),
	'b': alternation(monthsShort),
	'B': alternation(months),
	'd': `3[01]|[12]\d|0[1-9]|[1-9]| [1-9]`,
	'f': `[0-9]{1,6}`,
	'H': `2[0-3]|[01]\d|\d`,
	'I': `1[0-2]|0[1-9]|[1-9]`,
	'j': `36[0-6]|3[0-5]\d|[12]\d\d|0[1-9]\d|00[1-9]|[1-9]\d|0[1-9]|[1-9]`,
	'm': `1[0-2]|0[1-9]|[1-9]`,
	'M': `[0-5]\d|\d`,
	'p': `am|pm`,
	'S': `6[01]|[0-5]\d|\d`,
	'y': `\d\d`,
	'Y': `\d\d\d\d`,
	'z': `[+-]\d\d:?[0-5]\d(?::?[0-5]\d(?:\.\d{1,6})?)?|(?-i:Z)`,
	'Z': `utc|gmt`,
}

// alternation joins names longest first so a full name wins over its prefix.
func alternation(names []string) string {
	sorted := append([]string(nil), names...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(sorted[j]) > len(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return strings.Join(sorted, "|")
}

// Layout is a compiled format. It is immutable and safe for concurrent use.
type Layout struct {
	format string
	re     *regexp.Regexp
	// fields[i] is the directive captured by group i+1.
	fields []byte
}

// Compile translates format into a Layout.
func Compile(format string) (*Layout, error) {
	var (
		b      strings.Builder
		fields []byte
		seen   = map[byte]bool{}
	)
	b.WriteString(`(?i)^`)
	for i := 0; i < len(format); {
		c := format[i]
		switch {
		case c == '%':
			if i+1 >= len(format) {
				return nil, fmt.Errorf("strptime: stray %% at end of format %q", format)
			}
			d := format[i+1]
			i += 2
			if d == '%' {
				b.WriteString(`%`)
				continue
			}
			pat, ok := directives[d]
			if !ok {
				return nil, fmt.Errorf("strptime: unsupported directive %%%c in format %q", d, format)
			}
			if seen[d] {
				return nil, fmt.Errorf("strptime: directive %%%c repeated in format %q", d, format)
			}
			seen[d] = true
			fields = append(fields, d)
			b.WriteString("(" + pat + ")")
		case isSpace(c):
			for i < len(format) && isSpace(format[i]) {
				i++
			}
			b.WriteString(`\s+`)
		default:
			j := i + 1
			for j < len(format) && format[j] != '%' && !isSpace(format[j]) {
				j++
			}
			b.WriteString(regexp.QuoteMeta(format[i:j]))
			i = j
		}
	}
	b.WriteString(`$`)
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("strptime: compile %q: %w", format, err)
	}
	return &Layout{format: format, re: re, fields: fields}, nil
}

func isSpace(c byte) bool { return c < 0x80 && unicode.IsSpace(rune(c)) }

// String returns the source format.
func (l *Layout) String() string { return l.format }

// Parse interprets value. Times without an explicit offset are wall-clock
// times in loc; times with a %z offset are converted to loc.
func (l *Layout) Parse(value string, loc *time.Location) (time.Time, error) {
	m := l.re.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, ErrNoMatch
	}

	var (
		year, month, day  = 1900, 1, 1
		hour, minute, sec int
		micro             int
		julian            = -1
		hour12            = -1
		pm                bool
		offset            *int
	)
	for i, d := range l.fields {
		s := m[i+1]
		switch d {
		case 'y':
			year = atoi(s)
			if year <= 68 {
				year += 2000
			} else {
				year += 1900
			}
		case 'Y':
			year = atoi(s)
		case 'm':
			month = atoi(s)
		case 'b':
			month = index(monthsShort, s) + 1
		case 'B':
			month = index(months, s) + 1
		case 'd':
			day = atoi(strings.TrimSpace(s))
		case 'H':
			hour = atoi(s)
		case 'I':
			hour12 = atoi(s)
		case 'p':
			pm = strings.EqualFold(s, "pm")
		case 'M':
			minute = atoi(s)
		case 'S':
			sec = atoi(s)
		case 'f':
			micro = atoi(s + strings.Repeat("0", 6-len(s)))
		case 'j':
			julian = atoi(s)
		case 'z':
			off, err := parseOffset(s)
			if err != nil {
				return time.Time{}, err
			}
			offset = &off
		}
	}
	if hour12 >= 0 {
		hour = hour12 % 12
		if pm {
			hour += 12
		}
	}
	if year < 1 || sec > 59 {
		return time.Time{}, ErrNoMatch
	}

	zone := loc
	if offset != nil {
		zone = time.FixedZone("", *offset)
	}
	var t time.Time
	if julian >= 0 {
		t = time.Date(year, 1, 1, hour, minute, sec, micro*1000, zone).AddDate(0, 0, julian-1)
	} else {
		t = time.Date(year, time.Month(month), day, hour, minute, sec, micro*1000, zone)
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, ErrNoMatch
		}
	}
	if offset != nil {
		t = t.In(loc)
	}
	return t, nil
}

// parseOffset reads ±hh[:]mm[[:]ss[.ffffff]] or Z into seconds east of UTC.
func parseOffset(s string) (int, error) {
	if s == "Z" {
		return 0, nil
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := s[1:]
	if len(body) > 2 && body[2] == ':' {
		body = body[:2] + body[3:]
		if len(body) > 4 {
			if body[4] != ':' {
				return 0, fmt.Errorf("strptime: inconsistent use of : in %q", s)
			}
			body = body[:4] + body[5:]
		}
	} else if strings.Contains(body, ":") {
		return 0, fmt.Errorf("strptime: inconsistent use of : in %q", s)
	}
	secs := atoi(body[0:2])*3600 + atoi(body[2:4])*60
	if len(body) >= 6 {
		secs += atoi(body[4:6])
	}
	return sign * secs, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func index(names []string, s string) int {
	s = strings.ToLower(s)
	for i, n := range names {
		if n == s {
			return i
		}
	}
	return -1
}
