package builtin

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// number is an operand of arithmetic: an exact integer or a float.
type number struct {
	i *big.Int // nil for floats
	f float64
}

var (
	intSyntax   = regexp.MustCompile(`^[+-]?\d+(?:_\d+)*$`)
	floatSyntax = regexp.MustCompile(`(?i)^[+-]?(?:(?:\d+(?:_\d+)*)?\.?\d+(?:_\d+)*(?:e[+-]?\d+(?:_\d+)*)?|\d+(?:_\d+)*\.(?:e[+-]?\d+)?|inf(?:inity)?|nan)$`)
)

// parseNumber accepts decimal integers (any size) and decimal floats,
// including inf and nan. Digit groups may be separated by underscores.
func parseNumber(s string) (number, bool) {
	s = strings.TrimSpace(s)
	if intSyntax.MatchString(s) {
		i, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 10)
		if ok {
			return number{i: i}, true
		}
	}
	if floatSyntax.MatchString(s) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err == nil || isRange(err) {
			return number{f: f}, true
		}
	}
	return number{}, false
}

func isRange(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func (n number) isInt() bool { return n.i != nil }

func (n number) isZero() bool {
	if n.isInt() {
		return n.i.Sign() == 0
	}
	return n.f == 0
}

func (n number) float() float64 {
	if !n.isInt() {
		return n.f
	}
	f, _ := new(big.Float).SetInt(n.i).Float64()
	return f
}

// String renders integers exactly and floats as the shortest decimal that
// round-trips, always with a fractional part or an exponent.
func (n number) String() string {
	if n.isInt() {
		return n.i.String()
	}
	return formatFloat(n.f)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
