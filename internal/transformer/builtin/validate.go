package builtin

import (
	"strings"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
)

// Unmatched decides what happens to a value that no rule or lookup entry
// recognises.
type Unmatched string

const (
	// Fail aborts the run with a TransformationError.
	Fail Unmatched = "fail"
	// Blank replaces the value with "".
	Blank Unmatched = "blank"
	// Passthrough keeps the original value.
	Passthrough Unmatched = "passthrough"
)

// enumOption reads a literal that must be one of accepted.
func enumOption(n config.Node, key string, mandatory bool, accepted ...string) (string, bool, error) {
	c, ok, err := n.Literal(key, mandatory)
	if err != nil || !ok {
		return "", ok, err
	}
	v := c.Text()
	for _, a := range accepted {
		if v == a {
			return v, true, nil
		}
	}
	return "", false, errs.Configf(`Invalid value for key "%s": "%s". Accepted values are: "%s". (File "%s")`,
		c.Path, v, strings.Join(accepted, `", "`), c.File)
}

// unmatchedOption reads the mandatory on_unmatched policy.
func unmatchedOption(n config.Node) (Unmatched, error) {
	v, _, err := enumOption(n, KeyOnUnmatched, true, string(Fail), string(Blank), string(Passthrough))
	return Unmatched(v), err
}

// resolve applies the policy to value. fail is called only for Fail.
func (u Unmatched) resolve(value string, fail func() error) (string, error) {
	switch u {
	case Blank:
		return "", nil
	case Passthrough:
		return value, nil
	}
	return "", fail()
}
