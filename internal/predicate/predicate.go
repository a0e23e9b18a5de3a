// Package predicate implements the "when" sub-language that gates task
// execution per row: a regex leaf plus the and/or/not combinators.
//
// Predicates are immutable once built and safe for concurrent use; all regex
// compilation happens in Build.
package predicate

import (
	"regexp"
	"strings"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
)

// Predicate is a boolean test over a row. Evaluate returns a
// TransformationError when the predicate dereferences a field the row lacks.
type Predicate interface {
	Evaluate(r record.Row) (bool, error)
	String() string
}

// FieldMatchesRegex holds when the field's full value matches any pattern.
type FieldMatchesRegex struct {
	Field    string
	Patterns []string

	compiled []*regexp.Regexp
}

// NewFieldMatchesRegex compiles patterns for full-string matching.
func NewFieldMatchesRegex(field string, patterns []string) (*FieldMatchesRegex, error) {
	p := &FieldMatchesRegex{Field: field, Patterns: append([]string(nil), patterns...)}
	for _, pat := range patterns {
		re, err := CompileFull(pat)
		if err != nil {
			return nil, err
		}
		p.compiled = append(p.compiled, re)
	}
	return p, nil
}

// CompileFull compiles pat so that it only matches an entire string.
func CompileFull(pat string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pat + `)$`)
}

func (p *FieldMatchesRegex) Evaluate(r record.Row) (bool, error) {
	v, ok := r.Get(p.Field)
	if !ok {
		return false, errs.MissingField(p.Field)
	}
	for _, re := range p.compiled {
		if re.MatchString(v) {
			return true, nil
		}
	}
	return false, nil
}

func (p *FieldMatchesRegex) String() string {
	return "FieldMatchesRegex(" + p.Field + " matches [" + strings.Join(p.Patterns, ", ") + "])"
}

// And holds when every child holds. It stops at the first false child.
type And []Predicate

func (a And) Evaluate(r record.Row) (bool, error) {
	for _, p := range a {
		ok, err := p.Evaluate(r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (a And) String() string { return "And(" + join(a) + ")" }

// Or holds when any child holds. It stops at the first true child.
type Or []Predicate

func (o Or) Evaluate(r record.Row) (bool, error) {
	for _, p := range o {
		ok, err := p.Evaluate(r)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (o Or) String() string { return "Or(" + join(o) + ")" }

// Not negates its child.
type Not struct{ P Predicate }

func (n Not) Evaluate(r record.Row) (bool, error) {
	ok, err := n.P.Evaluate(r)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n Not) String() string { return "Not(" + n.P.String() + ")" }

// Const always evaluates to its value.
type Const bool

func (c Const) Evaluate(record.Row) (bool, error) { return bool(c), nil }

func (c Const) String() string {
	if c {
		return "Const(true)"
	}
	return "Const(false)"
}

func join(ps []Predicate) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
