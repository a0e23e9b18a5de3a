// Package builtin contains the task kinds a dataunifier pipeline file can
// declare. Each kind registers itself with transformer.Default from init, so
// importing this package (usually for side effects) is what makes the kinds
// available to transformer.BuildTasks.
//
// Design goals:
//
//   - Build once, run many: constructors do every expensive or fallible step
//     (option validation, regex compilation, date-layout compilation, lookup
//     table loading) so Transform only touches the row.
//   - Immutable tasks: a built task holds no per-row state and is safe to
//     apply to any number of rows.
//   - Order-preserving rules: candidate and rule lists stay slices from the
//     configuration to Transform because first-match and tie-break semantics
//     depend on declaration order.
//   - Fail with the row's words: runtime errors quote the field and the
//     offending value; build errors quote the key path and the file.
package builtin

import (
	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Keys shared by several kinds.
const (
	KeyFields      = "fields"
	KeyOnUnmatched = "on_unmatched"
	KeyAllowBlank  = "allow_blank"
	KeyRules       = "rules"
	KeyDirectory   = "directory"
	KeyFilename    = "filename_regex"
	KeyLookupCol   = "lookup_column"
)

func register(name string, conditional bool, fn transformer.Constructor) {
	transformer.Register(transformer.Kind{Name: name, Conditional: conditional, New: fn})
}

// fieldList reads the mandatory "fields" list.
func fieldList(n config.Node) ([]string, error) {
	fields, _, err := n.Strings(KeyFields, true)
	return fields, err
}

// valueTask is the shape shared by kinds that rewrite the values of a list
// of existing fields and keep the predecessor's schema.
type valueTask struct {
	transformer.Base
	Targets []string
}

func newValueTask(c *transformer.BuildContext) (valueTask, error) {
	fields, err := fieldList(c.Node)
	if err != nil {
		return valueTask{}, err
	}
	if err := c.Check(fields...); err != nil {
		return valueTask{}, err
	}
	return valueTask{Base: c.Base(), Targets: fields}, nil
}

// each replaces the value of every target field with fn's result. Values are
// read from the row the task received.
func (t *valueTask) each(r record.Row, fn func(field, value string) (string, error)) (record.Row, error) {
	b := r.Edit()
	for _, f := range t.Targets {
		v, ok := r.Get(f)
		if !ok {
			return r, errs.MissingField(f)
		}
		nv, err := fn(f, v)
		if err != nil {
			return r, err
		}
		b.Set(f, nv)
	}
	return b.Row(), nil
}
