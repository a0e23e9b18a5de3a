// Package transformer defines the task contract of the dataunifier pipeline,
// the build-time field-flow check, and the registry that maps task kinds to
// their constructors.
//
// A Task is an immutable function from one row to the next. Its predicate
// ("when") is evaluated by Apply, never by the task itself, so every kind gets
// identical gating semantics: a false predicate means the row passes through
// untouched and no field checks run.
//
// Concrete kinds live in transformer/builtin and register themselves from
// init; importing that package is what makes them available.
package transformer

import (
	"errors"

	"dataunifier/internal/errs"
	"dataunifier/internal/predicate"
	"dataunifier/internal/record"
)

// Schema is the ordered list of fields guaranteed present on a row after a
// task runs. A nil Schema means unknown and disables field-flow checks; an
// empty, non-nil Schema is known and has no fields.
type Schema []string

// Known reports whether the schema carries information.
func (s Schema) Known() bool { return s != nil }

// Has reports whether field is part of the schema.
func (s Schema) Has(field string) bool {
	for _, f := range s {
		if f == field {
			return true
		}
	}
	return false
}

// Clone copies s, preserving the nil/unknown distinction.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return append(Schema{}, s...)
}

// Equal reports whether a and b list the same fields in the same order.
// Unknown schemas are only equal to each other.
func (s Schema) Equal(o Schema) bool {
	if (s == nil) != (o == nil) || len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Task is one pipeline stage.
type Task interface {
	Name() string
	Kind() string
	// Conditional reports whether the kind accepts a "when" predicate.
	Conditional() bool
	// When returns the task's predicate, or nil.
	When() predicate.Predicate
	// Fields returns the resulting schema.
	Fields() Schema
	// Transform applies the task unconditionally. Callers use Apply.
	Transform(r record.Row) (record.Row, error)
}

// Apply gates t on its predicate and transforms r. A row for which the
// predicate is false is returned unchanged.
func Apply(t Task, r record.Row) (record.Row, error) {
	if p := t.When(); p != nil {
		ok, err := p.Evaluate(r)
		if err != nil {
			return r, err
		}
		if !ok {
			return r, nil
		}
	}
	return t.Transform(r)
}

// Base carries the attributes every task shares. Kinds embed it and override
// Conditional when they reject predicates.
type Base struct {
	TaskName string
	TaskKind string
	Pred     predicate.Predicate
	Result   Schema
}

func (b *Base) Name() string { return b.TaskName }
func (b *Base) Kind() string { return b.TaskKind }
func (b *Base) Conditional() bool { return true }
func (b *Base) When() predicate.Predicate { return b.Pred }
func (b *Base) Fields() Schema { return b.Result }

// Chain is an ordered list of tasks applied one after another.
type Chain []Task

// Apply runs r through every task. It stops at the first error, which is
// returned wrapped in a *TaskError naming the task. A discard is returned
// as errs.ErrDiscardRecord unwrapped.
func (c Chain) Apply(r record.Row) (record.Row, error) {
	out := r
	for _, t := range c {
		next, err := Apply(t, out)
		if err != nil {
			if errors.Is(err, errs.ErrDiscardRecord) {
				return r, err
			}
			return r, &TaskError{Task: t.Name(), Err: err}
		}
		out = next
	}
	return out, nil
}

// Fields returns the resulting schema of the last task, or nil for an empty
// chain.
func (c Chain) Fields() Schema {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1].Fields()
}

// TaskError attributes a row-level failure to the task that raised it.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string { return e.Task + ": " + e.Err.Error() }

func (e *TaskError) Unwrap() error { return e.Err }
