package builtin

import (
	"fmt"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Discarding kinds.
const (
	KindDiscardFields = "discard_fields"
	KindDiscardRecord = "discard_record"
)

func init() {
	register(KindDiscardFields, false, newDiscardFields)
	register(KindDiscardRecord, true, newDiscardRecord)
}

// DiscardFields drops the listed fields and keeps the rest in order. It never
// takes a predicate.
type DiscardFields struct {
	transformer.Base
	Drop []string
	drop map[string]struct{}
}

func (*DiscardFields) Conditional() bool { return false }

func newDiscardFields(c *transformer.BuildContext) (transformer.Task, error) {
	if err := c.Node.CheckKeys(KeyFields); err != nil {
		return nil, err
	}
	fields, err := fieldList(c.Node)
	if err != nil {
		return nil, err
	}
	t := &DiscardFields{
		Base: transformer.Base{TaskName: c.Name, TaskKind: c.Kind},
		Drop: fields,
		drop: make(map[string]struct{}, len(fields)),
	}
	for _, f := range fields {
		t.drop[f] = struct{}{}
	}

	prev := c.PreviousFields()
	if !prev.Known() {
		return t, nil
	}
	for _, f := range fields {
		if !prev.Has(f) {
			c.Log().Warn(fmt.Sprintf(`Field "%s" is supposed to be dropped by task "%s", but was not found in the resulting fields of preceding %s task "%s". (File "%s")`,
				f, c.Name, c.Previous.Kind(), c.Previous.Name(), c.Node.File))
		}
	}
	t.Result = transformer.Schema{}
	for _, f := range prev {
		if _, gone := t.drop[f]; !gone {
			t.Result = append(t.Result, f)
		}
	}
	return t, nil
}

func (t *DiscardFields) Transform(r record.Row) (record.Row, error) {
	b := record.Builder{}
	r.Each(func(k, v string) {
		if _, gone := t.drop[k]; !gone {
			b.Set(k, v)
		}
	})
	return b.Row(), nil
}

// DiscardRecord drops the whole row. Its predicate (applied by the caller)
// selects which rows; without one every row is dropped.
type DiscardRecord struct {
	transformer.Base
}

func newDiscardRecord(c *transformer.BuildContext) (transformer.Task, error) {
	if err := c.Node.CheckKeys(); err != nil {
		return nil, err
	}
	return &DiscardRecord{Base: c.Base()}, nil
}

func (*DiscardRecord) Transform(r record.Row) (record.Row, error) {
	return r, errs.ErrDiscardRecord
}
