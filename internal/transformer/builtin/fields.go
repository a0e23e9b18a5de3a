package builtin

import (
	"strings"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Kinds that write into existing fields.
const (
	KindSetFieldValue     = "set_field_value"
	KindCopyFieldValue    = "copy_field_value"
	KindConcatenateFields = "concatenate_fields"

	KeyField      = "field"
	KeyValue      = "value"
	KeyFromField  = "from_field"
	KeyToFields   = "to_fields"
	KeyToField    = "to_field"
	KeyWithString = "with_string"
)

func init() {
	register(KindSetFieldValue, true, newSetFieldValue)
	register(KindCopyFieldValue, true, newCopyFieldValue)
	register(KindConcatenateFields, true, newConcatenateFields)
}

// --- set_field_value ---

// SetFieldValue overwrites an existing field with a constant.
type SetFieldValue struct {
	transformer.Base
	Field string
	Value string
}

func newSetFieldValue(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyField, KeyValue); err != nil {
		return nil, err
	}
	field, _, err := n.String(KeyField, true)
	if err != nil {
		return nil, err
	}
	value, _, err := n.String(KeyValue, true)
	if err != nil {
		return nil, err
	}
	if err := c.Check(field); err != nil {
		return nil, err
	}
	return &SetFieldValue{Base: c.Base(), Field: field, Value: value}, nil
}

func (t *SetFieldValue) Transform(r record.Row) (record.Row, error) {
	if !r.Has(t.Field) {
		return r, errs.MissingField(t.Field)
	}
	return r.Edit().Set(t.Field, t.Value).Row(), nil
}

// --- copy_field_value ---

// CopyFieldValue copies one field's value into each destination field.
type CopyFieldValue struct {
	transformer.Base
	From string
	To   []string
}

func newCopyFieldValue(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFromField, KeyToFields); err != nil {
		return nil, err
	}
	from, _, err := n.String(KeyFromField, true)
	if err != nil {
		return nil, err
	}
	to, _, err := n.Strings(KeyToFields, true)
	if err != nil {
		return nil, err
	}
	if err := c.Check(append([]string{from}, to...)...); err != nil {
		return nil, err
	}
	return &CopyFieldValue{Base: c.Base(), From: from, To: to}, nil
}

func (t *CopyFieldValue) Transform(r record.Row) (record.Row, error) {
	v, ok := r.Get(t.From)
	if !ok {
		return r, errs.MissingField(t.From)
	}
	b := r.Edit()
	for _, f := range t.To {
		if !r.Has(f) {
			return r, errs.MissingField(f)
		}
		b.Set(f, v)
	}
	return b.Row(), nil
}

// --- concatenate_fields ---

// ConcatenateFields joins the values of Sources with Sep into Dest.
type ConcatenateFields struct {
	transformer.Base
	Sources []string
	Dest    string
	Sep     string
}

func newConcatenateFields(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyToField, KeyWithString); err != nil {
		return nil, err
	}
	fields, err := fieldList(n)
	if err != nil {
		return nil, err
	}
	dest, _, err := n.String(KeyToField, true)
	if err != nil {
		return nil, err
	}
	sep, _, err := n.String(KeyWithString, true)
	if err != nil {
		return nil, err
	}
	if err := c.Check(append(append([]string(nil), fields...), dest)...); err != nil {
		return nil, err
	}
	return &ConcatenateFields{Base: c.Base(), Sources: fields, Dest: dest, Sep: sep}, nil
}

func (t *ConcatenateFields) Transform(r record.Row) (record.Row, error) {
	vals := make([]string, len(t.Sources))
	for i, f := range t.Sources {
		v, ok := r.Get(f)
		if !ok {
			return r, errs.MissingField(f)
		}
		vals[i] = v
	}
	if !r.Has(t.Dest) {
		return r, errs.MissingField(t.Dest)
	}
	return r.Edit().Set(t.Dest, strings.Join(vals, t.Sep)).Row(), nil
}
