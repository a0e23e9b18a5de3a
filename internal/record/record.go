// Package record defines Row, the unit of data that flows through a
// dataunifier pipeline.
//
// A Row is an ordered mapping of field name to string value. Rows are
// immutable from the outside: every transformation produces a new Row via a
// Builder, so a Row handed to one task can never be observed changing by
// another. Field order is significant (it is the order the CSV writer and
// DiscardFields preserve) and is kept in a separate key slice because Go maps
// are unordered.
package record

import "strings"

// Row is an immutable, ordered string→string mapping.
//
// The zero value is an empty row and is ready to use.
type Row struct {
	keys []string
	vals map[string]string
}

// New builds a Row from parallel key and value slices. Later duplicates of a
// key overwrite the value but keep the first position. Values beyond len(keys)
// are ignored; missing values are empty strings.
func New(keys, values []string) Row {
	b := Builder{}
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		b.Set(k, v)
	}
	return b.Row()
}

// FromPairs builds a Row from alternating key, value arguments. It is mostly
// a convenience for tests and literal fixtures.
func FromPairs(kv ...string) Row {
	b := Builder{}
	for i := 0; i+1 < len(kv); i += 2 {
		b.Set(kv[i], kv[i+1])
	}
	return b.Row()
}

// Len returns the number of fields.
func (r Row) Len() int { return len(r.keys) }

// Get returns the value of key and whether it is present.
func (r Row) Get(key string) (string, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Value returns the value of key or "" when absent.
func (r Row) Value(key string) string { return r.vals[key] }

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Keys returns a copy of the field names in order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in field order.
func (r Row) Values() []string {
	out := make([]string, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.vals[k]
	}
	return out
}

// Each calls fn for every field in order.
func (r Row) Each(fn func(key, value string)) {
	for _, k := range r.keys {
		fn(k, r.vals[k])
	}
}

// Equal reports whether two rows hold the same fields, in the same order,
// with the same values.
func (r Row) Equal(o Row) bool {
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || o.vals[k] != r.vals[k] {
			return false
		}
	}
	return true
}

// String renders the row as {k: "v", ...} for diagnostics.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteByte('"')
		b.WriteString(r.vals[k])
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// Edit returns a Builder seeded with a copy of r. Changes made through the
// Builder never affect r.
func (r Row) Edit() *Builder {
	b := &Builder{
		keys: make([]string, len(r.keys), len(r.keys)+1),
		vals: make(map[string]string, len(r.vals)+1),
	}
	copy(b.keys, r.keys)
	for k, v := range r.vals {
		b.vals[k] = v
	}
	return b
}

// Builder accumulates fields for a new Row.
type Builder struct {
	keys []string
	vals map[string]string
}

// Set assigns value to key, appending key when it is new.
func (b *Builder) Set(key, value string) *Builder {
	if b.vals == nil {
		b.vals = map[string]string{}
	}
	if _, ok := b.vals[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = value
	return b
}

// Get returns the current value of key in the builder.
func (b *Builder) Get(key string) (string, bool) {
	v, ok := b.vals[key]
	return v, ok
}

// Delete removes key if present, preserving the order of the rest.
func (b *Builder) Delete(key string) *Builder {
	if _, ok := b.vals[key]; !ok {
		return b
	}
	delete(b.vals, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
	return b
}

// Row freezes the builder into a Row. The builder must not be used
// afterwards.
func (b *Builder) Row() Row {
	r := Row{keys: b.keys, vals: b.vals}
	b.keys, b.vals = nil, nil
	return r
}
