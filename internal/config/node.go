package config

import (
	"strconv"
	"strings"

	"dataunifier/internal/errs"
)

// Node is a position in the configuration tree: a value together with the
// file it was read from and its dotted key path. Task and predicate builders
// navigate the tree exclusively through Node so every shape error they raise
// names where in which file the offending value lives.
//
// The getters follow one convention: (key, mandatory) in; (value, present,
// err) out. A missing optional key is (zero, false, nil). A missing mandatory
// key or a value of the wrong shape is a ConfigError.
type Node struct {
	File  string
	Path  string
	Value any

	inc *Includer
}

// NewNode wraps a decoded value. inc may be nil to disable include
// expansion.
func NewNode(file string, value any, inc *Includer) Node {
	return Node{File: file, Value: value, inc: inc}
}

// JoinPath appends key to a dotted key path.
func JoinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// IsMap reports whether the node holds a mapping.
func (n Node) IsMap() bool {
	_, ok := n.Value.(*Map)
	return ok
}

// IsNull reports whether the node holds a YAML null.
func (n Node) IsNull() bool { return n.Value == nil }

// Keys returns the mapping keys in document order, or nil for non-mappings.
func (n Node) Keys() []string {
	if m, ok := n.Value.(*Map); ok {
		return append([]string(nil), m.Keys...)
	}
	return nil
}

// Scalar returns the scalar held by the node.
func (n Node) Scalar() (Scalar, bool) {
	s, ok := n.Value.(Scalar)
	return s, ok
}

// Text returns the source text of a scalar node; null and non-scalars yield "".
func (n Node) Text() string {
	if s, ok := n.Value.(Scalar); ok {
		return s.Text
	}
	return ""
}

// Int interprets a YAML integer scalar.
func (n Node) Int() (int, bool) {
	s, ok := n.Value.(Scalar)
	if !ok || s.Tag != "!!int" {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(s.Text, "_", ""), 0, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// Float interprets a YAML integer or float scalar.
func (n Node) Float() (float64, bool) {
	s, ok := n.Value.(Scalar)
	if !ok || (s.Tag != "!!int" && s.Tag != "!!float") {
		return 0, false
	}
	if i, ok := n.Int(); ok {
		return float64(i), true
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s.Text, "_", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Child returns the node for key without shape checks or include expansion.
func (n Node) Child(key string) (Node, bool) {
	m, ok := n.Value.(*Map)
	if !ok {
		return Node{}, false
	}
	v, ok := m.Values[key]
	if !ok {
		return Node{}, false
	}
	return Node{File: n.File, Path: JoinPath(n.Path, key), Value: v, inc: n.inc}, true
}

func (n Node) get(key string, mandatory bool) (Node, bool, error) {
	c, ok := n.Child(key)
	if !ok {
		if !mandatory {
			return Node{}, false, nil
		}
		if n.Path != "" {
			return Node{}, false, errs.Configf(`Could not find mandatory key "%s" in object at key "%s" (File "%s")`, key, n.Path, n.File)
		}
		return Node{}, false, errs.Configf(`Could not find mandatory key "%s" in configuration file "%s".`, key, n.File)
	}
	c, err := n.inc.expand(c)
	if err != nil {
		return Node{}, false, err
	}
	return c, true, nil
}

func isLiteral(v any) bool {
	switch v.(type) {
	case *Map, []any:
		return false
	}
	return true
}

// Literal returns a single (non-list, non-mapping) value.
func (n Node) Literal(key string, mandatory bool) (Node, bool, error) {
	c, ok, err := n.get(key, mandatory)
	if err != nil || !ok {
		return c, ok, err
	}
	if !isLiteral(c.Value) {
		return Node{}, false, errs.Configf(`Value of key "%s" is supposed to be a single value, not a list or an object. (File "%s")`, c.Path, c.File)
	}
	return c, true, nil
}

// String returns the text of a literal value.
func (n Node) String(key string, mandatory bool) (string, bool, error) {
	c, ok, err := n.Literal(key, mandatory)
	if err != nil || !ok {
		return "", ok, err
	}
	return c.Text(), true, nil
}

// Boolean returns a YAML boolean value.
func (n Node) Boolean(key string, mandatory bool) (bool, bool, error) {
	c, ok, err := n.Literal(key, mandatory)
	if err != nil || !ok {
		return false, ok, err
	}
	s, isScalar := c.Value.(Scalar)
	if !isScalar || s.Tag != "!!bool" {
		return false, false, errs.Configf(`Value of key "%s" is supposed to be a boolean. (File "%s")`, c.Path, c.File)
	}
	b, err := strconv.ParseBool(strings.ToLower(s.Text))
	if err != nil {
		// YAML 1.1 spellings the decoder also tags as !!bool.
		switch strings.ToLower(s.Text) {
		case "yes", "on", "y":
			return true, true, nil
		}
		return false, true, nil
	}
	return b, true, nil
}

// Dict returns a mapping value; null is an empty mapping.
func (n Node) Dict(key string, mandatory bool) (Node, bool, error) {
	c, ok, err := n.get(key, mandatory)
	if err != nil || !ok {
		return c, ok, err
	}
	if c.Value == nil {
		c.Value = &Map{Values: map[string]any{}}
	}
	if !c.IsMap() {
		return Node{}, false, errs.Configf(`Value of key "%s" is supposed to be an object. (File "%s")`, c.Path, c.File)
	}
	return c, true, nil
}

// List returns the elements of a sequence. A single non-sequence value is
// treated as a one-element list. Elements are include-expanded.
func (n Node) List(key string, mandatory bool) ([]Node, bool, error) {
	c, ok, err := n.get(key, mandatory)
	if err != nil || !ok {
		return nil, ok, err
	}
	raw, isList := c.Value.([]any)
	if !isList {
		raw = []any{c.Value}
	}
	out := make([]Node, 0, len(raw))
	for i, v := range raw {
		el := Node{File: c.File, Path: JoinPath(c.Path, strconv.Itoa(i)), Value: v, inc: c.inc}
		el, err := c.inc.expand(el)
		if err != nil {
			return nil, false, err
		}
		out = append(out, el)
	}
	return out, true, nil
}

// LiteralList returns a list whose elements are single values.
func (n Node) LiteralList(key string, mandatory bool) ([]Node, bool, error) {
	els, ok, err := n.List(key, mandatory)
	if err != nil || !ok {
		return els, ok, err
	}
	for _, el := range els {
		if el.IsMap() {
			c, _ := n.Child(key)
			return nil, false, errs.Configf(`Value of key "%s" is supposed to be a list of single values, not a list of objects. (File "%s")`, c.Path, c.File)
		}
	}
	return els, true, nil
}

// Strings returns the text of every element of a literal list.
func (n Node) Strings(key string, mandatory bool) ([]string, bool, error) {
	els, ok, err := n.LiteralList(key, mandatory)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Text()
	}
	return out, true, nil
}

// DictList returns a list whose elements are mappings.
func (n Node) DictList(key string, mandatory bool) ([]Node, bool, error) {
	els, ok, err := n.List(key, mandatory)
	if err != nil || !ok {
		return els, ok, err
	}
	for _, el := range els {
		if !el.IsMap() {
			c, _ := n.Child(key)
			return nil, false, errs.Configf(`Value of key "%s" is supposed to be a list of objects. (File "%s")`, c.Path, c.File)
		}
	}
	return els, true, nil
}

// CheckKeys fails when the mapping holds keys outside allowed.
func (n Node) CheckKeys(allowed ...string) error {
	set := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		set[k] = struct{}{}
	}
	var bad []string
	for _, k := range n.Keys() {
		if _, ok := set[k]; !ok {
			bad = append(bad, k)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	if n.Path != "" {
		return errs.Configf(`Unrecognized configuration keys in object at "%s": "%s" (File "%s")`, n.Path, strings.Join(bad, `", "`), n.File)
	}
	return errs.Configf(`Unrecognized configuration keys in file "%s": "%s"`, n.File, strings.Join(bad, `", "`))
}
