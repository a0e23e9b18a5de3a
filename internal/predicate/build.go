package predicate

import (
	"sort"
	"strings"
	"sync"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
)

// MaxDepth bounds the nesting of combinators below a task's "when".
const MaxDepth = 20

// Combinator keys.
const (
	KeyAnd = "and"
	KeyOr  = "or"
	KeyNot = "not"
)

// Leaf keys of the field-matches-regex predicate.
const (
	KeyValueOfField = "value_of_field"
	KeyMatchesRegex = "matches_regex"
)

// Context carries the origin of the predicate being built so that errors
// deep in a nested tree still point at the "when" that started it.
type Context struct {
	Node     config.Node
	RootFile string
	RootPath string
	Depth    int
}

// child descends one level into n.
func (c Context) child(n config.Node) Context {
	return Context{Node: n, RootFile: c.RootFile, RootPath: c.RootPath, Depth: c.Depth + 1}
}

// LeafFunc builds a leaf predicate from its mapping.
type LeafFunc func(c Context) (Predicate, error)

var (
	leafMu sync.RWMutex
	leaves = map[string]LeafFunc{}
)

// RegisterLeaf adds a leaf kind identified by its exact key set.
func RegisterLeaf(keys []string, fn LeafFunc) {
	leafMu.Lock()
	defer leafMu.Unlock()
	leaves[keySignature(keys)] = fn
}

func lookupLeaf(keys []string) (LeafFunc, error) {
	leafMu.RLock()
	defer leafMu.RUnlock()
	sig := keySignature(keys)
	fn, ok := leaves[sig]
	if !ok {
		return nil, &errs.NoSuchKindError{Kind: sig}
	}
	return fn, nil
}

func keySignature(keys []string) string {
	s := append([]string(nil), keys...)
	sort.Strings(s)
	return strings.Join(s, ",")
}

func init() {
	RegisterLeaf([]string{KeyValueOfField, KeyMatchesRegex}, buildFieldMatchesRegex)
}

// Build turns the "when" mapping at n into a Predicate.
func Build(n config.Node) (Predicate, error) {
	return build(Context{Node: n, RootFile: n.File, RootPath: n.Path})
}

func build(c Context) (Predicate, error) {
	if c.Depth > MaxDepth {
		return nil, errs.Configf(`"when" object at "%s" goes too deep (possibly due to infinite recursion). (File "%s")`, c.RootPath, c.RootFile)
	}
	keys := c.Node.Keys()
	if len(keys) == 1 {
		switch keys[0] {
		case KeyAnd:
			children, err := buildList(c, KeyAnd)
			if err != nil {
				return nil, err
			}
			return And(children), nil
		case KeyOr:
			children, err := buildList(c, KeyOr)
			if err != nil {
				return nil, err
			}
			return Or(children), nil
		case KeyNot:
			n, _, err := c.Node.Dict(KeyNot, true)
			if err != nil {
				return nil, err
			}
			p, err := build(c.child(n))
			if err != nil {
				return nil, err
			}
			return Not{P: p}, nil
		}
	}
	fn, err := lookupLeaf(keys)
	if err != nil {
		return nil, errs.Configf(`Could not interpret the "when" object at "%s". (File "%s")`, c.Node.Path, c.Node.File)
	}
	return fn(c)
}

func buildList(c Context, key string) ([]Predicate, error) {
	nodes, _, err := c.Node.DictList(key, true)
	if err != nil {
		return nil, err
	}
	out := make([]Predicate, 0, len(nodes))
	for _, n := range nodes {
		p, err := build(c.child(n))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func buildFieldMatchesRegex(c Context) (Predicate, error) {
	field, _, err := c.Node.String(KeyValueOfField, true)
	if err != nil {
		return nil, err
	}
	pats, _, err := c.Node.LiteralList(KeyMatchesRegex, true)
	if err != nil {
		return nil, err
	}
	p := &FieldMatchesRegex{Field: field}
	for _, pn := range pats {
		re, err := CompileFull(pn.Text())
		if err != nil {
			return nil, errs.Configf(`Invalid regular expression at key "%s": "%s". Details: "%s" (File "%s")`, pn.Path, pn.Text(), err, pn.File)
		}
		p.Patterns = append(p.Patterns, pn.Text())
		p.compiled = append(p.compiled, re)
	}
	return p, nil
}
