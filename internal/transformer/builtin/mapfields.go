package builtin

import (
	"strings"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// map_fields keys.
const (
	KindMapFields  = "map_fields"
	KeyIgnoreCase  = "ignore_case"
	KeyTargetField = "target_field"
	KeySrcFields   = "src_fields"
	KeyMandatory   = "mandatory"
)

func init() { register(KindMapFields, false, newMapFields) }

// FieldMapping produces one output field from at most one of its candidate
// source fields.
type FieldMapping struct {
	Target string
	// Sources are lowercased when IgnoreCase is set.
	Sources    []string
	Mandatory  bool
	IgnoreCase bool
}

// MapFields rebuilds the row from declared output fields only, in
// declaration order. It never takes a predicate.
type MapFields struct {
	transformer.Base
	Mappings []FieldMapping
	anyFold  bool
}

func (*MapFields) Conditional() bool { return false }

func newMapFields(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyIgnoreCase); err != nil {
		return nil, err
	}
	globalFold, _, err := n.Boolean(KeyIgnoreCase, false)
	if err != nil {
		return nil, err
	}
	nodes, _, err := n.DictList(KeyFields, true)
	if err != nil {
		return nil, err
	}

	t := &MapFields{Base: transformer.Base{TaskName: c.Name, TaskKind: c.Kind}}
	for _, fn := range nodes {
		if err := fn.CheckKeys(KeyTargetField, KeySrcFields, KeyMandatory, KeyIgnoreCase); err != nil {
			return nil, err
		}
		fold, ok, err := fn.Boolean(KeyIgnoreCase, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			fold = globalFold
		}
		target, _, err := fn.String(KeyTargetField, true)
		if err != nil {
			return nil, err
		}
		sources, hasSources, err := fn.Strings(KeySrcFields, false)
		if err != nil {
			return nil, err
		}
		if fold {
			for i, s := range sources {
				sources[i] = strings.ToLower(s)
			}
		}
		mandatory, ok, err := fn.Boolean(KeyMandatory, false)
		if err != nil {
			return nil, err
		}
		switch {
		case !hasSources:
			mandatory = false
		case !ok:
			mandatory = true
		}
		t.Mappings = append(t.Mappings, FieldMapping{Target: target, Sources: sources, Mandatory: mandatory, IgnoreCase: fold})
		t.anyFold = t.anyFold || fold
		t.Result = append(t.Result, target)
	}
	if t.Result == nil {
		t.Result = transformer.Schema{}
	}
	if err := t.checkSources(c); err != nil {
		return nil, err
	}
	return t, nil
}

// checkSources is the map_fields variant of the field-flow check: against a
// known predecessor schema, at most one candidate of each mapping may exist,
// and a mandatory mapping needs one.
func (t *MapFields) checkSources(c *transformer.BuildContext) error {
	prev := c.Previous
	if prev == nil || !prev.Fields().Known() {
		return nil
	}
	exact := map[string]bool{}
	folded := map[string]bool{}
	for _, f := range prev.Fields() {
		exact[f] = true
		folded[strings.ToLower(f)] = true
	}
	for _, m := range t.Mappings {
		have := exact
		if m.IgnoreCase {
			have = folded
		}
		matched := ""
		for _, src := range m.Sources {
			if !have[src] {
				continue
			}
			if matched != "" {
				return errs.Configf(`src_fields "%s" and "%s" in map_fields task "%s" map to the same target_field and were both found in resulting fields of %s task "%s". (File "%s")`,
					matched, src, t.TaskName, prev.Kind(), prev.Name(), c.Node.File)
			}
			matched = src
		}
		if matched == "" && m.Mandatory {
			return errs.Configf(`Fields "%s" are expected by map_fields task "%s" but was not found in resulting fields of %s task "%s". (File "%s")`,
				strings.Join(m.Sources, `" or "`), t.TaskName, prev.Kind(), prev.Name(), c.Node.File)
		}
	}
	return nil
}

func (t *MapFields) Transform(r record.Row) (record.Row, error) {
	var folded map[string]string
	if t.anyFold {
		folded = make(map[string]string, r.Len())
		r.Each(func(k, v string) { folded[strings.ToLower(k)] = v })
	}
	b := record.Builder{}
	for _, m := range t.Mappings {
		get := r.Get
		if m.IgnoreCase {
			get = func(k string) (string, bool) {
				v, ok := folded[k]
				return v, ok
			}
		}
		value, mapped := "", ""
		for _, src := range m.Sources {
			v, ok := get(src)
			if !ok {
				continue
			}
			if mapped != "" {
				return r, errs.Transformf(`Fields "%s" and "%s" both exist and are mapped to the same target field "%s"`, mapped, src, m.Target)
			}
			value, mapped = v, src
		}
		if mapped == "" && m.Mandatory {
			return r, errs.Transformf(`Could not find any fields to map to target field "%s". Expected source fields: "%s"`,
				m.Target, strings.Join(m.Sources, `", "`))
		}
		b.Set(m.Target, value)
	}
	return b.Row(), nil
}
