package transformer

import (
	"errors"
	"log/slog"
	"strings"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/predicate"
	"dataunifier/internal/record"
)

// Task mapping keys.
const (
	KeyName   = "name"
	KeyWhen   = "when"
	KindBlock = "block"
)

// Builder turns task mappings into Tasks.
type Builder struct {
	// Registry defaults to Default.
	Registry *Registry
	Tables   TableSource
	Logger   *slog.Logger
}

// BuildTasks builds nodes with the Default registry.
func BuildTasks(nodes []config.Node, tables TableSource) (Chain, error) {
	b := &Builder{Tables: tables}
	return b.BuildTasks(nodes)
}

// BuildTasks builds an ordered task list, threading each task's schema into
// the next one's field-flow check.
func (b *Builder) BuildTasks(nodes []config.Node) (Chain, error) {
	out := make(Chain, 0, len(nodes))
	var prev Task
	for _, n := range nodes {
		t, err := b.BuildTask(n, prev)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		prev = t
	}
	return out, nil
}

// BuildTask builds the task declared by the mapping n. prev is the preceding
// task, or nil.
func (b *Builder) BuildTask(n config.Node, prev Task) (Task, error) {
	name, _, err := n.String(KeyName, true)
	if err != nil {
		return nil, err
	}

	var when predicate.Predicate
	whenNode, hasWhen, err := n.Dict(KeyWhen, false)
	if err != nil {
		return nil, err
	}
	if hasWhen {
		if when, err = predicate.Build(whenNode); err != nil {
			return nil, err
		}
	}

	kind, err := taskKind(n, name)
	if err != nil {
		return nil, err
	}
	if kind == KindBlock {
		return b.buildBlock(n, name, when, prev)
	}

	reg := b.Registry
	if reg == nil {
		reg = Default
	}
	k, err := reg.Lookup(kind)
	if err != nil {
		var nk *errs.NoSuchKindError
		if errors.As(err, &nk) {
			return nil, errs.Configf(`Unrecognized task type declared at key "%s": "%s" (File "%s")`, n.Path, nk.Kind, n.File)
		}
		return nil, err
	}
	if when != nil && !k.Conditional {
		return nil, errs.Configf(`"when" cannot be used with a %s task. (File "%s", task "%s")`, kind, n.File, name)
	}

	inner, _, err := n.Dict(kind, true)
	if err != nil {
		return nil, err
	}
	return k.New(&BuildContext{
		Node:     inner,
		Name:     name,
		Kind:     kind,
		When:     when,
		Previous: prev,
		Tables:   b.Tables,
		Logger:   b.Logger,
	})
}

// taskKind returns the single key of n that is neither "name" nor "when".
func taskKind(n config.Node, name string) (string, error) {
	var kinds []string
	for _, k := range n.Keys() {
		if k != KeyName && k != KeyWhen {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) != 1 {
		return "", errs.Configf(`Multiple task type keys found in task "%s": "%s" (File "%s")`, name, strings.Join(kinds, `", "`), n.File)
	}
	return kinds[0], nil
}

// --- block ---

// Block applies its members in order when its own predicate holds. Members
// still evaluate their own predicates.
type Block struct {
	Base
	Members Chain
}

// Transform runs every member through Apply. Errors are returned as raised
// so the engine attributes them to the block.
func (b *Block) Transform(r record.Row) (record.Row, error) {
	out := r
	for _, t := range b.Members {
		next, err := Apply(t, out)
		if err != nil {
			return r, err
		}
		out = next
	}
	return out, nil
}

// Fields is the last member's schema.
func (b *Block) Fields() Schema { return b.Members.Fields() }

func (b *Builder) buildBlock(n config.Node, name string, when predicate.Predicate, prev Task) (Task, error) {
	nodes, _, err := n.DictList(KindBlock, true)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		c, _ := n.Child(KindBlock)
		return nil, errs.Configf(`A task block must contain tasks. (File "%s", task block "%s", key "%s")`, n.File, name, c.Path)
	}
	blk := &Block{Base: Base{TaskName: name, TaskKind: KindBlock, Pred: when}}
	inner := prev
	for _, m := range nodes {
		t, err := b.BuildTask(m, inner)
		if err != nil {
			return nil, err
		}
		if !t.Conditional() {
			return nil, errs.Configf(`%s tasks cannot be put inside a task block, because they cannot be used with "when". (File "%s", Task "%s")`, t.Kind(), m.File, t.Name())
		}
		blk.Members = append(blk.Members, t)
		inner = t
	}
	return blk, nil
}
