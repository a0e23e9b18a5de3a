// Package pipeline assembles the task chains of every fileset and drives rows
// through them.
//
// Assembly happens once per run and fails before any row is read when a
// task list is malformed or when filesets disagree on the fields they
// produce. Execution is strictly sequential: one row at a time, in file
// order, so the output preserves the input order without coordination.
package pipeline

import (
	"fmt"
	"strings"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/transformer"
)

// Fileset is a configured fileset together with its built task chain.
type Fileset struct {
	config.Fileset
	Chain transformer.Chain
}

// Fields is the schema the fileset's last task produces.
func (f Fileset) Fields() transformer.Schema { return f.Chain.Fields() }

// Pipeline is the assembled configuration.
type Pipeline struct {
	Filesets []Fileset
	// Fields is the output header, shared by every fileset.
	Fields transformer.Schema
}

// Assemble builds the task chain of every fileset in cfg with b and checks
// that all of them produce the same fields.
func Assemble(cfg *config.Config, b *transformer.Builder) (*Pipeline, error) {
	p := &Pipeline{Filesets: make([]Fileset, 0, len(cfg.Filesets))}
	for _, fs := range cfg.Filesets {
		chain, err := b.BuildTasks(fs.Tasks)
		if err != nil {
			return nil, err
		}
		p.Filesets = append(p.Filesets, Fileset{Fileset: fs, Chain: chain})
	}
	fields, err := agreedFields(p.Filesets)
	if err != nil {
		return nil, err
	}
	p.Fields = fields
	return p, nil
}

// agreedFields returns the common resulting schema of filesets. A fileset
// whose schema is unknown never agrees, since the output header could not be
// written.
func agreedFields(filesets []Fileset) (transformer.Schema, error) {
	if len(filesets) == 0 {
		return transformer.Schema{}, nil
	}
	first := filesets[0].Fields()
	agree := first.Known()
	for _, fs := range filesets[1:] {
		agree = agree && fs.Fields().Equal(first)
	}
	if agree {
		return first.Clone(), nil
	}
	lines := make([]string, len(filesets))
	for i, fs := range filesets {
		lines[i] = fmt.Sprintf(`Fields for fileset "%s": ["%s"]`, fs.Name, strings.Join(fs.Fields(), `", "`))
	}
	return nil, errs.Configf("Resulting fields for filesets do not match.\n%s", strings.Join(lines, "\n"))
}
