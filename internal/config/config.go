// Package config loads dataunifier pipeline files into a small, explicit
// model and exposes the raw tree through Node for the task builders.
//
// Design goals:
//
//  1. Precise diagnostics: every error names the dotted key path and the file
//     it came from, including files pulled in through `{{ include:... }}`.
//  2. Order preservation: mappings keep their document order so rule lists,
//     candidate lists and unrecognized-key reports follow the file.
//  3. Separation: this package knows the file layout (filesets, input files,
//     sheets, output). Task and predicate shapes belong to their builders,
//     which receive the task list as []Node.
//
// Example (trimmed):
//
//	filesets:
//	  - name: orders
//	    input_files:
//	      - name: Orders export
//	        regex: orders_.*\.csv
//	    tasks:
//	      - name: map
//	        map_fields:
//	          fields:
//	            - target_field: id
//	              src_fields: [OrderID, Order Id]
//	output:
//	  kind: sqlite
//	  dsn: file:unified.db
//	  table: unified
package config

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"

	"dataunifier/internal/errs"
)

// Top-level and fileset keys.
const (
	KeyFilesets   = "filesets"
	KeyOutput     = "output"
	KeyName       = "name"
	KeyInputFiles = "input_files"
	KeyTasks      = "tasks"
	KeyRegex      = "regex"
	KeySheets     = "sheets"
	KeyMandatory  = "mandatory"
	KeyEncoding   = "encoding"
)

// Config is a loaded pipeline file.
type Config struct {
	// File is the path the configuration was read from.
	File     string
	Filesets []Fileset
	// Output is nil when rows are only written to the CSV output file.
	Output *Output
}

// Fileset is a named group of input files sharing one task list.
type Fileset struct {
	Name string
	// InputFiles may be empty; such a fileset contributes a schema but no rows.
	InputFiles []InputFile
	// Tasks are the raw task mappings in declaration order.
	Tasks []Node
	// Node is the fileset mapping itself, for diagnostics.
	Node Node
}

// InputFile names the files (and optionally sheets) feeding a fileset.
type InputFile struct {
	Name string
	// Regex lists file-name patterns tried in order; the first pattern with
	// any match wins.
	Regex []string
	// Sheets is nil when every sheet of a workbook is read.
	Sheets []Sheet
	// Encoding is the CSV text encoding; empty means UTF-8.
	Encoding string
}

// Sheet selects one sheet of a workbook.
type Sheet struct {
	Regex     []string
	Mandatory bool
}

// Output configures the optional database sink.
type Output struct {
	Kind            string
	DSN             string
	Table           string
	BatchSize       int
	AutoCreateTable bool
}

// DefaultBatchSize is used when output.batch_size is absent.
const DefaultBatchSize = 500

// Load reads the pipeline file at path. inputDir replaces %INPUT_DIR% in
// include paths.
func Load(path, inputDir string) (*Config, error) {
	inc := &Includer{InputDir: inputDir}
	data, err := inc.read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Configf(`Could not find configuration file "%s".`, path)
		}
		return nil, errs.Configf(`Could not read configuration file "%s". Details: %v`, path, err)
	}
	return Parse(path, data, inc)
}

// Parse builds a Config from the bytes of a pipeline file. inc may be nil.
func Parse(path string, data []byte, inc *Includer) (*Config, error) {
	v, err := decodeYAML(data)
	if err != nil {
		return nil, errs.Configf(`Could not interpret configuration file "%s". Details: %v`, path, err)
	}
	root := NewNode(path, v, inc)
	if v == nil {
		root.Value = &Map{Values: map[string]any{}}
	}
	if !root.IsMap() {
		return nil, errs.Configf(`Could not interpret configuration file "%s". Details: top level must be an object`, path)
	}
	if err := root.CheckKeys(KeyFilesets, KeyOutput); err != nil {
		return nil, err
	}

	cfg := &Config{File: path}
	fsNodes, _, err := root.DictList(KeyFilesets, true)
	if err != nil {
		return nil, err
	}
	for _, n := range fsNodes {
		f, err := parseFileset(n)
		if err != nil {
			return nil, err
		}
		cfg.Filesets = append(cfg.Filesets, f)
	}

	outNode, ok, err := root.Dict(KeyOutput, false)
	if err != nil {
		return nil, err
	}
	if ok {
		out, err := parseOutput(outNode)
		if err != nil {
			return nil, err
		}
		cfg.Output = out
	}
	return cfg, nil
}

// --- filesets ---

func parseFileset(n Node) (Fileset, error) {
	if err := n.CheckKeys(KeyName, KeyInputFiles, KeyTasks); err != nil {
		return Fileset{}, err
	}
	name, _, err := n.String(KeyName, true)
	if err != nil {
		return Fileset{}, err
	}
	f := Fileset{Name: name, Node: n}

	ifNodes, _, err := n.DictList(KeyInputFiles, false)
	if err != nil {
		return Fileset{}, err
	}
	for _, in := range ifNodes {
		inf, err := parseInputFile(in)
		if err != nil {
			return Fileset{}, err
		}
		f.InputFiles = append(f.InputFiles, inf)
	}

	tasks, _, err := n.DictList(KeyTasks, true)
	if err != nil {
		return Fileset{}, err
	}
	if len(tasks) == 0 {
		return Fileset{}, errs.Configf(`Task list for fileset "%s" is empty. You must specify at least one task. (File "%s")`, name, n.File)
	}
	f.Tasks = tasks
	return f, nil
}

func parseInputFile(n Node) (InputFile, error) {
	if err := n.CheckKeys(KeyName, KeyRegex, KeySheets, KeyEncoding); err != nil {
		return InputFile{}, err
	}
	name, _, err := n.String(KeyName, true)
	if err != nil {
		return InputFile{}, err
	}
	regex, _, err := n.Strings(KeyRegex, true)
	if err != nil {
		return InputFile{}, err
	}
	enc, _, err := n.String(KeyEncoding, false)
	if err != nil {
		return InputFile{}, err
	}
	inf := InputFile{Name: name, Regex: regex, Encoding: strings.TrimSpace(enc)}

	sheets, ok, err := n.List(KeySheets, false)
	if err != nil {
		return InputFile{}, err
	}
	if ok {
		inf.Sheets = make([]Sheet, 0, len(sheets))
		for _, s := range sheets {
			sh, err := parseSheet(s)
			if err != nil {
				return InputFile{}, err
			}
			inf.Sheets = append(inf.Sheets, sh)
		}
	}
	return inf, nil
}

func parseSheet(n Node) (Sheet, error) {
	if !n.IsMap() {
		if _, ok := n.Value.([]any); ok {
			return Sheet{}, errs.Configf(`Value of key "%s" is supposed to be a single value or an object. (File "%s")`, n.Path, n.File)
		}
		return Sheet{Regex: []string{ExactRegex(n.Text())}, Mandatory: true}, nil
	}
	if err := n.CheckKeys(KeyRegex, KeyMandatory); err != nil {
		return Sheet{}, err
	}
	regex, _, err := n.Strings(KeyRegex, true)
	if err != nil {
		return Sheet{}, err
	}
	mandatory, ok, err := n.Boolean(KeyMandatory, false)
	if err != nil {
		return Sheet{}, err
	}
	if !ok {
		mandatory = true
	}
	return Sheet{Regex: regex, Mandatory: mandatory}, nil
}

// ExactRegex returns a pattern that matches s and nothing else.
func ExactRegex(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}

// --- output ---

const (
	keyKind            = "kind"
	keyDSN             = "dsn"
	keyTable           = "table"
	keyBatchSize       = "batch_size"
	keyAutoCreateTable = "auto_create_table"
)

func parseOutput(n Node) (*Output, error) {
	if err := n.CheckKeys(keyKind, keyDSN, keyTable, keyBatchSize, keyAutoCreateTable); err != nil {
		return nil, err
	}
	out := &Output{BatchSize: DefaultBatchSize}
	var err error
	if out.Kind, _, err = n.String(keyKind, true); err != nil {
		return nil, err
	}
	if out.DSN, _, err = n.String(keyDSN, true); err != nil {
		return nil, err
	}
	if out.Table, _, err = n.String(keyTable, true); err != nil {
		return nil, err
	}
	bs, ok, err := n.Literal(keyBatchSize, false)
	if err != nil {
		return nil, err
	}
	if ok {
		v, isInt := bs.Int()
		if !isInt || v <= 0 {
			return nil, errs.Configf(`Invalid batch_size: "%s". Must be an integer more than 0. (File "%s")`, bs.Text(), n.File)
		}
		out.BatchSize = v
	}
	if out.AutoCreateTable, _, err = n.Boolean(keyAutoCreateTable, false); err != nil {
		return nil, err
	}
	return out, nil
}

