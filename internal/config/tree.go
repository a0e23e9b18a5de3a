package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"dataunifier/internal/errs"
)

// InputDirPlaceholder is expanded to the run's input directory inside
// include paths and lookup-table directories.
const InputDirPlaceholder = "%INPUT_DIR%"

// includeRe matches a scalar that pulls its value from another file.
var includeRe = regexp.MustCompile(`^\{\{ include:(.+) \}\}$`)

// Map is a YAML mapping with its key order preserved.
type Map struct {
	Keys   []string
	Values map[string]any
}

// Scalar is a YAML scalar kept as source text plus its resolved short tag
// (!!str, !!int, !!float, !!bool, !!null, ...).
type Scalar struct {
	Tag  string
	Text string
}

// Str returns a string scalar.
func Str(s string) Scalar { return Scalar{Tag: "!!str", Text: s} }

// decodeYAML parses data into the tree representation used by Node: *Map for
// mappings, []any for sequences, Scalar for scalars and nil for null or an
// empty document.
func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return convert(&doc)
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convert(n.Content[0])
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.ScalarNode:
		tag := n.ShortTag()
		if tag == "!!null" {
			return nil, nil
		}
		return Scalar{Tag: tag, Text: n.Value}, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		m := &Map{Values: make(map[string]any, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			v, err := convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if _, dup := m.Values[k.Value]; !dup {
				m.Keys = append(m.Keys, k.Value)
			}
			m.Values[k.Value] = v
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

// Includer resolves `{{ include:<path> }}` scalars.
type Includer struct {
	// InputDir replaces InputDirPlaceholder in include paths.
	InputDir string
	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

// ExpandPath substitutes the input directory placeholder and cleans p.
func (inc *Includer) ExpandPath(p string) string {
	dir := "."
	if inc != nil && inc.InputDir != "" {
		dir = inc.InputDir
	}
	return filepath.Clean(strings.ReplaceAll(p, InputDirPlaceholder, dir))
}

func (inc *Includer) read(p string) ([]byte, error) {
	if inc.ReadFile != nil {
		return inc.ReadFile(p)
	}
	return os.ReadFile(p)
}

// expand replaces n with the content of the file it references, if n is an
// include directive. Anything else is returned unchanged.
func (inc *Includer) expand(n Node) (Node, error) {
	if inc == nil {
		return n, nil
	}
	s, ok := n.Value.(Scalar)
	if !ok || s.Tag != "!!str" {
		return n, nil
	}
	m := includeRe.FindStringSubmatch(s.Text)
	if m == nil {
		return n, nil
	}
	p := inc.ExpandPath(strings.TrimSpace(m[1]))
	ext := strings.ToLower(filepath.Ext(p))

	data, err := inc.read(p)
	if err != nil {
		if ext == ".yaml" || ext == ".yml" {
			return n, errs.Configf(`Could not find YAML file "%s" (referenced in file "%s", key "%s")`, p, n.File, n.Path)
		}
		return n, errs.Configf(`Could not find text file "%s" (referenced in file "%s", key "%s")`, p, n.File, n.Path)
	}

	if ext == ".yaml" || ext == ".yml" {
		v, err := decodeYAML(data)
		if err != nil {
			return n, errs.Configf(`Could not interpret YAML file "%s" (referenced in file "%s", key "%s"). Details: %v`, p, n.File, n.Path, err)
		}
		// Included documents start a fresh key path in their own file.
		return Node{File: p, Value: v, inc: inc}, nil
	}
	return Node{File: n.File, Path: n.Path, Value: Str(string(data)), inc: inc}, nil
}
