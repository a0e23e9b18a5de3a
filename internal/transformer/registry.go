package transformer

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/predicate"
)

// Constructor builds a task of one kind from its configuration.
type Constructor func(c *BuildContext) (Task, error)

// Kind describes a registered task kind.
type Kind struct {
	Name string
	// Conditional is false for kinds that reject "when" and cannot appear
	// inside a block.
	Conditional bool
	New         Constructor
}

// Registry maps kind names to constructors. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: map[string]Kind{}}
}

// Register adds or replaces a kind.
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.Name] = k
}

// Lookup returns the kind registered under name, or a *errs.NoSuchKindError.
func (r *Registry) Lookup(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, &errs.NoSuchKindError{Kind: name}
	}
	return k, nil
}

// Names lists the registered kinds in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for n := range r.kinds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default is the registry builtin kinds register into.
var Default = NewRegistry()

// Register adds k to the Default registry.
func Register(k Kind) { Default.Register(k) }

// --- auxiliary tables ---

// Table is an external CSV materialised for a lookup or match task.
type Table struct {
	Path    string
	Columns []string
	// Rows hold one map per data row, keyed by column name, in file order.
	Rows []map[string]string
}

// HasColumn reports whether the table's header contains col.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// TableSource resolves the single file in directory whose name fully matches
// filenameRegex and returns its content. Implementations report a missing
// directory, no match or several matches with the sentinel errors below so
// constructors can phrase the ConfigError.
type TableSource interface {
	Table(directory, filenameRegex string) (Table, error)
}

// TableLookupError explains why a TableSource could not resolve a file.
type TableLookupError struct {
	Reason TableLookupReason
	// Directory is the directory searched, after placeholder expansion.
	Directory string
	Matches   []string
}

// TableLookupReason enumerates TableSource failures.
type TableLookupReason int

const (
	NoSuchDirectory TableLookupReason = iota + 1
	NoMatchingFile
	MultipleMatchingFiles
)

func (e *TableLookupError) Error() string {
	switch e.Reason {
	case NoSuchDirectory:
		return "directory not found"
	case NoMatchingFile:
		return "no matching file"
	default:
		return "multiple matching files: " + strings.Join(e.Matches, ", ")
	}
}

// --- build context ---

// BuildContext is what a Constructor receives.
type BuildContext struct {
	// Node is the mapping under the kind key (e.g. the value of "uppercase").
	Node config.Node
	// Name is the task name.
	Name string
	// Kind is the task kind.
	Kind string
	// When is the parsed predicate, or nil.
	When predicate.Predicate
	// Previous is the preceding task, or nil for the first task.
	Previous Task
	// Tables resolves auxiliary files; nil when none are configured.
	Tables TableSource
	Logger *slog.Logger
}

// PreviousFields returns the predecessor's schema, or nil.
func (c *BuildContext) PreviousFields() Schema {
	if c.Previous == nil {
		return nil
	}
	return c.Previous.Fields().Clone()
}

// Base returns the shared attributes for a task that inherits its
// predecessor's schema.
func (c *BuildContext) Base() Base {
	return Base{TaskName: c.Name, TaskKind: c.Kind, Pred: c.When, Result: c.PreviousFields()}
}

// Check runs CheckFields for this task.
func (c *BuildContext) Check(required ...string) error {
	return CheckFields(c.Kind, c.Name, c.Previous, c.Node.File, required...)
}

// Log returns the configured logger or slog.Default.
func (c *BuildContext) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
