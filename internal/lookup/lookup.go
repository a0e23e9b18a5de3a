// Package lookup materialises the auxiliary CSV tables read by lookup and
// match tasks.
//
// A Loader resolves a directory and a file-name pattern to exactly one file
// and reads it whole. Tables are cached by an xxh3 digest of the file bytes:
// several tasks naming the same file, or byte-identical copies of it under
// other names, parse it once per run.
package lookup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/xxh3"

	"dataunifier/internal/config"
	"dataunifier/internal/datasource/file"
	"dataunifier/internal/parser/csv"
	"dataunifier/internal/transformer"
)

// Loader implements transformer.TableSource over the local disk.
type Loader struct {
	// InputDir replaces %INPUT_DIR% in task directories.
	InputDir string
	Logger   *slog.Logger

	mu sync.Mutex
	// digests maps absolute paths already read to their content digest.
	digests map[string]xxh3.Uint128
	tables  map[xxh3.Uint128]transformer.Table
	parsed  int
}

// NewLoader returns a Loader expanding %INPUT_DIR% to inputDir.
func NewLoader(inputDir string, logger *slog.Logger) *Loader {
	return &Loader{InputDir: inputDir, Logger: logger}
}

// Table resolves the single file in directory fully matching filenameRegex.
// Failures to resolve it are *transformer.TableLookupError.
func (l *Loader) Table(directory, filenameRegex string) (transformer.Table, error) {
	dir := (&config.Includer{InputDir: l.InputDir}).ExpandPath(directory)
	paths, err := file.Match(dir, filenameRegex)
	switch {
	case errors.Is(err, file.ErrNoDirectory):
		return transformer.Table{}, &transformer.TableLookupError{Reason: transformer.NoSuchDirectory, Directory: dir}
	case err != nil:
		return transformer.Table{}, err
	case len(paths) == 0:
		return transformer.Table{}, &transformer.TableLookupError{Reason: transformer.NoMatchingFile, Directory: dir}
	case len(paths) > 1:
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = filepath.Base(p)
		}
		return transformer.Table{}, &transformer.TableLookupError{Reason: transformer.MultipleMatchingFiles, Directory: dir, Matches: names}
	}
	return l.load(paths[0])
}

func (l *Loader) load(path string) (transformer.Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return transformer.Table{}, fmt.Errorf("lookup: %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.digests[abs]; ok {
		l.log().Debug("lookup table cache hit", "file", path)
		return withPath(l.tables[d], path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return transformer.Table{}, fmt.Errorf("lookup: %w", err)
	}
	d := xxh3.Hash128(data)
	if l.digests == nil {
		l.digests = make(map[string]xxh3.Uint128)
		l.tables = make(map[xxh3.Uint128]transformer.Table)
	}
	l.digests[abs] = d
	if t, ok := l.tables[d]; ok {
		l.log().Debug("lookup table shares content with an earlier file", "file", path, "first", t.Path)
		return withPath(t, path), nil
	}

	r, err := csv.NewReader(bytes.NewReader(data), path, csv.Options{})
	if err != nil {
		delete(l.digests, abs)
		return transformer.Table{}, err
	}
	t, err := readTable(r, path)
	if err != nil {
		delete(l.digests, abs)
		return transformer.Table{}, err
	}
	l.parsed++
	l.tables[d] = t
	return t, nil
}

// withPath returns t as read from path. Rows are shared and never mutated.
func withPath(t transformer.Table, path string) transformer.Table {
	t.Path = path
	return t
}

func (l *Loader) log() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// ReadTable reads the CSV file at path into a Table. Values are kept
// verbatim.
func ReadTable(path string) (transformer.Table, error) {
	r, err := csv.Open(path, csv.Options{})
	if err != nil {
		return transformer.Table{}, err
	}
	defer r.Close()
	return readTable(r, path)
}

func readTable(r *csv.Reader, path string) (transformer.Table, error) {
	t := transformer.Table{Path: path, Columns: r.Header()}
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return transformer.Table{}, err
		}
		m := make(map[string]string, row.Len())
		row.Each(func(k, v string) { m[k] = v })
		t.Rows = append(t.Rows, m)
	}
}
