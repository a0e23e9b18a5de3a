// Package file resolves input files on the local disk and opens them as
// datasources.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
)

// ErrNoDirectory is returned by Match when dir does not exist or is not a
// directory.
var ErrNoDirectory = errors.New("no such directory")

// Match returns the paths of the regular files directly inside dir whose
// base name fully matches pattern, sorted by name.
func Match(dir, pattern string) ([]string, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, errs.Configf(`Invalid file name regular expression "%s". Details: "%s"`, pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isNotDir(dir) {
			return nil, fmt.Errorf("%w: %s", ErrNoDirectory, dir)
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !re.MatchString(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func isNotDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Resolve finds the files for in under dir. Its patterns are tried in order
// and the first one matching at least one file wins; Resolve returns the
// matching paths and that pattern. No match at all is an InputFileError.
func Resolve(dir string, in config.InputFile) ([]string, string, error) {
	for _, p := range in.Regex {
		paths, err := Match(dir, p)
		if errors.Is(err, ErrNoDirectory) {
			return nil, "", errs.CommandLinef(`Could not find input directory "%s".`, dir)
		}
		if err != nil {
			return nil, "", err
		}
		if len(paths) > 0 {
			return paths, p, nil
		}
	}
	return nil, "", errs.Inputf(`Could not find any file names matching patterns "%s" in input directory "%s". (Input File "%s")`,
		strings.Join(in.Regex, `", "`), dir, in.Name)
}

// Format classifies an input by its extension.
type Format int

const (
	Unsupported Format = iota
	CSV
	Excel
)

// FormatOf returns the format of path, or an InputFileError naming input
// when the extension is neither CSV nor Excel.
func FormatOf(path, input string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return CSV, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return Excel, nil
	}
	return Unsupported, errs.Inputf(`File "%s" has an unsupported format: "%s". Only CSVs and Excel files are accepted. (Input File "%s")`,
		path, strings.TrimPrefix(ext, "."), input)
}
