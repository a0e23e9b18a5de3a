package builtin

import (
	"errors"
	"fmt"
	"strings"

	"dataunifier/internal/errs"
	"dataunifier/internal/transformer"
)

// Duplicate-key policies for csv_lookup_replace.
//
//   - "lower_row_number"  : keep the earliest row's value
//   - "higher_row_number" : keep the latest row's value
//
// Without a policy a duplicate lookup key is a configuration error.
const (
	KeyDeduplicateBy = "deduplicate_by"

	LowerRowNumber  = "lower_row_number"
	HigherRowNumber = "higher_row_number"
)

// DuplicateKeyError reports a repeated lookup key when no policy is set.
type DuplicateKeyError struct {
	Key    string
	Column string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate lookup key %q in column %q", e.Key, e.Column)
}

// lookupDict maps lookupCol to valueCol over rows, resolving repeated keys
// with policy ("" rejects them).
func lookupDict(rows []map[string]string, lookupCol, valueCol, policy string) (map[string]string, error) {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		k, v := row[lookupCol], row[valueCol]
		if _, dup := out[k]; dup {
			switch policy {
			case LowerRowNumber:
				continue
			case HigherRowNumber:
			default:
				return nil, &DuplicateKeyError{Key: k, Column: lookupCol}
			}
		}
		out[k] = v
	}
	return out, nil
}

// loadTable resolves the directory and filename_regex keys of c through the
// configured TableSource and phrases its failures for the user.
func loadTable(c *transformer.BuildContext) (transformer.Table, error) {
	n := c.Node
	dir, _, err := n.String(KeyDirectory, true)
	if err != nil {
		return transformer.Table{}, err
	}
	pattern, _, err := n.String(KeyFilename, true)
	if err != nil {
		return transformer.Table{}, err
	}
	if c.Tables == nil {
		return transformer.Table{}, errs.Configf(`No lookup files are available to %s task "%s". (File "%s")`, c.Kind, c.Name, n.File)
	}
	tbl, err := c.Tables.Table(dir, pattern)
	var le *transformer.TableLookupError
	switch {
	case err == nil:
	case errors.As(err, &le) && le.Reason == transformer.NoSuchDirectory:
		return tbl, errs.Configf(`Directory "%s" was specified in %s task "%s" but could not be found. (File "%s")`, le.Directory, c.Kind, c.Name, n.File)
	case errors.As(err, &le) && le.Reason == transformer.NoMatchingFile:
		return tbl, errs.Configf(`Could not find any files matching pattern "%s" for %s task "%s". (File "%s")`, pattern, c.Kind, c.Name, n.File)
	case errors.As(err, &le):
		return tbl, errs.Configf(`Found multiple files matching pattern "%s" for %s task "%s": "%s" (File "%s")`,
			pattern, c.Kind, c.Name, strings.Join(le.Matches, `", "`), n.File)
	default:
		return tbl, errs.Configf(`Could not read lookup file for %s task "%s": %s (File "%s")`, c.Kind, c.Name, err, n.File)
	}
	c.Log().Info("lookup table loaded", "task", c.Name, "kind", c.Kind, "file", tbl.Path, "rows", len(tbl.Rows))
	return tbl, nil
}

// requireColumn fails unless tbl has col. label is "column" or "lookup
// column", matching how each kind names it.
func requireColumn(c *transformer.BuildContext, tbl transformer.Table, col, label string) error {
	if tbl.HasColumn(col) {
		return nil
	}
	return errs.Configf(`File "%s" does not contain %s "%s", required by %s task %s. (File "%s")`, tbl.Path, label, col, c.Kind, c.Name, c.Node.File)
}
