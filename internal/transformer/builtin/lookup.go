package builtin

import (
	"errors"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Kinds backed by an auxiliary CSV file.
const (
	KindCsvLookupReplace = "csv_lookup_replace"
	KindCsvMatch         = "csv_match"

	KeyValueColumn  = "value_column"
	KeyMatchValue   = "match_value"
	KeyUnmatchValue = "unmatch_value"
)

func init() {
	register(KindCsvLookupReplace, true, newCsvLookupReplace)
	register(KindCsvMatch, true, newCsvMatch)
}

// --- csv_lookup_replace ---

// CsvLookupReplace replaces values through a dictionary read from a CSV file
// when the pipeline is built.
type CsvLookupReplace struct {
	valueTask
	Dict        map[string]string
	OnUnmatched Unmatched
}

func newCsvLookupReplace(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyDirectory, KeyFilename, KeyLookupCol, KeyValueColumn, KeyOnUnmatched, KeyDeduplicateBy); err != nil {
		return nil, err
	}
	vt, err := newValueTask(c)
	if err != nil {
		return nil, err
	}
	t := &CsvLookupReplace{valueTask: vt}
	if t.OnUnmatched, err = unmatchedOption(n); err != nil {
		return nil, err
	}
	policy, _, err := enumOption(n, KeyDeduplicateBy, false, LowerRowNumber, HigherRowNumber)
	if err != nil {
		return nil, err
	}
	lookupCol, _, err := n.String(KeyLookupCol, true)
	if err != nil {
		return nil, err
	}
	valueCol, _, err := n.String(KeyValueColumn, true)
	if err != nil {
		return nil, err
	}

	tbl, err := loadTable(c)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{lookupCol, valueCol} {
		if err := requireColumn(c, tbl, col, "column"); err != nil {
			return nil, err
		}
	}
	t.Dict, err = lookupDict(tbl.Rows, lookupCol, valueCol, policy)
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return nil, errs.Configf(`Duplicate value "%s" found in lookup column "%s" of file "%s", when preparing %s task "%s" (File "%s")`,
			dup.Key, dup.Column, tbl.Path, c.Kind, c.Name, n.File)
	}
	return t, err
}

func (t *CsvLookupReplace) Transform(r record.Row) (record.Row, error) {
	return t.each(r, func(field, v string) (string, error) {
		if out, ok := t.Dict[v]; ok {
			return out, nil
		}
		return t.OnUnmatched.resolve(v, func() error {
			return errs.Transformf(`Encountered unrecognised value in field "%s": "%s"`, field, v)
		})
	})
}

// --- csv_match ---

// CsvMatch replaces each value with Match when it appears in the lookup
// column of a CSV file, and with Unmatch otherwise.
type CsvMatch struct {
	valueTask
	Set            map[string]struct{}
	Match, Unmatch string
}

func newCsvMatch(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyDirectory, KeyFilename, KeyLookupCol, KeyMatchValue, KeyUnmatchValue); err != nil {
		return nil, err
	}
	vt, err := newValueTask(c)
	if err != nil {
		return nil, err
	}
	t := &CsvMatch{valueTask: vt}
	lookupCol, _, err := n.String(KeyLookupCol, true)
	if err != nil {
		return nil, err
	}
	if t.Match, _, err = n.String(KeyMatchValue, true); err != nil {
		return nil, err
	}
	if t.Unmatch, _, err = n.String(KeyUnmatchValue, true); err != nil {
		return nil, err
	}

	tbl, err := loadTable(c)
	if err != nil {
		return nil, err
	}
	if err := requireColumn(c, tbl, lookupCol, "lookup column"); err != nil {
		return nil, err
	}
	t.Set = make(map[string]struct{}, len(tbl.Rows))
	for _, row := range tbl.Rows {
		t.Set[row[lookupCol]] = struct{}{}
	}
	return t, nil
}

func (t *CsvMatch) Transform(r record.Row) (record.Row, error) {
	return t.each(r, func(_, v string) (string, error) {
		if _, ok := t.Set[v]; ok {
			return t.Match, nil
		}
		return t.Unmatch, nil
	})
}
