// Package excel reads the sheets of .xlsx/.xlsm workbooks as rows keyed by
// each sheet's first row.
package excel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/record"
)

// Workbook is an open Excel file.
type Workbook struct {
	path string
	f    *excelize.File
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Inputf(`Could not read Excel file "%s". This could mean that it is encrypted with a password, or corrupted. Please remove the password (if any), and ensure it is not corrupted.`, path)
	}
	return &Workbook{path: path, f: f}, nil
}

// SheetNames lists the sheets in workbook order.
func (w *Workbook) SheetNames() []string { return w.f.GetSheetList() }

// Close releases the workbook.
func (w *Workbook) Close() error { return w.f.Close() }

// Select returns the sheets to read for an input file: every sheet when
// specs is nil, otherwise, per spec in order, the first sheet whose name
// fully matches one of its patterns. A mandatory spec without a match is an
// InputFileError naming input.
func (w *Workbook) Select(specs []config.Sheet, input string) ([]string, error) {
	return SelectSheets(w.path, input, w.SheetNames(), specs)
}

// SelectSheets implements Workbook.Select over a list of sheet names.
func SelectSheets(path, input string, names []string, specs []config.Sheet) ([]string, error) {
	if specs == nil {
		return names, nil
	}
	var out []string
	for _, spec := range specs {
		name, err := firstMatch(spec.Regex, names)
		if err != nil {
			return nil, err
		}
		switch {
		case name != "":
			out = append(out, name)
		case spec.Mandatory:
			return nil, errs.Inputf(`Could not find any sheet name matching patterns "%s" in file "%s". (Input File "%s")`,
				strings.Join(spec.Regex, `", "`), path, input)
		}
	}
	return out, nil
}

func firstMatch(patterns, names []string) (string, error) {
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return "", errs.Configf(`Invalid sheet name regular expression "%s". Details: "%s"`, p, err)
		}
		for _, n := range names {
			if re.MatchString(n) {
				return n, nil
			}
		}
	}
	return "", nil
}

// SheetReader yields the data rows of one sheet.
type SheetReader struct {
	Sheet  string
	rows   *excelize.Rows
	header []string
}

// Read starts reading sheet. The first row is the header; blank header cells
// are named "Unnamed: <column index>".
func (w *Workbook) Read(sheet string) (*SheetReader, error) {
	rows, err := w.f.Rows(sheet)
	if err != nil {
		return nil, errs.Inputf(`Could not read sheet "%s" of Excel file "%s": %v`, sheet, w.path, err)
	}
	s := &SheetReader{Sheet: sheet, rows: rows}
	if !rows.Next() {
		return s, rows.Error()
	}
	hdr, err := rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("excel: read header of %q: %w", sheet, err)
	}
	s.header = make([]string, len(hdr))
	for i, h := range hdr {
		h = Stringify(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		s.header[i] = h
	}
	return s, nil
}

// Header returns the sheet's field names, or nil for an empty sheet.
func (s *SheetReader) Header() []string { return s.header }

// Next returns the next data row or io.EOF. Missing trailing cells are empty
// strings.
func (s *SheetReader) Next() (record.Row, error) {
	if s.header == nil || !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return record.Row{}, fmt.Errorf("excel: %s: %w", s.Sheet, err)
		}
		return record.Row{}, io.EOF
	}
	cells, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return record.Row{}, fmt.Errorf("excel: %s: %w", s.Sheet, err)
	}
	for i, c := range cells {
		cells[i] = Stringify(c)
	}
	return record.New(s.header, cells), nil
}

// Close releases the row iterator.
func (s *SheetReader) Close() error { return s.rows.Close() }

// Count returns the number of data rows of sheet.
func (w *Workbook) Count(sheet string) (int, error) {
	s, err := w.Read(sheet)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	n := 0
	for {
		_, err := s.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

// Stringify renders a raw cell value. Numbers written with a fraction or an
// exponent that hold an integral value lose that notation ("3.0" and "3E0"
// become "3"); everything else, "007" included, is kept as stored.
func Stringify(v string) string {
	if !strings.ContainsAny(v, ".eE") {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return v
	}
	return strconv.FormatInt(int64(f), 10)
}
