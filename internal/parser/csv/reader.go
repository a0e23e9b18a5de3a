// Package csv reads input CSV files as rows keyed by their header and writes
// the unified output file.
//
// The reader streams: it never buffers a whole file, so inputs of any size
// are processed in constant memory. Non-UTF-8 files are decoded on the fly
// when the input file declares an encoding.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
)

// Options configures a Reader. The zero value reads comma-separated UTF-8.
type Options struct {
	// Encoding is a WHATWG encoding label (e.g. "windows-1250", "latin1").
	// Empty means UTF-8.
	Encoding string
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune
}

// Reader yields the data rows of one CSV file.
type Reader struct {
	path   string
	cr     *csv.Reader
	closer io.Closer
	header []string
	line   int
}

// Open opens the file at path and reads its header.
func Open(path string, opt Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Inputf(`Could not open file "%s": %v`, path, err)
	}
	r, err := NewReader(f, path, opt)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from src. path only names the source in
// errors.
func NewReader(src io.Reader, path string, opt Options) (*Reader, error) {
	in, err := decoder(src, opt.Encoding)
	if err != nil {
		return nil, errs.Inputf(`Unsupported encoding "%s" for file "%s".`, opt.Encoding, path)
	}
	cr := csv.NewReader(in)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	r := &Reader{path: path, cr: cr}
	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return r, nil
	}
	if err != nil {
		return nil, r.readErr(err)
	}
	r.header = StripHeaderBOM(append([]string(nil), hdr...))
	return r, nil
}

func decoder(src io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return src, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(src, enc.NewDecoder()), nil
}

// Header returns the field names of the file, or nil for an empty file.
func (r *Reader) Header() []string { return r.header }

// Next returns the next data row, or io.EOF. Short records get empty values
// for their missing fields; a record longer than the header is an error.
func (r *Reader) Next() (record.Row, error) {
	if r.header == nil {
		return record.Row{}, io.EOF
	}
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record.Row{}, io.EOF
		}
		return record.Row{}, r.readErr(err)
	}
	r.line++
	if len(rec) > len(r.header) {
		return record.Row{}, errs.Inputf(`Row %d of file "%s" has %d values, but the header only names %d fields.`,
			r.line, r.path, len(rec), len(r.header))
	}
	return record.New(r.header, rec), nil
}

// Close releases the underlying file, if Open created it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) readErr(err error) error {
	return errs.Inputf(`Could not read CSV file "%s": %v`, r.path, err)
}

// CountRows returns the number of data rows in the file at path.
func CountRows(path string, opt Options) (int, error) {
	r, err := Open(path, opt)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	n := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("csv: count rows: %w", err)
		}
		n++
	}
}
