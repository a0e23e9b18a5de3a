package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"dataunifier/internal/record"
)

// Writer writes unified rows under a fixed header.
type Writer struct {
	cw     *csv.Writer
	fields []string
	index  map[string]int
	buf    []string
}

// NewWriter writes the header line to w and returns a Writer for rows with
// those fields.
func NewWriter(w io.Writer, fields []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f] = i
	}
	return &Writer{cw: cw, fields: fields, index: index, buf: make([]string, len(fields))}, nil
}

// Write writes r in header order. Fields r lacks are written empty; a field
// outside the header is an error, so no value is ever dropped silently.
func (w *Writer) Write(r record.Row) error {
	for i := range w.buf {
		w.buf[i] = ""
	}
	var extra []string
	r.Each(func(k, v string) {
		i, ok := w.index[k]
		if !ok {
			extra = append(extra, k)
			return
		}
		w.buf[i] = v
	})
	if len(extra) > 0 {
		return fmt.Errorf(`csv: row contains fields not in the output header: "%s"`, strings.Join(extra, `", "`))
	}
	if err := w.cw.Write(w.buf); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}
