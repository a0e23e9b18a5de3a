package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"dataunifier/internal/errs"
	"dataunifier/internal/metrics"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// RowReader yields input rows in order. Next returns io.EOF after the last
// row.
type RowReader interface {
	Next() (record.Row, error)
}

// RowWriter receives every surviving row in order.
type RowWriter interface {
	Write(r record.Row) error
}

// Stats counts what happened to the rows of one source.
type Stats struct {
	Read      int64
	Written   int64
	Discarded int64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Read += o.Read
	s.Written += o.Written
	s.Discarded += o.Discarded
}

// Engine applies one fileset's chain to rows and hands the survivors to Out.
type Engine struct {
	Chain transformer.Chain
	Out   RowWriter
	// Job labels the row counters.
	Job    string
	Logger *slog.Logger
}

// Row cleans r and runs it through the chain. A discarded row yields
// errs.ErrDiscardRecord; a row a task cannot process yields a
// *errs.ParsingError at pos.
func (e *Engine) Row(pos errs.Position, r record.Row) (record.Row, error) {
	out, err := e.Chain.Apply(Clean(r))
	if err == nil || errors.Is(err, errs.ErrDiscardRecord) {
		return out, err
	}
	var te *transformer.TaskError
	if errors.As(err, &te) {
		return out, &errs.ParsingError{Task: te.Task, Pos: pos, Err: te.Err}
	}
	return out, err
}

// Run reads rows until io.EOF and writes each surviving row. Rows are
// numbered from 1 for diagnostics. The first parsing, read or write error
// stops the run; rows written before it stay written.
func (e *Engine) Run(ctx context.Context, file, sheet string, rows RowReader) (Stats, error) {
	var st Stats
	start := time.Now()
	defer func() {
		metrics.RecordRow(e.Job, metrics.RowsRead, st.Read)
		metrics.RecordRow(e.Job, metrics.RowsWritten, st.Written)
		metrics.RecordRow(e.Job, metrics.RowsDiscarded, st.Discarded)
	}()

	pos := errs.Position{File: file, Sheet: sheet}
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		in, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, err
		}
		st.Read++
		pos.Row++

		out, err := e.Row(pos, in)
		switch {
		case errors.Is(err, errs.ErrDiscardRecord):
			st.Discarded++
			continue
		case err != nil:
			return st, err
		}
		if err := e.Out.Write(out); err != nil {
			return st, err
		}
		st.Written++
	}

	e.log().Debug("source done",
		"file", file, "sheet", sheet,
		"read", st.Read, "written", st.Written, "discarded", st.Discarded,
		"elapsed", time.Since(start))
	return st, nil
}

func (e *Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
