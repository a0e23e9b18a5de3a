package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dataunifier/internal/metrics"
	"dataunifier/internal/record"
)

// Sink batches unified rows into a Repository. It satisfies the row writer
// used by the execution engine; Close flushes the last partial batch.
type Sink struct {
	ctx     context.Context
	repo    Repository
	columns []string
	size    int
	batch   [][]any
	job     string
	logger  *slog.Logger

	// Written counts rows the repository acknowledged.
	Written int64
	batches int64
	start   time.Time
}

// NewSink returns a Sink writing columns in batches of size. ctx bounds every
// CopyFrom call the sink makes.
func NewSink(ctx context.Context, repo Repository, columns []string, size int, job string, logger *slog.Logger) (*Sink, error) {
	if size <= 0 {
		return nil, fmt.Errorf("storage: batch size must be > 0")
	}
	if repo == nil {
		return nil, fmt.Errorf("storage: repository must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		ctx:     ctx,
		repo:    repo,
		columns: columns,
		size:    size,
		batch:   make([][]any, 0, size),
		job:     job,
		logger:  logger,
		start:   time.Now(),
	}, nil
}

// Write queues r and flushes when the batch is full. Fields of r outside the
// sink's columns are ignored; missing ones are empty strings.
func (s *Sink) Write(r record.Row) error {
	vals := make([]any, len(s.columns))
	for i, c := range s.columns {
		vals[i] = r.Value(c)
	}
	s.batch = append(s.batch, vals)
	if len(s.batch) >= s.size {
		return s.Flush()
	}
	return nil
}

// Flush writes the queued rows, if any.
func (s *Sink) Flush() error {
	if len(s.batch) == 0 {
		return nil
	}
	n, err := s.repo.CopyFrom(s.ctx, s.columns, s.batch)
	s.Written += n
	s.batch = s.batch[:0]
	if err != nil {
		s.logger.Error("batch insert failed", "inserted", n, "total", s.Written, "err", err)
		return fmt.Errorf("storage: copy batch: %w", err)
	}
	s.batches++
	metrics.RecordBatches(s.job, 1)

	elapsed := time.Since(s.start)
	rps := float64(0)
	if elapsed > 0 {
		rps = float64(s.Written) / elapsed.Seconds()
	}
	s.logger.Debug("batch inserted", "batch", s.batches, "inserted", n, "total", s.Written, "rps", int64(rps))
	return nil
}

// Close flushes the remaining rows.
func (s *Sink) Close() error { return s.Flush() }
