package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/parser/csv"
	"dataunifier/internal/record"
	"dataunifier/internal/storage"
)

// outputs fans every surviving row out to the CSV file and, when an output
// block is configured, to the database sink.
type outputs struct {
	file *os.File
	csv  *csv.Writer
	sink *storage.Sink
	repo storage.Repository
}

func openOutputs(ctx context.Context, opt Options, db *config.Output, fields []string, logger *slog.Logger) (*outputs, error) {
	f, err := os.Create(opt.OutputPath)
	if err != nil {
		return nil, errs.CommandLinef(`Could not create output file "%s": %v`, opt.OutputPath, err)
	}
	w, err := csv.NewWriter(f, fields)
	if err != nil {
		f.Close()
		return nil, err
	}
	o := &outputs{file: f, csv: w}
	if db == nil {
		return o, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: db.Kind, DSN: db.DSN, Table: db.Table})
	if err != nil {
		o.Close()
		return nil, fmt.Errorf("open %s output: %w", db.Kind, err)
	}
	o.repo = repo
	if db.AutoCreateTable {
		if err := storage.EnsureTable(ctx, db.Kind, repo, db.Table, fields); err != nil {
			o.Close()
			return nil, err
		}
	}
	o.sink, err = storage.NewSink(ctx, repo, fields, db.BatchSize, opt.Job, logger)
	if err != nil {
		o.Close()
		return nil, err
	}
	logger.Info("writing to database", "kind", db.Kind, "table", db.Table, "batch_size", db.BatchSize)
	return o, nil
}

func (o *outputs) Write(r record.Row) error {
	if err := o.csv.Write(r); err != nil {
		return err
	}
	if o.sink != nil {
		return o.sink.Write(r)
	}
	return nil
}

// Close flushes both outputs. Rows written before a failed run stay
// written.
func (o *outputs) Close() error {
	var errList []error
	if o.csv != nil {
		errList = append(errList, o.csv.Flush())
	}
	if o.sink != nil {
		errList = append(errList, o.sink.Close())
	}
	if o.repo != nil {
		o.repo.Close()
	}
	errList = append(errList, o.file.Close())
	return errors.Join(errList...)
}

func (o *outputs) dbRows() int64 {
	if o.sink == nil {
		return 0
	}
	return o.sink.Written
}
