package etl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"dataunifier/internal/config"
	"dataunifier/internal/datasource"
	"dataunifier/internal/datasource/file"
	"dataunifier/internal/parser/csv"
	"dataunifier/internal/parser/excel"
	"dataunifier/internal/pipeline"
)

// csvSource opens the bytes of a CSV input.
var csvSource = func(path string) datasource.Source { return file.NewLocal(path) }

// source is one stream of rows: a CSV file, or one sheet of a workbook.
type source struct {
	fileset int
	input   config.InputFile
	path    string
	format  file.Format
	sheet   string
	// rows is the number of data rows found during preflight.
	rows int
}

// resolveSources lists every source of cfg in processing order and counts
// their rows, at most limit sources at a time. Any missing file or sheet,
// unsupported format or unreadable file fails the whole preflight.
func resolveSources(ctx context.Context, cfg *config.Config, inputDir string, limit int, logger *slog.Logger) ([]source, error) {
	var srcs []source
	for fi, set := range cfg.Filesets {
		for _, in := range set.InputFiles {
			paths, pattern, err := file.Resolve(inputDir, in)
			if err != nil {
				return nil, err
			}
			if len(paths) > 1 {
				names := make([]string, len(paths))
				for i, p := range paths {
					names[i] = filepath.Base(p)
				}
				logger.Warn(fmt.Sprintf(`Found more than one file whose name matches regex "%s" in input directory "%s": "%s" (Input File "%s")`,
					pattern, inputDir, strings.Join(names, `", "`), in.Name))
			}
			for _, path := range paths {
				found, err := sourcesOf(fi, in, path)
				if err != nil {
					return nil, err
				}
				srcs = append(srcs, found...)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := srcs[i].count()
			srcs[i].rows = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return srcs, nil
}

func sourcesOf(fileset int, in config.InputFile, path string) ([]source, error) {
	format, err := file.FormatOf(path, in.Name)
	if err != nil {
		return nil, err
	}
	base := source{fileset: fileset, input: in, path: path, format: format}
	if format == file.CSV {
		return []source{base}, nil
	}

	wb, err := excel.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	sheets, err := wb.Select(in.Sheets, in.Name)
	if err != nil {
		return nil, err
	}
	out := make([]source, len(sheets))
	for i, sh := range sheets {
		out[i] = base
		out[i].sheet = sh
	}
	return out, nil
}

func (s source) csvOptions() csv.Options { return csv.Options{Encoding: s.input.Encoding} }

func (s source) count() (int, error) {
	if s.format == file.CSV {
		return csv.CountRows(s.path, s.csvOptions())
	}
	wb, err := excel.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()
	return wb.Count(s.sheet)
}

// run streams the source through eng.
func (s source) run(ctx context.Context, eng *pipeline.Engine, logger *slog.Logger) (pipeline.Stats, error) {
	if s.sheet != "" {
		logger.Info(fmt.Sprintf(`Parsing file "%s", sheet "%s"...`, s.path, s.sheet), "rows", s.rows)
	} else {
		logger.Info(fmt.Sprintf(`Parsing file "%s"...`, s.path), "rows", s.rows)
	}

	if s.format == file.CSV {
		rc, err := csvSource(s.path).Open(ctx)
		if err != nil {
			return pipeline.Stats{}, err
		}
		defer rc.Close()
		r, err := csv.NewReader(rc, s.path, s.csvOptions())
		if err != nil {
			return pipeline.Stats{}, err
		}
		return eng.Run(ctx, s.path, "", r)
	}

	wb, err := excel.Open(s.path)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer wb.Close()
	sr, err := wb.Read(s.sheet)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer sr.Close()
	return eng.Run(ctx, s.path, s.sheet, sr)
}
