// Package etl runs a dataunifier pipeline end to end.
//
// A run has four steps, each timed and counted through internal/metrics:
//
//  1. config     load the pipeline file and lint it
//  2. assemble   build every fileset's task chain and agree on the fields
//  3. preflight  resolve every input file and sheet and count their rows
//  4. fileset    stream the rows of one fileset into the outputs (per fileset)
//
// Nothing is written before the first three steps succeed. Rows are then
// processed strictly in order: filesets in declaration order, input files in
// declaration order, matched files by name, sheets in selection order.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/lookup"
	"dataunifier/internal/metrics"
	"dataunifier/internal/pipeline"
	"dataunifier/internal/transformer"
	_ "dataunifier/internal/transformer/builtin"
)

// Defaults for Options.
const (
	DefaultInputDir   = "."
	DefaultOutputPath = "output.csv"
	DefaultJob        = "dataunifier"
	DefaultPreflight  = 4
)

// Options configures a run.
type Options struct {
	ConfigPath string
	// InputDir holds the input files; %INPUT_DIR% expands to it.
	InputDir string
	// OutputPath is the unified CSV. It must not exist unless Force is set.
	OutputPath string
	Force      bool
	// ValidateOnly stops after assembly; nothing is read or written.
	ValidateOnly bool
	// Preflight bounds concurrent row counting.
	Preflight int
	// Job labels metrics.
	Job    string
	RunID  string
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.InputDir == "" {
		o.InputDir = DefaultInputDir
	}
	o.InputDir = strings.TrimRight(o.InputDir, `/\`)
	if o.InputDir == "" {
		o.InputDir = "/"
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	if o.Preflight <= 0 {
		o.Preflight = DefaultPreflight
	}
	if o.Job == "" {
		o.Job = DefaultJob
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID string
	// Fields is the output header.
	Fields  []string
	Sources int
	Stats   pipeline.Stats
	// DBRows counts rows the database sink acknowledged.
	DBRows  int64
	Elapsed time.Duration
}

// Run executes the pipeline described by opt.
func Run(ctx context.Context, opt Options) (*Summary, error) {
	opt.defaults()
	start := time.Now()
	logger := opt.Logger.With("run_id", opt.RunID)
	sum := &Summary{RunID: opt.RunID}

	if err := checkPaths(opt, logger); err != nil {
		return sum, err
	}
	logger.Info(fmt.Sprintf(`Using configuration file "%s".`, opt.ConfigPath))

	var cfg *config.Config
	err := metrics.Step(opt.Job, "config", func() error {
		var err error
		cfg, err = loadConfig(opt, logger)
		return err
	})
	if err != nil {
		return sum, err
	}

	var p *pipeline.Pipeline
	err = metrics.Step(opt.Job, "assemble", func() error {
		b := &transformer.Builder{Tables: lookup.NewLoader(opt.InputDir, logger), Logger: logger}
		var err error
		p, err = pipeline.Assemble(cfg, b)
		return err
	})
	if err != nil {
		return sum, err
	}
	sum.Fields = p.Fields
	if opt.ValidateOnly {
		logger.Info("Configuration is valid.", "filesets", len(p.Filesets), "fields", len(p.Fields))
		sum.Elapsed = time.Since(start)
		return sum, nil
	}

	var srcs []source
	err = metrics.Step(opt.Job, "preflight", func() error {
		var err error
		srcs, err = resolveSources(ctx, cfg, opt.InputDir, opt.Preflight, logger)
		return err
	})
	if err != nil {
		return sum, err
	}
	sum.Sources = len(srcs)

	out, err := openOutputs(ctx, opt, cfg.Output, p.Fields, logger)
	if err != nil {
		return sum, err
	}
	runErr := process(ctx, opt, p, srcs, out, sum, logger)
	closeErr := out.Close()
	sum.DBRows = out.dbRows()
	sum.Elapsed = time.Since(start)
	if runErr != nil {
		return sum, runErr
	}
	if closeErr != nil {
		return sum, closeErr
	}

	logger.Info(fmt.Sprintf("Done. Took %.2f seconds.", sum.Elapsed.Seconds()),
		"sources", sum.Sources,
		"read", humanize.Comma(sum.Stats.Read),
		"written", humanize.Comma(sum.Stats.Written),
		"discarded", humanize.Comma(sum.Stats.Discarded),
		"output", opt.OutputPath)
	return sum, nil
}

// checkPaths validates the command-line paths the way the run will use
// them: input directory, then output file, then configuration file.
func checkPaths(opt Options, logger *slog.Logger) error {
	if st, err := os.Stat(opt.InputDir); err != nil || !st.IsDir() {
		return errs.CommandLinef(`Could not find input directory "%s".`, opt.InputDir)
	}
	if !opt.ValidateOnly {
		if err := checkOutputPath(opt.OutputPath, opt.Force, logger); err != nil {
			return err
		}
	}
	if st, err := os.Stat(opt.ConfigPath); err != nil || st.IsDir() {
		return errs.CommandLinef(`Could not find configuration file "%s".`, opt.ConfigPath)
	}
	return nil
}

func checkOutputPath(path string, force bool, logger *slog.Logger) error {
	dir := filepath.Dir(path)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return errs.CommandLinef(`Directory for output file "%s" does not exist.`, dir)
	}
	st, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return errs.CommandLinef(`Could not inspect output file "%s": %v`, path, err)
	case st.IsDir():
		return errs.CommandLinef(`Output file "%s" is a directory.`, path)
	case !force:
		return errs.CommandLinef(`Output file "%s" already exists. Set -force to overwrite it.`, path)
	}
	logger.Warn(fmt.Sprintf(`The "force" flag has been set. Forcefully overwriting "%s".`, path))
	return nil
}

// loadConfig loads and lints the pipeline file. Lint warnings are logged;
// lint errors fail the run as one ConfigError.
func loadConfig(opt Options, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(opt.ConfigPath, opt.InputDir)
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, iss := range config.Validate(cfg) {
		if iss.Severity == config.SeverityError {
			problems = append(problems, iss.Error())
			continue
		}
		logger.Warn(iss.Message, "path", iss.Path)
	}
	if len(problems) > 0 {
		return nil, errs.Configf("Configuration file \"%s\" is invalid:\n%s", opt.ConfigPath, strings.Join(problems, "\n"))
	}
	return cfg, nil
}

// process streams every source of every fileset into out.
func process(ctx context.Context, opt Options, p *pipeline.Pipeline, srcs []source, out pipeline.RowWriter, sum *Summary, logger *slog.Logger) error {
	for fi, set := range p.Filesets {
		err := metrics.Step(opt.Job, "fileset", func() error {
			logger.Info(fmt.Sprintf("Handling fileset: %s", set.Name))
			eng := &pipeline.Engine{Chain: set.Chain, Out: out, Job: opt.Job, Logger: logger}
			for _, src := range srcs {
				if src.fileset != fi {
					continue
				}
				st, err := src.run(ctx, eng, logger)
				sum.Stats.Add(st)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
