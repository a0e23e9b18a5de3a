// Command dataunifier merges heterogeneous CSV and Excel inputs into one
// CSV file (and optionally a database table) as described by a YAML
// pipeline file.
//
// Usage:
//
//	dataunifier [flags] <pipeline.yaml>
//
// Exit status is 0 on success, 1 when the configuration, an input file or a
// row transformation fails, and 2 on command-line misuse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"dataunifier/internal/errs"
	"dataunifier/internal/etl"
	"dataunifier/internal/logging"
	"dataunifier/internal/metrics"
	"dataunifier/internal/metrics/datadog"
	"dataunifier/internal/metrics/prompush"

	// register all backends with the storage factory; the pipeline file
	// picks one.
	_ "dataunifier/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// cliFlags holds the parsed command line.
type cliFlags struct {
	config         string
	inputDir       string
	output         string
	force          bool
	validate       bool
	logLevel       string
	logFormat      string
	verbose        bool
	metricsBackend string
	pushgatewayURL string
	ddAddr         string
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("dataunifier", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "pipeline YAML path (or pass it as the only argument)")
	fs.StringVar(&f.inputDir, "input-dir", etl.DefaultInputDir, "directory holding the input files; %INPUT_DIR% expands to it")
	fs.StringVar(&f.output, "output", etl.DefaultOutputPath, "unified CSV output path")
	fs.BoolVar(&f.force, "force", false, "overwrite the output file if it exists")
	fs.BoolVar(&f.validate, "validate", false, "load and assemble the pipeline, then exit")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text, json")
	fs.BoolVar(&f.verbose, "v", false, "verbose logs (same as -log-level=debug)")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&f.ddAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: dataunifier [flags] <pipeline.yaml>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	switch rest := fs.Args(); {
	case len(rest) > 1:
		fs.Usage()
		return f, errs.CommandLinef("Incorrect number of arguments.")
	case len(rest) == 1 && f.config != "" && rest[0] != f.config:
		return f, errs.CommandLinef(`Both -config "%s" and argument "%s" name a configuration file.`, f.config, rest[0])
	case len(rest) == 1:
		f.config = rest[0]
	}
	if f.config == "" {
		fs.Usage()
		return f, errs.CommandLinef("Incorrect number of arguments.")
	}
	if f.verbose {
		f.logLevel = "debug"
	}
	f.metricsBackend = firstNonEmpty(f.metricsBackend, os.Getenv("METRICS_BACKEND"), "none")
	f.pushgatewayURL = firstNonEmpty(f.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
	f.ddAddr = firstNonEmpty(f.ddAddr, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
	return f, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// run is main without the process exit, returning the exit status.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger := logging.SetupTo(stderr, f.logLevel, f.logFormat)
	runID := uuid.NewString()
	flush := setupMetrics(f, runID, logger)
	defer flush()

	_, err = etl.Run(ctx, etl.Options{
		ConfigPath:   f.config,
		InputDir:     f.inputDir,
		OutputPath:   f.output,
		Force:        f.force,
		ValidateOnly: f.validate,
		Job:          prompush.DefaultJob,
		RunID:        runID,
		Logger:       logger,
	})
	return exitCode(err, logger)
}

func exitCode(err error, logger *slog.Logger) int {
	if err == nil {
		return 0
	}
	var cle *errs.CommandLineError
	if errors.As(err, &cle) {
		logger.Error(cle.Msg)
		return 2
	}
	if errors.Is(err, context.Canceled) {
		logger.Error("ABORTED.")
		return 1
	}
	logger.Error(err.Error())
	return 1
}

// setupMetrics installs the selected backend and returns its flush.
// Failing to set up metrics never fails the run.
func setupMetrics(f cliFlags, runID string, logger *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch f.metricsBackend {
	case "", "none":
		logger.Debug("metrics: disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(prompush.DefaultJob, runID, f.pushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: f.ddAddr, GlobalTags: []string{"run_id:" + runID}})
	default:
		logger.Warn("metrics: unknown backend; metrics disabled", "backend", f.metricsBackend)
		return func() {}
	}
	if err != nil {
		logger.Warn("metrics: backend init failed; metrics disabled", "backend", f.metricsBackend, "err", err)
		return func() {}
	}
	metrics.SetBackend(b)
	logger.Debug("metrics: enabled", "backend", f.metricsBackend)
	return func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics: flush failed", "err", err)
		}
	}
}
