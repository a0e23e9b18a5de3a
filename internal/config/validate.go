// Package config provides configuration models and helpers for dataunifier
// pipelines.
//
// This file adds a lightweight linter for a loaded Config. It performs static
// checks that Load does not (pattern compilation, duplicate names, sink
// settings) and returns a list of issues (errors and warnings) that callers
// can surface in a CLI or tests. Task-level checks happen during pipeline
// assembly, which is where the field-flow information lives.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "output.kind",
// "filesets.0.input_files.1.regex.0"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// KnownOutputKinds lists the database sinks shipped with dataunifier.
var KnownOutputKinds = []string{"postgres", "sqlite", "mssql", "mysql"}

// Validate performs static validation / linting of a Config.
//
// It does not mutate the config. Callers decide whether warnings are fatal.
//
// Example:
//
//	cfg, err := config.Load(path, inputDir)
//	if err != nil { ... }
//	for _, iss := range config.Validate(cfg) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func Validate(c *Config) []Issue {
	var issues []Issue
	if c == nil {
		return []Issue{{Severity: SeverityError, Path: "", Message: "configuration is nil"}}
	}

	issues = append(issues, validateFilesets(c.Filesets)...)
	if c.Output != nil {
		issues = append(issues, validateOutput(*c.Output)...)
	}
	return issues
}

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateFilesets(fsets []Fileset) []Issue {
	var issues []Issue

	seen := map[string]int{}
	for i, f := range fsets {
		base := fmt.Sprintf("filesets.%d", i)
		if strings.TrimSpace(f.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  "fileset name must not be empty",
			})
		} else if prev, dup := seen[f.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("duplicate fileset name %q (first declared at filesets.%d)", f.Name, prev),
			})
		} else {
			seen[f.Name] = i
		}

		if len(f.InputFiles) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".input_files",
				Message:  "no input files configured; the fileset contributes fields but no rows",
			})
		}
		for j, in := range f.InputFiles {
			issues = append(issues, validateInputFile(fmt.Sprintf("%s.input_files.%d", base, j), in)...)
		}
	}
	return issues
}

func validateInputFile(path string, in InputFile) []Issue {
	var issues []Issue

	for k, re := range in.Regex {
		if _, err := regexp.Compile(re); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s.regex.%d", path, k),
				Message:  fmt.Sprintf("invalid file name pattern %q: %v", re, err),
			})
		}
	}
	for s, sh := range in.Sheets {
		for k, re := range sh.Regex {
			if _, err := regexp.Compile(re); err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s.sheets.%d.regex.%d", path, s, k),
					Message:  fmt.Sprintf("invalid sheet name pattern %q: %v", re, err),
				})
			}
		}
	}
	if in.Encoding != "" {
		if _, err := htmlindex.Get(in.Encoding); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".encoding",
				Message:  fmt.Sprintf("unknown text encoding %q", in.Encoding),
			})
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(o.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  "output.kind must not be empty",
		})
	} else {
		known := false
		for _, k := range KnownOutputKinds {
			if k == o.Kind {
				known = true
				break
			}
		}
		if !known {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "output.kind",
				Message:  fmt.Sprintf("unknown output kind %q; ensure a matching backend is registered", o.Kind),
			})
		}
	}
	if strings.TrimSpace(o.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dsn",
			Message:  "output.dsn must not be empty",
		})
	}
	if strings.TrimSpace(o.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.table",
			Message:  "output.table must not be empty",
		})
	}
	if o.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; non-positive batch sizes fall back to %d", o.BatchSize, DefaultBatchSize),
		})
	}
	return issues
}
