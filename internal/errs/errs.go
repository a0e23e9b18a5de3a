// Package errs holds the error taxonomy shared by the dataunifier packages.
//
// The kinds map onto the three outcomes a run can have:
//
//   - ConfigError: the declarative pipeline is malformed or contradictory.
//     Raised while building, before any row is read.
//   - TransformationError: a row violates what a task expects. It is wrapped
//     in a ParsingError carrying the file/sheet/row/task position and aborts
//     the run.
//   - ErrDiscardRecord: not an error, a signal that drops one row.
//
// InputFileError and CommandLineError belong to the collaborators around the
// engine (file discovery and the CLI). NoSuchKindError never leaves the
// builders; they translate it into a ConfigError.
package errs

import (
	"errors"
	"fmt"
)

// ErrDiscardRecord tells the engine to drop the current row and continue.
var ErrDiscardRecord = errors.New("discard record")

// ConfigError reports an invalid pipeline specification.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return e.Msg }

// Configf builds a ConfigError.
func Configf(format string, a ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, a...)}
}

// TransformationError reports row data a task cannot process.
type TransformationError struct{ Msg string }

func (e *TransformationError) Error() string { return e.Msg }

// Transformf builds a TransformationError.
func Transformf(format string, a ...any) error {
	return &TransformationError{Msg: fmt.Sprintf(format, a...)}
}

// MissingField is the TransformationError raised when a row lacks a field a
// task or predicate dereferences.
func MissingField(field string) error {
	return Transformf(`Could not find field "%s".`, field)
}

// InputFileError reports an input file that cannot be located or read.
type InputFileError struct{ Msg string }

func (e *InputFileError) Error() string { return e.Msg }

// Inputf builds an InputFileError.
func Inputf(format string, a ...any) error {
	return &InputFileError{Msg: fmt.Sprintf(format, a...)}
}

// CommandLineError reports invalid command-line arguments.
type CommandLineError struct{ Msg string }

func (e *CommandLineError) Error() string { return e.Msg }

// CommandLinef builds a CommandLineError.
func CommandLinef(format string, a ...any) error {
	return &CommandLineError{Msg: fmt.Sprintf(format, a...)}
}

// NoSuchKindError is returned by the task and predicate registries for an
// unregistered kind.
type NoSuchKindError struct{ Kind string }

func (e *NoSuchKindError) Error() string { return fmt.Sprintf(`no such kind "%s"`, e.Kind) }

// Position locates a row for diagnostics.
type Position struct {
	File  string
	Sheet string // empty for CSV input
	Row   int    // 1-based, first data row is 1
}

// ParsingError wraps a TransformationError with the row position and the
// task that raised it.
type ParsingError struct {
	Task string
	Pos  Position
	Err  error
}

func (e *ParsingError) Error() string {
	if e.Pos.Sheet != "" {
		return fmt.Sprintf(`When executing task "%s" on row %d of file "%s", sheet "%s": %s`,
			e.Task, e.Pos.Row, e.Pos.File, e.Pos.Sheet, e.Err)
	}
	return fmt.Sprintf(`When executing task "%s" on row %d of file "%s": %s`,
		e.Task, e.Pos.Row, e.Pos.File, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransformation reports whether err is or wraps a TransformationError.
func IsTransformation(err error) bool {
	var te *TransformationError
	return errors.As(err, &te)
}
