package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sweep/internal/sweep"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a sweep was aborted: rejected submission or interrupt
	ExitCommandError = 2 // nothing was submitted: bad flags, config, sweep or ledger
)

// Codes reported in JSON output for failures that carry no sweep.ErrorCode.
const (
	ErrCodeGeneric = "ERROR"
	ErrCodeLedger  = "LEDGER"
)

// ExitError carries the process exit code for a failed command. Commands
// report the error themselves before returning it.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code for err: ExitSuccess for nil, the
// wrapped ExitError's code if there is one, ExitFailure otherwise.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor classifies a sweep error. Configuration, collision and chain
// errors stop the sweep before the failing point is submitted.
func exitCodeFor(err error) int {
	if sweep.IsConfigurationError(err) || sweep.IsChainArtifactError(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// errorCodeFor returns the code reported for err in JSON output.
func errorCodeFor(err error) string {
	var se *sweep.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return ErrCodeGeneric
}

// CLIResponse is the envelope of every JSON document a command prints.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failure in JSON output.
type CLIError struct {
	Code    string `json:"code"` // sweep.ErrorCode, ERROR or LEDGER
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as one JSON document.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	// ErrWriter receives diagnostics so they never mix with JSON on Writer.
	// Defaults to Writer.
	ErrWriter io.Writer
}

// Success prints data. Text output uses data's default formatting.
func (f *OutputFormatter) Success(data any) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.encode(CLIResponse{Status: "ok", Data: data})
}

// Error prints a failure. In text mode details are shown only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line to ErrWriter when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, falling back to Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// encode writes v as JSON. Command lines keep shell characters unescaped.
func (f *OutputFormatter) encode(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
