package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/translate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected query, failed post-import run
	ExitCommandError = 2 // Command error (bad config, database unreachable, missing file)
)

// Error codes for CLI responses. Query failures use the query error code
// (SCHEMA_VALIDATION, INVALID_CONDITION, ...) instead.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeConfig     = "E002" // Config could not be loaded
	ErrCodeDatabase   = "E003" // Database could not be opened
	ErrCodeInput      = "E004" // Unreadable input
	ErrCodeNotFound   = "E005" // Table or result not found
	ErrCodeImport     = "E010" // Import failed
	ErrCodePostImport = "E011" // Post-import run failed
	ErrCodeDictionary = "E020" // Dictionary invalid
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "INVALID_CONDITION", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// TextRenderer is implemented by payloads with their own text form.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if r, ok := data.(TextRenderer); ok {
		return r.RenderText(f.Writer)
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail writes err and returns the ExitError the command should return.
// Query errors keep their own code; validation failures exit with
// ExitFailure, storage failures with ExitCommandError.
func (f *OutputFormatter) Fail(code string, exitCode int, message string, err error) error {
	var qe *translate.QueryError
	if errors.As(err, &qe) {
		var details any
		if len(qe.Details) > 0 {
			details = qe.Details
		}
		if err := f.Error(string(qe.Code), qe.Message, details); err != nil {
			return err
		}
		if qe.IsValidation() {
			return WrapExitError(ExitFailure, message, err)
		}
		return WrapExitError(ExitCommandError, message, err)
	}

	var details any
	if hint := errors.FlattenHints(err); hint != "" {
		details = map[string]string{"hint": hint}
	}
	if writeErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); writeErr != nil {
		return writeErr
	}
	return WrapExitError(exitCode, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
