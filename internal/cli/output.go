package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cypher2sql/pkg/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The query could not be translated or verified
	ExitCommandError = 2 // Command error (bad flags, missing schema, unreadable store)
)

// Error codes for command errors. Translation failures use the errs.Code
// of the failure instead (e.g. UNKNOWN_LABEL).
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeConfig   = "E002" // Invalid configuration or flags
	ErrCodeSchema   = "E003" // Schema could not be loaded or is inconsistent
	ErrCodeInput    = "E004" // No query given or input unreadable
	ErrCodeNotFound = "E005" // Path or record not found
	ErrCodeStore    = "E006" // Cache or history store failure
	ErrCodeVerify   = "E007" // Generated SQL failed verification
)

// ExitError represents an error with a specific exit code.
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
// Returns ExitSuccess for nil and ExitFailure for errors that are not an ExitError.
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // translation trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001" or a translation code such as "UNKNOWN_LABEL"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text
// output prints data with fmt, so result types implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessTrace("", data)
}

// SuccessTrace is Success with a trace ID attached to JSON output.
func (f *OutputFormatter) SuccessTrace(traceID string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			TraceID: traceID,
		})
	}

	_, err := fmt.Fprintln(f.Writer, data)
	return err
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

// TranslationDetails is the error detail payload of a translation failure.
type TranslationDetails struct {
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

func (d TranslationDetails) String() string {
	s := fmt.Sprintf("subject=%q", d.Subject)
	if d.Reason != "" {
		s += fmt.Sprintf(" reason=%q", d.Reason)
	}
	if d.Index != nil {
		s += fmt.Sprintf(" index=%d", *d.Index)
	}
	return s
}

// TranslationFailure reports err and returns the ExitError the command
// should return. *errs.Error values are reported under their own code.
func (f *OutputFormatter) TranslationFailure(err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		if outErr := f.Error(ErrCodeGeneric, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "translation failed", err)
	}

	details := TranslationDetails{Subject: e.Subject, Reason: e.Reason}
	if e.Index >= 0 {
		idx := e.Index
		details.Index = &idx
	}
	if outErr := f.Error(string(e.Code), e.Error(), details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, string(e.Code), err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
