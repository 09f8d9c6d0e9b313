package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Sync failures, failed scenarios, unresolved conflict
	ExitCommandError = 2 // Command error (bad arguments, unreadable config, API not configured)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional
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
	ErrWriter io.Writer // verbose/diagnostic output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"` // E_SYNC_FAILED, E_CONFLICT, ...
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs data. In text mode data is printed with fmt.Println, so
// it should implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	st := stylesFor(f.Writer)
	fmt.Fprintf(f.Writer, "%s %s\n", st.bad(fmt.Sprintf("Error [%s]:", code)), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled. It writes
// to ErrWriter when set so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Color palette
var (
	accentColor = lipgloss.Color("#E5A00D")
	dimColor    = lipgloss.Color("#6B7280")
	goodColor   = lipgloss.Color("#10B981")
	badColor    = lipgloss.Color("#EF4444")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dimColor)
	goodStyle  = lipgloss.NewStyle().Foreground(goodColor)
	badStyle   = lipgloss.NewStyle().Foreground(badColor).Bold(true)
	labelStyle = lipgloss.NewStyle().Width(14)
	warnBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
)

// styles renders text through lipgloss only when writing to a terminal.
type styles struct {
	color bool
}

type fdWriter interface {
	Fd() uintptr
}

func stylesFor(w io.Writer) styles {
	f, ok := w.(fdWriter)
	return styles{color: ok && term.IsTerminal(int(f.Fd()))}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

func (s styles) title(text string) string { return s.render(titleStyle, text) }
func (s styles) dim(text string) string   { return s.render(dimStyle, text) }
func (s styles) good(text string) string  { return s.render(goodStyle, text) }
func (s styles) bad(text string) string   { return s.render(badStyle, text) }

// field renders "label value" with the label padded to a fixed column.
func (s styles) field(label, value string) string {
	if !s.color {
		return fmt.Sprintf("%-14s%s", label, value)
	}
	return labelStyle.Render(label) + value
}

// box frames text; plain output gets no frame.
func (s styles) box(text string) string {
	if !s.color {
		return text
	}
	return warnBorder.Render(text)
}
