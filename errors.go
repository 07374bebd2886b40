package smf

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by smf operations
var (
	// ErrManifestInvalid indicates the rendered manifest failed svccfg validation
	ErrManifestInvalid = errors.New("smf: manifest invalid")

	// ErrPidUnavailable indicates the service is not running or svcs -p output was unusable
	ErrPidUnavailable = errors.New("smf: pid unavailable")

	// ErrInvalidSpec indicates a ServiceSpec or Config failed validation
	ErrInvalidSpec = errors.New("smf: invalid spec")

	// ErrUnsupportedPlatform indicates no registered provider supports the host
	ErrUnsupportedPlatform = errors.New("smf: unsupported platform")
)

// CommandError reports an external command that exited non-zero or could
// not be run at all (ExitCode -1).
type CommandError struct {
	// Command is the command line that failed
	Command Command
	// ExitCode is the process exit status
	ExitCode int
	// Stderr is the trimmed standard error output
	Stderr string
	// Err is the underlying error, if any
	Err error
}

// Error returns a formatted error message
func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "smf: command %q failed", e.Command.String())
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (stderr: %s)", e.Stderr)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *CommandError) Unwrap() error {
	return e.Err
}

// OpError represents a filesystem error on a manifest
type OpError struct {
	// Op is the operation that failed (stage, commit, remove, read)
	Op string
	// Path is the file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("smf %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// InvalidSpecError describes a single rejected field. It matches ErrInvalidSpec
// with errors.Is.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("smf: invalid spec: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidSpec
func (e *InvalidSpecError) Is(target error) bool {
	return target == ErrInvalidSpec
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
