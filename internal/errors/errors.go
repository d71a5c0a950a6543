package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid     ErrorCode = "CONFIG-001"
	ErrCodeConfigNotFound    ErrorCode = "CONFIG-002"
	ErrCodeConfigUnmarshal   ErrorCode = "CONFIG-003"
	ErrCodeConfigMissingFlag ErrorCode = "CONFIG-004"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecToolMissing  ErrorCode = "EXEC-001"
	ErrCodeExecStartFailed  ErrorCode = "EXEC-002"
	ErrCodeExecLogFailed    ErrorCode = "EXEC-003"
	ErrCodeExecInterrupted  ErrorCode = "EXEC-004"
	ErrCodeExecBuildDirFail ErrorCode = "EXEC-005"

	// Review system errors (REVIEW-001 to REVIEW-099)
	ErrCodeReviewAuth     ErrorCode = "REVIEW-001"
	ErrCodeReviewAPI      ErrorCode = "REVIEW-002"
	ErrCodeReviewNetwork  ErrorCode = "REVIEW-003"
	ErrCodeReviewResponse ErrorCode = "REVIEW-004"

	// Upload errors (UPLOAD-001 to UPLOAD-099)
	ErrCodeUploadFailed  ErrorCode = "UPLOAD-001"
	ErrCodeUploadNoMatch ErrorCode = "UPLOAD-002"

	// Report errors (REPORT-001 to REPORT-099)
	ErrCodeReportChecksFailed ErrorCode = "REPORT-001"
	ErrCodeReportMarkerAbsent ErrorCode = "REPORT-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
)

// ErrChecksFailed is returned by the run command when the verdict is red.
// It carries no further detail; the summary has already been printed.
var ErrChecksFailed = New(ErrCodeReportChecksFailed, "build completed with failures")

// PremergeError represents an enhanced error with code, suggestions, and documentation
type PremergeError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PremergeError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PremergeError) Unwrap() error {
	return e.Cause
}

// New creates a new PremergeError
func New(code ErrorCode, message string) *PremergeError {
	return &PremergeError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PremergeError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PremergeError {
	return &PremergeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PremergeError) WithSuggestion(suggestion string) *PremergeError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PremergeError) WithSuggestions(suggestions ...string) *PremergeError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PremergeError) WithDocs(url string) *PremergeError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first PremergeError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *PremergeError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a PremergeError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if pe, ok := err.(*PremergeError); ok && pe.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Common error constructors for frequently used errors

// NewToolMissingError creates an error for an external tool absent from PATH
func NewToolMissingError(tool string, cause error) *PremergeError {
	return Wrap(ErrCodeExecToolMissing, fmt.Sprintf("tool not found: %s", tool), cause).
		WithSuggestion(fmt.Sprintf("Install %s on the agent image", tool)).
		WithSuggestion("Check that the agent PATH includes the toolchain directory")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *PremergeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'premerge run --help' to see the supported flags").
		WithSuggestion("Check the environment variables exported by the CI agent")
}

// NewReviewAPIError creates an error for a Conduit call that returned an error payload
func NewReviewAPIError(method, code, info string) *PremergeError {
	return New(ErrCodeReviewAPI, fmt.Sprintf("conduit %s failed: %s %s", method, code, info)).
		WithSuggestion("Verify that CONDUIT_TOKEN is valid and has harbormaster access")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *PremergeError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *PremergeError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
