package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType int

const (
	ErrUnrecognizedLink ErrorType = iota
	ErrMissingID
	ErrAuthRequired
	ErrNotFound
	ErrUnparseable
	ErrAllMethodsFailed
	ErrCancelled
	ErrIOFailure
	ErrInvalidGrant
	ErrNetworkFailure
	ErrTransient
	ErrInvalidResponse
)

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrUnrecognizedLink:
		return "UnrecognizedLink"
	case ErrMissingID:
		return "MissingID"
	case ErrAuthRequired:
		return "AuthRequired"
	case ErrNotFound:
		return "NotFound"
	case ErrUnparseable:
		return "Unparseable"
	case ErrAllMethodsFailed:
		return "AllMethodsFailed"
	case ErrCancelled:
		return "Cancelled"
	case ErrIOFailure:
		return "IOFailure"
	case ErrInvalidGrant:
		return "InvalidGrant"
	case ErrNetworkFailure:
		return "NetworkFailure"
	case ErrTransient:
		return "TransientFailure"
	case ErrInvalidResponse:
		return "InvalidResponse"
	default:
		return "Unknown"
	}
}

// BoxError represents a boxfetch-specific error with detailed information
type BoxError struct {
	Code       int    `json:"code,omitempty"` // HTTP status when one applies
	Message    string `json:"message"`
	Type       ErrorType `json:"type"`
	URL        string `json:"url,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (e *BoxError) Error() string {
	var parts []string

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("box error (status: %d, type: %s)", e.Code, e.Type.String()))
	} else {
		parts = append(parts, fmt.Sprintf("box error (type: %s)", e.Type.String()))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed error message with all available information
func (e *BoxError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s Error", e.Type.String()))

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("Status: %d", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewBoxError creates a new BoxError with a default suggestion for its type
func NewBoxError(code int, message string, errorType ErrorType) *BoxError {
	return &BoxError{
		Code:       code,
		Message:    message,
		Type:       errorType,
		Suggestion: defaultSuggestion(errorType),
	}
}

// WithSuggestion overrides the default suggestion
func (e *BoxError) WithSuggestion(suggestion string) *BoxError {
	e.Suggestion = suggestion
	return e
}

// WithURL adds URL context to the error (redacted in detailed output)
func (e *BoxError) WithURL(url string) *BoxError {
	e.URL = url
	return e
}

// IsType reports whether err is a *BoxError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var boxErr *BoxError
	if errors.As(err, &boxErr) {
		return boxErr.Type == errorType
	}
	return false
}

// defaultSuggestion returns a default suggestion based on error type
func defaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrUnrecognizedLink:
		return "Provide a Box shared link such as https://app.box.com/s/abc123 or https://app.box.com/file/123456"
	case ErrMissingID:
		return "The /file/ or /folder/ segment must be followed by a numeric id"
	case ErrAuthRequired:
		return "Provide an access token with --token, or the link password with --password"
	case ErrNotFound:
		return "Verify the shared link is still valid and the file has not been removed"
	case ErrUnparseable:
		return "The shared page could not be read; the link may require authentication"
	case ErrAllMethodsFailed:
		return "Every download method failed; an access token may be required"
	case ErrCancelled:
		return "The operation was cancelled; no partial file was kept"
	case ErrIOFailure:
		return "Check available disk space and permissions on the output directory"
	case ErrInvalidGrant:
		return "Authorization codes are single-use and expire quickly; generate a fresh one"
	case ErrNetworkFailure:
		return "Check your internet connection and proxy settings"
	case ErrTransient:
		return "The server rejected this attempt; retrying later may succeed"
	case ErrInvalidResponse:
		return "Unexpected response from Box; the endpoint may have changed"
	default:
		return "Please check the error details and try again"
	}
}

// redactSensitiveURL redacts query parameters that might carry credentials
func redactSensitiveURL(url string) string {
	if strings.Contains(url, "?") {
		parts := strings.SplitN(url, "?", 2)
		return parts[0] + "?[REDACTED]"
	}
	return url
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string      `json:"field"`
	Message    string      `json:"message"`
	Value      interface{} `json:"value,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// Common error constructors for frequently used errors

// NewUnrecognizedLinkError creates an error for URLs that match no known shape
func NewUnrecognizedLinkError(url string) *BoxError {
	return NewBoxError(0, "URL does not match any supported Box link format", ErrUnrecognizedLink).
		WithURL(url)
}

// NewMissingIDError creates an error for /file/ or /folder/ paths without an id
func NewMissingIDError(url, segment string) *BoxError {
	return NewBoxError(0, fmt.Sprintf("expected a numeric id after /%s/", segment), ErrMissingID).
		WithURL(url)
}

// NewAuthRequiredError creates an error for authentication requirements
func NewAuthRequiredError(code int, message string) *BoxError {
	return NewBoxError(code, message, ErrAuthRequired)
}

// NewNotFoundError creates an error for missing files or dead links
func NewNotFoundError(url string) *BoxError {
	return NewBoxError(404, "file not found or shared link is invalid", ErrNotFound).
		WithURL(url)
}

// NewCancelledError creates an error for a cooperatively cancelled operation
func NewCancelledError(operation string) *BoxError {
	return NewBoxError(0, fmt.Sprintf("%s cancelled", operation), ErrCancelled)
}

// NewNetworkFailureError creates an error for transport-level failures
func NewNetworkFailureError(operation string, cause error) *BoxError {
	return NewBoxError(0, fmt.Sprintf("network failure during %s: %v", operation, cause), ErrNetworkFailure)
}
