package errors

import "fmt"

// ErrorType classifies the failures the sync pipeline can produce
type ErrorType string

const (
	// ErrorTypeAuth is fatal: the run aborts before any crawling
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeTransientFetch covers per-page listing failures; the
	// crawler treats these as end-of-pages rather than retrying
	ErrorTypeTransientFetch ErrorType = "transient_fetch"
	// ErrorTypeMaterialize covers per-post failures; the post is
	// skipped and the run continues
	ErrorTypeMaterialize ErrorType = "materialize"
	// ErrorTypeMetadata is a non-fatal subset of materialize failures;
	// the photo file is retained even when embedding fails
	ErrorTypeMetadata ErrorType = "metadata"
	// ErrorTypeConfig is fatal before any network activity
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeNetwork covers transport-level failures on individual
	// HTTP calls
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeServerError covers 5xx responses
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a typed pipeline error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error wrapping an underlying one
func Wrap(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// WithCode attaches an HTTP status code to the error
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// IsRetryable checks if an error type should be retried at the
// transport layer. Auth and config failures never are.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
