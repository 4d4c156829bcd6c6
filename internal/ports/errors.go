package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrConnection indicates that the remote service could not be reached.
	ErrConnection = errors.New("connection failed")

	// ErrUnexpectedStatus indicates a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrUnknownComponent indicates an unsupported chatbot or scorer name.
	ErrUnknownComponent = errors.New("unknown component")
)

// Recoverable is implemented by errors that declare whether the caller may
// degrade instead of aborting the run.
type Recoverable interface {
	Recoverable() bool
}

// IsRecoverable reports whether err, or any error it wraps, is declared
// recoverable. Errors that declare nothing are fatal.
func IsRecoverable(err error) bool {
	var r Recoverable
	if errors.As(err, &r) {
		return r.Recoverable()
	}
	return false
}

// NetworkErrorKind classifies a remote call failure.
type NetworkErrorKind string

// Network failure kinds.
const (
	NetworkTimeout    NetworkErrorKind = "timeout"
	NetworkConnection NetworkErrorKind = "connection"
	NetworkStatus     NetworkErrorKind = "status"
	NetworkOther      NetworkErrorKind = "other"
)

// NetworkError represents a failed call to a remote chatbot.
// It is recovered locally into a fallback answer.
type NetworkError struct {
	// Kind classifies the failure.
	Kind NetworkErrorKind

	// URL is the request target.
	URL string

	// StatusCode holds the HTTP status for NetworkStatus failures.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for NetworkError.
func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error: kind=%s, url=%s, status=%d, err=%v", e.Kind, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error: kind=%s, url=%s, err=%v", e.Kind, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Recoverable reports true: network failures degrade to a fallback answer.
func (e *NetworkError) Recoverable() bool { return true }

// NewNetworkError creates a new NetworkError with the given details.
func NewNetworkError(kind NetworkErrorKind, url string, statusCode int, err error) *NetworkError {
	return &NetworkError{
		Kind:       kind,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ScoringError represents an internal failure of a scorer.
// It always aborts the evaluation run.
type ScoringError struct {
	// Scorer is the composite key of the failing scorer.
	Scorer string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ScoringError.
func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring error: scorer=%s, err=%v", e.Scorer, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScoringError) Unwrap() error { return e.Err }

// Recoverable reports false: scorer failures abort the run.
func (e *ScoringError) Recoverable() bool { return false }

// NewScoringError creates a new ScoringError.
func NewScoringError(scorer string, err error) *ScoringError {
	return &ScoringError{Scorer: scorer, Err: err}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
