package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors.
var (
	// ErrNotFound indicates that an input file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownFormat indicates that a dataset matches no known schema.
	ErrUnknownFormat = errors.New("unknown dataset format")

	// ErrNotImplemented marks variants that exist only as interface slots.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NotFoundError reports a missing input path.
type NotFoundError struct {
	// Path is the path that could not be found.
	Path string

	// Err is the underlying filesystem error, if any.
	Err error
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file not found: path=%s, err=%v", e.Path, e.Err)
	}
	return fmt.Sprintf("file not found: path=%s", e.Path)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a new NotFoundError for path.
func NewNotFoundError(path string, err error) *NotFoundError {
	return &NotFoundError{Path: path, Err: err}
}

// FormatError reports a dataset whose columns match neither known schema.
type FormatError struct {
	// Path is the dataset file.
	Path string

	// Columns is the header that was found.
	Columns []string
}

// Error implements the error interface for FormatError.
func (e *FormatError) Error() string {
	return fmt.Sprintf("unknown dataset format: path=%s, columns=[%s]", e.Path, strings.Join(e.Columns, ", "))
}

// Is reports whether target is ErrUnknownFormat.
func (e *FormatError) Is(target error) bool { return target == ErrUnknownFormat }

// NewFormatError creates a new FormatError.
func NewFormatError(path string, columns []string) *FormatError {
	return &FormatError{Path: path, Columns: columns}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Row is the zero-based dataset row, or -1 when not row based.
	Row int

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	entity := e.Entity
	if e.Row >= 0 {
		entity = fmt.Sprintf("%s (row %d)", e.Entity, e.Row)
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Row:    -1,
		Errors: make([]string, 0),
	}
}

// NewRowValidationError creates a ValidationError bound to a dataset row.
func NewRowValidationError(entity string, row int) *ValidationError {
	e := NewValidationError(entity)
	e.Row = row
	return e
}
