// Package errors provides custom error types for the geneasync system.
// These errors enable programmatic error checking across the reconciliation
// engine, its sources and its local stores.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the geneasync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates that the external source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates that the external source refused the request rate
	ErrRateLimited = errors.New("rate limited")

	// ErrIdentityConflict indicates that a local and an external person disagree
	// on who they are and the run must stop
	ErrIdentityConflict = errors.New("identity conflict")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a closed or read-only resource
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError represents a failure to retrieve or understand an external document
type FetchError struct {
	Reference  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %s", e.Reference, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.Reference, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewFetchError creates a new FetchError
func NewFetchError(reference string, statusCode int, message string) *FetchError {
	return &FetchError{
		Reference:  reference,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Side is one set of identity values involved in an IdentityConflictError.
type Side struct {
	FirstName string
	LastName  string
	Birth     string
	Death     string
}

// String renders the side the way an operator reads it.
func (s Side) String() string {
	return fmt.Sprintf("%s %s (birth %q, death %q)", s.FirstName, s.LastName, s.Birth, s.Death)
}

// IdentityConflictError is raised when a local person and the external record
// it is being reconciled with disagree on name or life-event dates.
// It is fatal unless force mode is set.
type IdentityConflictError struct {
	Reference string
	LocalID   string
	Fields    []string
	Local     Side
	External  Side
}

// Error implements the error interface
func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("identity conflict between local person %s and %s on %s: local %s, external %s",
		e.LocalID, e.Reference, strings.Join(e.Fields, ", "), e.Local, e.External)
}

// Is implements errors.Is support
func (e *IdentityConflictError) Is(target error) bool {
	return target == ErrIdentityConflict
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "html", "yaml", ...
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "commit", "load", "begin"
	Resource  string // "person", "family", "event", "place", "store"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsIdentityConflict checks if an error must abort a reconciliation run
func IsIdentityConflict(err error) bool {
	return errors.Is(err, ErrIdentityConflict)
}

// IsRetryable checks if a fetch error is worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrSourceUnavailable)
}

// IsCanceled checks if an error is a cancellation error, including context
// cancellation and deadlines
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFetch wraps an error as a FetchError
func WrapFetch(reference string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{
		Reference:  reference,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
