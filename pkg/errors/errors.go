// Package errors provides custom error types for the calsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the calsync system
var (
	// ErrNotFound indicates that a requested record was not found.
	// Remote clients must return this (wrapped or direct) for an explicit
	// "does not exist" outcome, never for transient failures; orphan
	// cleanup relies on the distinction.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a record already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCredentialsRequired indicates that client credentials are required but not provided
	ErrCredentialsRequired = errors.New("credentials required")

	// ErrCredentialsInvalid indicates that the provided client credentials are invalid
	ErrCredentialsInvalid = errors.New("credentials invalid")

	// ErrSystemUnavailable indicates that a remote calendar system is temporarily unavailable
	ErrSystemUnavailable = errors.New("system unavailable")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrLinkIncomplete indicates a two-phase link that could not be completed
	ErrLinkIncomplete = errors.New("link incomplete")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	System   string
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("%s %s with ID %s not found", e.System, e.Resource, e.ID)
	}
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(system, resource, id string) *NotFoundError {
	return &NotFoundError{System: system, Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
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
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error from a remote calendar system API
type APIError struct {
	System     string // "workcal" or "carecal"
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 404 {
		return target == ErrNotFound
	}
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSystemUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
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

// LinkError represents a failure to complete the two-phase link protocol
// between a record and its counterpart. The leg already written has been
// rolled back by the time this error is surfaced.
type LinkError struct {
	SourceID string
	TargetID string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("failed to link record %s to %s: %s", e.SourceID, e.TargetID, e.Message)
	}
	return fmt.Sprintf("failed to link record %s to %s", e.SourceID, e.TargetID)
}

// Unwrap implements errors.Unwrap
func (e *LinkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *LinkError) Is(target error) bool {
	return target == ErrLinkIncomplete
}

// NewLinkError creates a new LinkError
func NewLinkError(sourceID, targetID, message string) *LinkError {
	return &LinkError{SourceID: sourceID, TargetID: targetID, Message: message}
}

// SyncError represents a failure of a single sync task. It carries enough
// identity to investigate the affected record pair by hand.
type SyncError struct {
	System        string // system owning the source record
	RecordID      string
	CounterpartID string // empty if not yet linked
	Err           error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.CounterpartID != "" {
		return fmt.Sprintf("sync error for %s record %s (counterpart %s): %v", e.System, e.RecordID, e.CounterpartID, e.Err)
	}
	return fmt.Sprintf("sync error for %s record %s: %v", e.System, e.RecordID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(system, recordID, counterpartID string, err error) *SyncError {
	return &SyncError{
		System:        system,
		RecordID:      recordID,
		CounterpartID: counterpartID,
		Err:           err,
	}
}

// AuthenticationError represents an authentication failure against one of
// the remote systems. Construction of a client fails with this before any
// task runs.
type AuthenticationError struct {
	System  string
	Method  string // "client_credentials", "api_key", etc.
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.System, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialsRequired || target == ErrCredentialsInvalid
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is an explicit not-found outcome
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsLinkIncomplete checks if an error is a two-phase link failure
func IsLinkIncomplete(err error) bool {
	return errors.Is(err, ErrLinkIncomplete)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsSystemUnavailable checks if an error indicates remote system unavailability
func IsSystemUnavailable(err error) bool {
	return errors.Is(err, ErrSystemUnavailable)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Source: source, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
