// Package errors provides custom error types for the lineup system.
// These errors enable programmatic error checking with errors.Is and
// errors.As across the store, linking, merge and publish layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join re-export the standard library helpers so callers need a
// single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the lineup system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateLink indicates the raw record is already linked
	ErrDuplicateLink = errors.New("raw record already linked")

	// ErrInvalidTransition indicates a publish state change the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPublishValidation indicates an event is not ready for the requested state
	ErrPublishValidation = errors.New("publish validation failed")

	// ErrSourceUnavailable indicates a source could not be scraped
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMergeConflict indicates a duplicate pair could not be merged
	ErrMergeConflict = errors.New("merge conflict")

	// ErrJobRunning indicates a sync job is already in progress
	ErrJobRunning = errors.New("sync job already running")

	// ErrLeaseHeld indicates a named lease is owned by someone else
	ErrLeaseHeld = errors.New("lease held")

	// ErrImmutable indicates an attempt to modify append-only history
	ErrImmutable = errors.New("immutable record")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
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

// DuplicateLinkError is returned when a raw record already has a link.
// Callers treat it as a no-op.
type DuplicateLinkError struct {
	RawID       uint
	CanonicalID uint
}

// Error implements the error interface
func (e *DuplicateLinkError) Error() string {
	if e.CanonicalID != 0 {
		return fmt.Sprintf("raw record %d already linked to %d", e.RawID, e.CanonicalID)
	}
	return fmt.Sprintf("raw record %d already linked", e.RawID)
}

// Is implements errors.Is support
func (e *DuplicateLinkError) Is(target error) bool {
	return target == ErrDuplicateLink
}

// InvalidTransitionError represents a forbidden lifecycle move
type InvalidTransitionError struct {
	EventID uint
	From    string
	To      string
}

// Error implements the error interface
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("event %d: cannot transition from %s to %s", e.EventID, e.From, e.To)
}

// Is implements errors.Is support
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PublishValidationError lists why an event may not enter Target.
type PublishValidationError struct {
	EventID  uint
	Target   string
	Missing  []string // required fields that are empty
	Unedited []string // fields still identical to scraped text
}

// Error implements the error interface
func (e *PublishValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unedited) > 0 {
		parts = append(parts, "unedited "+strings.Join(e.Unedited, ", "))
	}
	return fmt.Sprintf("event %d not valid for %s: %s", e.EventID, e.Target, strings.Join(parts, "; "))
}

// Is implements errors.Is support
func (e *PublishValidationError) Is(target error) bool {
	return target == ErrPublishValidation || target == ErrInvalidInput
}

// SourceUnavailableError represents a failed scrape of one source for one city
type SourceUnavailableError struct {
	City   string
	Source string
	Err    error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable for %s: %v", e.Source, e.City, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// MergeConflictError represents a duplicate pair whose merge was rolled back
type MergeConflictError struct {
	Entity   string
	KeeperID uint
	LoserID  uint
	Err      error
}

// Error implements the error interface
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict for %s %d <- %d: %v", e.Entity, e.KeeperID, e.LoserID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MergeConflictError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// JobRunningError is returned when a sync is triggered while another runs
type JobRunningError struct {
	JobID  string
	Status string
}

// Error implements the error interface
func (e *JobRunningError) Error() string {
	if e.JobID == "" {
		return "sync job already running"
	}
	return fmt.Sprintf("sync job %s already running (%s)", e.JobID, e.Status)
}

// Is implements errors.Is support
func (e *JobRunningError) Is(target error) bool {
	return target == ErrJobRunning
}

// LeaseHeldError is returned when a named lease belongs to another holder
type LeaseHeldError struct {
	Name      string
	Holder    string
	ExpiresAt time.Time
}

// Error implements the error interface
func (e *LeaseHeldError) Error() string {
	if e.ExpiresAt.IsZero() {
		return fmt.Sprintf("lease %s held by %s", e.Name, e.Holder)
	}
	return fmt.Sprintf("lease %s held by %s until %s", e.Name, e.Holder, e.ExpiresAt.Format(time.RFC3339))
}

// Is implements errors.Is support
func (e *LeaseHeldError) Is(target error) bool {
	return target == ErrLeaseHeld
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "delete", "fetch"
	Resource  string // "event", "venue", "artist", "raw_record"
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

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "yaml", "json"
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

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
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

// IsDuplicateLink checks if an error is a duplicate link error
func IsDuplicateLink(err error) bool {
	return errors.Is(err, ErrDuplicateLink)
}

// IsInvalidTransition checks if an error is an invalid transition error
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsPublishValidation checks if an error is a publish validation error
func IsPublishValidation(err error) bool {
	return errors.Is(err, ErrPublishValidation)
}

// IsSourceUnavailable checks if an error reports a failed source
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsMergeConflict checks if an error is a merge conflict
func IsMergeConflict(err error) bool {
	return errors.Is(err, ErrMergeConflict)
}

// IsJobRunning checks if an error reports an in-progress sync
func IsJobRunning(err error) bool {
	return errors.Is(err, ErrJobRunning)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsLeaseHeld checks if an error reports a held lease
func IsLeaseHeld(err error) bool {
	return errors.Is(err, ErrLeaseHeld)
}

// Helper wrapping functions for common patterns

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapValidation wraps an error as a ValidationError on field
func WrapValidation(field string, value any, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return NewValidationError(field, value, err.Error())
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}
