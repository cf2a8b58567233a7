// Package errors provides centralized error definitions and error handling
// utilities for the livebus codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ChannelError: errors related to channel registration and delivery
//   - CoordinatorError: errors related to global event coordination
//   - ConflictError: errors related to conflict detection and resolution
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewChannelError("register failed", errors.ErrDuplicateChannel)
//	err = err.WithChannelID("events.competition")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDuplicateChannel) { ... }
//
//	var chErr *errors.ChannelError
//	if errors.As(err, &chErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Propagation Policy
//
// Per-message failures inside a channel (validation, rate limiting, filter
// rejection, delivery errors) are counted in metrics and never propagated to
// producers. Only construction-time errors (duplicate channel id, invalid
// configuration) are surfaced synchronously to the caller.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Channel-related sentinel errors
var (
	// ErrDuplicateChannel indicates a channel id is already registered.
	ErrDuplicateChannel = New("channel id already registered")
	// ErrChannelNotFound indicates that a channel could not be found.
	ErrChannelNotFound = New("channel not found")
	// ErrChannelInactive indicates that a channel is deactivated.
	ErrChannelInactive = New("channel is deactivated")
	// ErrSubscriptionLimit indicates a channel is at its subscription cap.
	ErrSubscriptionLimit = New("subscription limit exceeded")
	// ErrUnauthorizedSource indicates a blocked source or subscriber.
	ErrUnauthorizedSource = New("unauthorized source")
	// ErrRateLimited indicates a message was dropped by rate limiting.
	ErrRateLimited = New("rate limit exceeded")
	// ErrMessageExpired indicates a message arrived past its expiration.
	ErrMessageExpired = New("message expired")
)

// Coordinator-related sentinel errors
var (
	// ErrEventNotFound indicates that a tracked event could not be found.
	ErrEventNotFound = New("event not found")
	// ErrEventLimit indicates the simultaneous global event cap is reached.
	ErrEventLimit = New("global event limit reached")
	// ErrEventInactive indicates a contribution arrived outside an active phase.
	ErrEventInactive = New("event is not in an active phase")
	// ErrLoadShedding indicates registrations are suspended under load.
	ErrLoadShedding = New("registrations suspended under load")
	// ErrUnknownRegion indicates a region absent from the offset table.
	ErrUnknownRegion = New("unknown region")
)

// Conflict-related sentinel errors
var (
	// ErrConflictResolved indicates an attempt to reopen a resolved conflict.
	ErrConflictResolved = New("conflict already resolved")
	// ErrConflictNotFound indicates that a conflict record could not be found.
	ErrConflictNotFound = New("conflict not found")
	// ErrNoQuorum indicates a consensus resolution lacked agreement.
	ErrNoQuorum = New("consensus threshold not reached")
	// ErrNoAuthority indicates no authoritative report was available.
	ErrNoAuthority = New("no authoritative report available")
)

// General sentinel errors
var (
	// ErrInvalidConfig indicates that configuration validation failed.
	ErrInvalidConfig = New("invalid configuration")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrShutdown indicates an operation raced with shutdown.
	ErrShutdown = New("bus is shutting down")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BusError is the base interface for all livebus errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type BusError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to operators.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show operators.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ChannelError represents errors related to channel registration and delivery.
//
// Example:
//
//	err := errors.NewChannelError("register failed", errors.ErrDuplicateChannel)
//	err = err.WithChannelID("events.competition")
type ChannelError struct {
	baseError
	ChannelID string
}

// NewChannelError creates a new ChannelError.
func NewChannelError(message string, cause error) *ChannelError {
	return &ChannelError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithChannelID adds a channel id to the error context.
func (e *ChannelError) WithChannelID(id string) *ChannelError {
	e.ChannelID = id
	return e
}

// WithSeverity sets the error severity.
func (e *ChannelError) WithSeverity(s Severity) *ChannelError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ChannelError) Error() string {
	prefix := "channel error"
	if e.ChannelID != "" {
		prefix = fmt.Sprintf("channel error [channel=%s]", e.ChannelID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ChannelError) Is(target error) bool {
	if _, ok := target.(*ChannelError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CoordinatorError represents errors related to global event coordination.
//
// Example:
//
//	err := errors.NewCoordinatorError("contribution rejected", errors.ErrEventInactive)
//	err = err.WithEventID("spring-buildoff").WithRegion("eu-west")
type CoordinatorError struct {
	baseError
	EventID string
	Region  string
}

// NewCoordinatorError creates a new CoordinatorError.
func NewCoordinatorError(message string, cause error) *CoordinatorError {
	return &CoordinatorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithEventID adds an event id to the error context.
func (e *CoordinatorError) WithEventID(id string) *CoordinatorError {
	e.EventID = id
	return e
}

// WithRegion adds a region to the error context.
func (e *CoordinatorError) WithRegion(region string) *CoordinatorError {
	e.Region = region
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *CoordinatorError) WithRetryable(r bool) *CoordinatorError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *CoordinatorError) Error() string {
	var parts []string
	if e.EventID != "" {
		parts = append(parts, fmt.Sprintf("event=%s", e.EventID))
	}
	if e.Region != "" {
		parts = append(parts, fmt.Sprintf("region=%s", e.Region))
	}

	prefix := "coordinator error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("coordinator error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CoordinatorError) Is(target error) bool {
	if _, ok := target.(*CoordinatorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConflictError represents errors related to conflict detection and resolution.
type ConflictError struct {
	baseError
	ConflictID string
	Strategy   string
}

// NewConflictError creates a new ConflictError.
func NewConflictError(message string, cause error) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithConflictID adds a conflict id to the error context.
func (e *ConflictError) WithConflictID(id string) *ConflictError {
	e.ConflictID = id
	return e
}

// WithStrategy adds the attempted resolution strategy to the error context.
func (e *ConflictError) WithStrategy(strategy string) *ConflictError {
	e.Strategy = strategy
	return e
}

// WithSeverity sets the error severity.
func (e *ConflictError) WithSeverity(s Severity) *ConflictError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ConflictError) Error() string {
	var parts []string
	if e.ConflictID != "" {
		parts = append(parts, fmt.Sprintf("conflict=%s", e.ConflictID))
	}
	if e.Strategy != "" {
		parts = append(parts, fmt.Sprintf("strategy=%s", e.Strategy))
	}

	prefix := "conflict error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("conflict error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConflictError) Is(target error) bool {
	if _, ok := target.(*ConflictError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates a resource could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resourceType),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds an underlying cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s %q not found", e.ResourceType, e.ResourceID)
	}
	return e.baseError.Error()
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError indicates a resource already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s already exists", resourceType),
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds an underlying cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s %q already exists", e.ResourceType, e.ResourceID)
	}
	return e.baseError.Error()
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds the offending field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the offending value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != nil {
		return fmt.Sprintf("validation failed for %s (got: %v): %s", e.Field, e.Value, e.message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation failed: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry.
func IsRetryable(err error) bool {
	var busErr BusError
	if As(err, &busErr) {
		return busErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to
// operators.
func IsUserFacing(err error) bool {
	var busErr BusError
	if As(err, &busErr) {
		return busErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of the error, defaulting to
// SeverityError for errors that don't implement BusError.
func GetSeverity(err error) Severity {
	var busErr BusError
	if As(err, &busErr) {
		return busErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Wrapping Helpers
// -----------------------------------------------------------------------------

// Wrap wraps an error with a message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}
