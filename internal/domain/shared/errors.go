// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// Record errors
	ErrMalformedRecord  = errors.New("malformed record")
	ErrInvalidThreshold = errors.New("invalid threshold")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// External service errors
	ErrNetwork            = errors.New("network error")
	ErrRemoteWrite        = errors.New("remote write failed")
	ErrRemoteRejected     = errors.New("remote rejected request")
	ErrPartialDelete      = errors.New("partial delete")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "attendance", "user", "classroom"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPED ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// NetworkError is a transport failure talking to the content server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// RemoteWriteError is returned when a mutation is rejected by the content
// server or fails in transit. Message carries the underlying error text.
type RemoteWriteError struct {
	Entity  string // "student", "teacher", "class", "attendance"
	Op      string // "create", "update", "delete"
	ID      string // empty on create
	Message string
	Err     error
}

func (e *RemoteWriteError) Error() string {
	target := e.Entity
	if e.ID != "" {
		target = e.Entity + " " + e.ID
	}
	return fmt.Sprintf("%s %s failed: %s", e.Op, target, e.Message)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) Is(target error) bool { return target == ErrRemoteWrite }

// NewRemoteWriteError wraps err as a RemoteWriteError.
func NewRemoteWriteError(entity, op, id string, err error) *RemoteWriteError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &RemoteWriteError{Entity: entity, Op: op, ID: id, Message: msg, Err: err}
}

// MalformedRecordError names an attendance record missing a required field.
type MalformedRecordError struct {
	RecordID string
	Field    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: missing %s", e.RecordID, e.Field)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// InvalidThresholdError is returned by the classifier for a non-positive threshold.
type InvalidThresholdError struct {
	Threshold int
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %d: must be positive", e.Threshold)
}

func (e *InvalidThresholdError) Is(target error) bool { return target == ErrInvalidThreshold }

// PartialDeleteError reports a multi-step delete that stopped midway.
// Nothing is rolled back: Deleted stays deleted, Failed and Remaining
// (and the owning entity) are left intact.
type PartialDeleteError struct {
	Entity    string
	ID        string
	Deleted   []string
	Failed    []string
	Remaining []string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete %s %s aborted: %d deleted, failed on [%s], %d not attempted: %v",
		e.Entity, e.ID, len(e.Deleted), strings.Join(e.Failed, ", "), len(e.Remaining), e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }

func (e *PartialDeleteError) Is(target error) bool { return target == ErrPartialDelete }

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user with this email already exists")
	ErrInvalidRole       = NewDomainError("user", "Validate", ErrInvalidInput, "invalid role")
	ErrUserHasAttendance = NewDomainError("user", "Delete", ErrInvalidEntity, "user still has attendance records")
)

// Classroom domain errors
var (
	ErrClassNotFound      = NewDomainError("classroom", "Find", ErrNotFound, "class not found")
	ErrClassHasAttendance = NewDomainError("classroom", "Delete", ErrInvalidEntity, "class still has attendance records")
	ErrScheduleTooLong    = NewDomainError("classroom", "Validate", ErrValueOutOfRange, "schedule exceeds 50 characters")
)

// Attendance domain errors
var (
	ErrAttendanceNotFound = NewDomainError("attendance", "Find", ErrNotFound, "attendance not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error came from talking to the content server.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrRemoteWrite) ||
		errors.Is(err, ErrRemoteRejected) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
