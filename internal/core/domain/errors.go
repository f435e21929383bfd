// Package domain defines the core domain models for rolegate.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured
// error code.
type DomainError struct {
	Code    string // Error code (e.g., "RG-CONF-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// ============================================================================
// Configuration errors (CONF). Fatal at startup: the process must not
// begin ingestion with a broken configuration.
// ============================================================================

var (
	// ErrConfigMissing indicates a required setting is absent.
	ErrConfigMissing = NewDomainError("RG-CONF-4000", "required setting missing")

	// ErrConfigInvalid indicates a setting has an unusable value.
	ErrConfigInvalid = NewDomainError("RG-CONF-4001", "invalid setting")
)

// ============================================================================
// Tracker errors (TRAK)
// ============================================================================

var (
	// ErrTrackerActive indicates Load was called after ingestion began.
	// This is a wiring bug: it must fail loudly rather than silently
	// corrupt live counters.
	ErrTrackerActive = NewDomainError("RG-TRAK-4090", "tracker is ingesting, load refused")
)

// ============================================================================
// Persistence errors (SNAP). Never fatal: counting availability is
// never sacrificed for durability.
// ============================================================================

var (
	// ErrSnapshotWrite indicates a snapshot write or rename failure.
	// Recovered locally: logged and retried on the next tick.
	ErrSnapshotWrite = NewDomainError("RG-SNAP-5000", "snapshot write failed")
)

// ============================================================================
// Gateway errors (GATE)
// ============================================================================

var (
	// ErrGatewayAuth indicates the platform rejected the bot token.
	ErrGatewayAuth = NewDomainError("RG-GATE-4010", "gateway authentication failed")

	// ErrGatewayClosed indicates the gateway connection is closed.
	ErrGatewayClosed = NewDomainError("RG-GATE-5000", "gateway connection closed")
)
