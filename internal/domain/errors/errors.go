package errors

import (
	"errors"
	"fmt"
)

var (
	// Billing platform conditions
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransactionNotPending  = errors.New("transaction is not in a pending state")
	ErrNoGatewayPaymentMethod = errors.New("no payment method registered for the gateway plugin")

	// Malformed notification data
	ErrUnknownCurrency  = errors.New("unknown currency code")
	ErrMissingEventCode = errors.New("notification has no event code")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// RetryableError marks a failure the gateway can fix by redelivering the
// notification: store errors, billing platform outages, lost journal writes.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a RetryableError with operation context.
func Retryable(op string, err error) error {
	return &RetryableError{Op: op, Err: err}
}

// FatalError marks a failure redelivery cannot fix, e.g. a malformed
// notification. The delivery is acknowledged and the problem is left to the
// journal and the logs.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError with operation context.
func Fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsRetryable reports whether the gateway should be asked to redeliver.
// Unknown failures count as retryable; only explicitly fatal ones do not.
func IsRetryable(err error) bool {
	return err != nil && !IsFatal(err)
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
