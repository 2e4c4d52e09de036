package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTimeout         = errors.New("request timed out")
	ErrSessionExpired  = errors.New("session expired or invalid")
	ErrStorageCorrupt  = errors.New("stored value is corrupt")
	ErrRequestInFlight = errors.New("another request is already in flight")
)

// BiometricCode is the closed taxonomy for credential ceremony failures.
// Platform errors are classified into one of these at the boundary and the
// native error never propagates further.
type BiometricCode string

const (
	BiometricUnsupported       BiometricCode = "Unsupported"
	BiometricNotAvailable      BiometricCode = "NotAvailable"
	BiometricNoCredential      BiometricCode = "NoCredential"
	BiometricUserCancelled     BiometricCode = "UserCancelled"
	BiometricNotSupported      BiometricCode = "NotSupported"
	BiometricSecurityViolation BiometricCode = "SecurityViolation"
	BiometricAlreadyRegistered BiometricCode = "AlreadyRegistered"
	BiometricUnknown           BiometricCode = "Unknown"
)

// BiometricError wraps a ceremony failure with its classified code.
type BiometricError struct {
	Code    BiometricCode
	Message string
}

func (e *BiometricError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBiometricError builds a classified ceremony error.
func NewBiometricError(code BiometricCode, message string) *BiometricError {
	return &BiometricError{Code: code, Message: message}
}

// BiometricCodeOf extracts the classified code, or BiometricUnknown if err
// is not a BiometricError.
func BiometricCodeOf(err error) BiometricCode {
	var be *BiometricError
	if errors.As(err, &be) {
		return be.Code
	}
	return BiometricUnknown
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
