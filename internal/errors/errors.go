package errors

import (
	"errors"
	"fmt"
)

// Common error types for the admin console session core
var (
	// Directory errors
	ErrDirectoryUnavailable = errors.New("tenant directory unavailable")
	ErrTenantNotFound       = errors.New("tenant not found")

	// Session lifecycle errors
	ErrNotInitialized     = errors.New("session not initialized")
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrAuthNotReady       = errors.New("authentication subsystem not ready")

	// Credential errors
	ErrCredentialPropagation = errors.New("credential propagation failed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
