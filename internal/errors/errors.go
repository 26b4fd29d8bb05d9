package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Pokédex data layer
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("not logged in")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors: the user has to log in again
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")

	// Transport errors
	ErrNetwork  = errors.New("network error")
	ErrProtocol = errors.New("protocol error")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrStorage        = errors.New("storage error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnsupported    = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark returns an error that matches both sentinel and the original cause
func Mark(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Retryable reports whether repeating the failed operation could succeed.
// Network and protocol failures are retryable, authorization and storage failures are not.
func Retryable(err error) bool {
	if err == nil || SessionFatal(err) || errors.Is(err, ErrNotFound) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrProtocol)
}

// SessionFatal reports whether err means the stored session can no longer be used
func SessionFatal(err error) bool {
	return errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrRefreshTokenExpired)
}
