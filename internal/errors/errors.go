package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session server
var (
	// Credential errors
	ErrUserNotFound       = errors.New("user not found")
	ErrCredentialMismatch = errors.New("credential mismatch")

	// Token codec errors
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenKindMismatch = errors.New("token kind mismatch")
	ErrTokenRevoked      = errors.New("token revoked")

	// Refresh rotation errors
	ErrMissingRefreshToken = errors.New("missing refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenReused  = errors.New("refresh token reused")

	// Access errors
	ErrInvalidAccessToken = errors.New("invalid access token")

	// Request errors
	ErrValidation      = errors.New("validation error")
	ErrTooManyRequests = errors.New("too many requests")

	// Infrastructure errors
	ErrStorage  = errors.New("storage error")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Tag wraps cause under kind so both match errors.Is.
func Tag(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Storage marks err as an infrastructure failure of a backing store.
func Storage(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return Tag(ErrStorage, err)
}

// IsClientError reports whether err is caused by the caller's input rather than
// by the server or its storage.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrUserNotFound,
		ErrCredentialMismatch,
		ErrMissingRefreshToken,
		ErrInvalidRefreshToken,
		ErrRefreshTokenReused,
		ErrInvalidAccessToken,
		ErrValidation,
		ErrTooManyRequests,
	} {
		if errors.Is(err, target) {
			return !errors.Is(err, ErrStorage)
		}
	}
	return false
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
