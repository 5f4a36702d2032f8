package errors

import (
	"errors"
	"fmt"
)

// Common error values shared across the bootstrap tooling
var (
	// Configuration errors
	ErrMissingConfig = errors.New("missing configuration value")
	ErrInvalidConfig = errors.New("invalid configuration value")
	ErrUnknownEnv    = errors.New("unknown environment profile")

	// Credential errors
	ErrMissingCredentials = errors.New("missing credentials")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenNotStored   = errors.New("token not found in storage state")

	// Provider errors
	ErrInvalidGrant         = errors.New("invalid grant")
	ErrInvalidClient        = errors.New("invalid client")
	ErrInvalidRedirectURI   = errors.New("invalid redirect URI")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrCodeAlreadyExchanged = errors.New("authorization code already exchanged")
	ErrInvalidToken         = errors.New("invalid token")

	// General errors
	ErrNotFound = errors.New("not found")
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
