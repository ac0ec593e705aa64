// Package common defines shared constants and sentinel errors used across
// the client and server layers of credcore. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// ErrStoreUnavailable marks a backend (user store, OTP store) that could
	// not be reached or timed out. It is never reported as a failed credential.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTooManyRequests = errors.New("too many requests")
	ErrSendFailure     = errors.New("otp delivery failed")

	// Auth errors (invalid, expired or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidConfiguration is fatal: the process must not serve traffic.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
