package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrTooManyRequests = errors.New("too many requests, try again later")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotLoggedIn     = errors.New("not logged in")
)
