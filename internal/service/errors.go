// Package service holds the application's use cases: calendar queries,
// concert creation, ticket booking and account management.  Handlers call
// into it and translate its sentinel errors to HTTP status codes.
package service

import "errors"

// Sentinel errors returned by the services.  Callers should match them
// with errors.Is; the wrapping message carries the detail shown to users.
var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrUnauthenticated      = errors.New("unauthenticated")
)
