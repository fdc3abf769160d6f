package models

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned for invalid credentials or an invalid session token.
	ErrAuth = errors.New("invalid credentials")
	// ErrNotFound is returned when a lot, order, user or product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an order cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a unique value (email, lot id) is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidInput is returned for a malformed request value.
	ErrInvalidInput = errors.New("invalid input")
)

// NetworkError reports an unreachable collaborator or a non-2xx answer.
type NetworkError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed [%d]", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports a collaborator payload that could not be decoded.
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Service, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
