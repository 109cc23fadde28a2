package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrInvalidInput marks caller mistakes: unknown metabolites, out of range parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrComputation marks solver or variability failures.
	ErrComputation = errors.New("computation failed")
	// ErrNotFound marks missing catalog or document entries.
	ErrNotFound = errors.New("not found")
)

// InputError reports an invalid caller-supplied value.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalidInput.
func (e InputError) Is(target error) bool { return target == ErrInvalidInput }

// ComputationError reports that a flux computation stage could not produce data.
type ComputationError struct {
	Stage string
	Err   error
}

func (e ComputationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e ComputationError) Unwrap() error { return e.Err }

// Is matches ErrComputation.
func (e ComputationError) Is(target error) bool { return target == ErrComputation }

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }
