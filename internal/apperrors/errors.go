// Package apperrors holds the error taxonomy shared by the serving pipeline.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText       = &ValidationError{Field: "text", Reason: "no text provided"}
	ErrInvalidMaxLen   = errors.New("max sequence length must be positive")
	ErrScoreOutOfRange = errors.New("scorer returned a probability outside [0,1]")
)

// ValidationError is a client mistake. It is reported as a 4xx and never recorded as a scan.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps any failure of a durable read or write, including timeouts.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ModelLoadError is fatal: the process must not start serving.
type ModelLoadError struct {
	Artifact string
	Err      error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Artifact, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// NewModelLoadError returns nil when err is nil.
func NewModelLoadError(artifact string, err error) error {
	if err == nil {
		return nil
	}
	return &ModelLoadError{Artifact: artifact, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}

func IsModelLoad(err error) bool {
	var m *ModelLoadError
	return errors.As(err, &m)
}
