package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class. Match with errors.Is.
var (
	// ErrCapture is returned when the frame source fails.
	ErrCapture = errors.New("pipeline: capture failed")

	// ErrInference is returned when the detector or classifier fails.
	ErrInference = errors.New("pipeline: inference failed")

	// ErrResource is returned when a source or sink cannot be acquired or used.
	ErrResource = errors.New("pipeline: resource unavailable")

	// ErrMissingPart is returned by New when a required collaborator is nil.
	ErrMissingPart = errors.New("pipeline: missing part")
)

// CaptureError wraps a frame source failure.
type CaptureError struct {
	Err error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error { return e.Err }

// Is matches ErrCapture.
func (e *CaptureError) Is(target error) bool { return target == ErrCapture }

// InferenceError wraps a detector or classifier failure.
type InferenceError struct {
	Model string // Model ID that failed
	Err   error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *InferenceError) Unwrap() error { return e.Err }

// Is matches ErrInference.
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// ResourceError wraps a failure to acquire or use a scoped resource.
type ResourceError struct {
	Resource string // "source", "sink", ...
	Err      error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource [%s]: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error { return e.Err }

// Is matches ErrResource.
func (e *ResourceError) Is(target error) bool { return target == ErrResource }
