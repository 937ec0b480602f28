package cv

import "errors"

var (
	// ErrModelNotFound is returned when a weights or config file is missing.
	ErrModelNotFound = errors.New("cv: model file not found")

	// ErrModelLoad is returned when OpenCV cannot parse a model.
	ErrModelLoad = errors.New("cv: failed to load model")

	// ErrUnsupported is returned for unknown or incompatible engine settings.
	ErrUnsupported = errors.New("cv: unsupported engine configuration")

	// ErrEmptyImage is returned when inference is asked to run on no pixels.
	ErrEmptyImage = errors.New("cv: empty image")
)
