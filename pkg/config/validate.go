package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	// Camera
	if strings.TrimSpace(c.Camera.Device) == "" {
		errs = append(errs, "camera.device is required")
	}
	if c.Camera.Width < 0 || c.Camera.Width > 7680 {
		errs = append(errs, "camera.width must be between 0 (device default) and 7680")
	}
	if c.Camera.Height < 0 || c.Camera.Height > 4320 {
		errs = append(errs, "camera.height must be between 0 (device default) and 4320")
	}
	if c.Camera.Framerate < 0 || c.Camera.Framerate > 240 {
		errs = append(errs, "camera.framerate must be between 0 (device default) and 240")
	}

	// Models
	if c.Detector.Backend != BackendSSD && c.Detector.Backend != BackendYuNet {
		errs = append(errs, "detector.backend must be ssd or yunet")
	}
	if c.Detector.Confidence <= 0 || c.Detector.Confidence > 1 {
		errs = append(errs, "detector.confidence must be in (0, 1]")
	}
	if c.Classifier.Confidence < 0 || c.Classifier.Confidence > 1 {
		errs = append(errs, "classifier.confidence must be in [0, 1]")
	}
	errs = append(errs, c.Detector.validate("detector")...)
	errs = append(errs, c.Classifier.validate("classifier")...)

	// Sink
	switch c.Sink.Kind {
	case SinkWeb:
		if c.Sink.Addr == "" {
			errs = append(errs, "sink.addr is required for the web sink")
		}
		if c.Sink.JPEGQuality < 1 || c.Sink.JPEGQuality > 100 {
			errs = append(errs, "sink.jpeg_quality must be between 1 and 100")
		}
	case SinkWindow:
	default:
		errs = append(errs, "sink.kind must be web or window")
	}

	if c.Warmup < 0 {
		errs = append(errs, "warmup must not be negative")
	}

	return errs
}

func (m Model) validate(section string) []string {
	var errs []string
	if m.ID == "" {
		errs = append(errs, section+".id is required")
	}
	if m.Weights == "" {
		errs = append(errs, section+".weights is required")
	}
	if !slices.Contains(Engines, strings.ToUpper(m.Engine)) {
		errs = append(errs, fmt.Sprintf("%s.engine must be one of %s", section, strings.Join(Engines, ", ")))
	}
	if !slices.Contains(Accelerators, strings.ToUpper(m.Accelerator)) {
		errs = append(errs, fmt.Sprintf("%s.accelerator must be one of %s", section, strings.Join(Accelerators, ", ")))
	}
	return errs
}

// Check wraps Validate into a single error.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Problems: errs}
}

// ErrInvalid matches any *ValidationError.
var ErrInvalid = errors.New("config: invalid")

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// Is reports whether target is ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
