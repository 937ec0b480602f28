package pipeline

import "github.com/teslashibe/go-agecam/pkg/frame"

// FrameSource supplies successive frames from a capture device.
type FrameSource interface {
	// Read blocks until the next frame is available.
	Read() (frame.Frame, error)

	// Close releases the device.
	Close() error
}

// FaceDetector finds faces in a frame.
type FaceDetector interface {
	// Detect returns every face scoring at least confidence.
	Detect(f frame.Frame, confidence float64) (DetectionResult, error)

	// Info describes the loaded model.
	Info() ModelInfo
}

// AgeClassifier assigns age categories to a face crop.
type AgeClassifier interface {
	// Classify returns candidate labels, best first. An empty result is
	// not an error.
	Classify(f frame.Frame) (ClassificationResult, error)

	// Info describes the loaded model.
	Info() ModelInfo
}

// Renderer draws regions onto a copy of a frame. The input frame must not
// be modified.
type Renderer interface {
	Markup(f frame.Frame, regions []Region, opts MarkupOptions) frame.Frame
}

// FrameSink publishes annotated frames to a viewer.
type FrameSink interface {
	// Publish hands one frame and its text to the viewer.
	Publish(f frame.Frame, text []string) error

	// ShouldExit reports whether the viewer asked to stop.
	ShouldExit() bool

	// Close releases the sink.
	Close() error
}
