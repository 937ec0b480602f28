// Package pipeline runs the per-frame face detection and age classification
// loop.
//
// Each iteration reads one frame, detects faces, labels them "Face 1".."Face N"
// in detection order, draws the boxes on a copy of the frame, classifies a
// crop of every face taken from the untouched original, builds the display
// text and publishes the result to a sink. Stages run one after another on
// the calling goroutine; nothing is buffered or dropped between them.
//
// Example usage:
//
//	loop, _ := pipeline.New(pipeline.DefaultConfig(), pipeline.Parts{
//	    Source:     cam,
//	    Detector:   faces,
//	    Classifier: ages,
//	    Renderer:   render.New(render.DefaultOptions()),
//	    Sink:       viewer,
//	}, stats.NewFPS(nil))
//	reason, err := loop.Run(ctx)
package pipeline

import (
	"time"

	"github.com/teslashibe/go-agecam/pkg/frame"
)

// Prediction is one detected object.
type Prediction struct {
	Box        frame.Box
	Label      string  // Label produced by the detector (e.g. "face")
	Confidence float64 // 0-1
}

// DetectionResult is the detector output for one frame.
type DetectionResult struct {
	Predictions []Prediction  // In detector order
	Duration    time.Duration // Inference latency
}

// Classification is one candidate label for an image.
type Classification struct {
	Label      string
	Confidence float64 // 0-1
}

// ClassificationResult is the classifier output for one face crop.
// Predictions are sorted by descending confidence; an empty slice means the
// classifier abstained.
type ClassificationResult struct {
	Predictions []Classification
	Duration    time.Duration
}

// Top returns the best guess, if any.
func (r ClassificationResult) Top() (Classification, bool) {
	if len(r.Predictions) == 0 {
		return Classification{}, false
	}
	return r.Predictions[0], true
}

// Region is a detection prepared for display. The detector's own label and
// confidence stay available in Raw.
type Region struct {
	Index int    // 1-based position in detection order
	Label string // Display label, "Face <Index>"
	Raw   Prediction
}

// Box returns the region's bounding box in original frame coordinates.
func (r Region) Box() frame.Box { return r.Raw.Box }

// ModelInfo identifies a loaded model.
type ModelInfo struct {
	ID          string
	Engine      string
	Accelerator string
}

// MarkupOptions controls what the renderer draws next to each box.
type MarkupOptions struct {
	ShowLabels      bool
	ShowConfidences bool
}

// Output is everything one iteration produced.
type Output struct {
	Original  frame.Frame
	Annotated frame.Frame
	Detection DetectionResult
	Regions   []Region
	Ages      []ClassificationResult // One per region, same order
	Text      DisplayText
}
