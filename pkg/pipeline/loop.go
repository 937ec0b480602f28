package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/stats"
)

// StopReason says why Run returned.
type StopReason string

const (
	// StopViewer means the sink reported a user exit request.
	StopViewer StopReason = "viewer"
	// StopCanceled means the context was canceled (e.g. SIGINT).
	StopCanceled StopReason = "canceled"
	// StopError means a stage failed.
	StopError StopReason = "error"
)

// Config holds per-frame settings.
type Config struct {
	// ConfidenceThreshold is the minimum detector score for a face.
	ConfidenceThreshold float64

	// Markup controls what is drawn next to each box.
	Markup MarkupOptions

	// Text formats the display text. Nil means CompactText.
	Text TextPolicy

	// Logger receives per-frame debug traces. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns threshold 0.5, labels on, confidences off.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		Markup:              MarkupOptions{ShowLabels: true},
		Text:                CompactText{},
	}
}

// Parts are the collaborators a Loop drives. The loop does not own them;
// whoever opened them closes them.
type Parts struct {
	Source     FrameSource
	Detector   FaceDetector
	Classifier AgeClassifier
	Renderer   Renderer
	Sink       FrameSink
}

func (p Parts) validate() error {
	switch {
	case p.Source == nil:
		return fmt.Errorf("%w: source", ErrMissingPart)
	case p.Detector == nil:
		return fmt.Errorf("%w: detector", ErrMissingPart)
	case p.Classifier == nil:
		return fmt.Errorf("%w: classifier", ErrMissingPart)
	case p.Renderer == nil:
		return fmt.Errorf("%w: renderer", ErrMissingPart)
	case p.Sink == nil:
		return fmt.Errorf("%w: sink", ErrMissingPart)
	}
	return nil
}

// Loop is the synchronous per-frame pipeline.
type Loop struct {
	cfg    Config
	parts  Parts
	fps    *stats.FPS
	logger *slog.Logger
}

// New creates a loop. fps counts published frames; it may be shared with the
// caller so the caller can report it after Run returns.
func New(cfg Config, parts Parts, fps *stats.FPS) (*Loop, error) {
	if err := parts.validate(); err != nil {
		return nil, err
	}
	if cfg.Text == nil {
		cfg.Text = CompactText{}
	}
	if fps == nil {
		fps = stats.NewFPS(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{cfg: cfg, parts: parts, fps: fps, logger: logger}, nil
}

// Run processes frames until the sink asks to exit, ctx is canceled, or a
// stage fails. Cancellation is only observed between frames.
func (l *Loop) Run(ctx context.Context) (StopReason, error) {
	for {
		f, err := l.parts.Source.Read()
		if err != nil {
			return StopError, captureError(err)
		}

		out, err := l.Step(f)
		if err != nil {
			return StopError, err
		}

		if err := l.parts.Sink.Publish(out.Annotated, out.Text.Lines()); err != nil {
			return StopError, &ResourceError{Resource: "sink", Err: err}
		}
		l.fps.Update()
		l.fps.ObserveInference(out.Detection.Duration)

		if l.parts.Sink.ShouldExit() {
			l.logger.Info("viewer requested exit", "frames", l.fps.Frames())
			return StopViewer, nil
		}
		if ctx.Err() != nil {
			l.logger.Info("pipeline canceled", "frames", l.fps.Frames())
			return StopCanceled, nil
		}
	}
}

// Step runs detection, markup and classification on one frame. It does not
// publish.
func (l *Loop) Step(f frame.Frame) (Output, error) {
	det, err := l.parts.Detector.Detect(f, l.cfg.ConfidenceThreshold)
	if err != nil {
		return Output{}, inferenceError(l.parts.Detector.Info().ID, err)
	}

	regions := Annotate(det.Predictions)
	annotated := l.parts.Renderer.Markup(f, regions, l.cfg.Markup)

	faces := make([]FaceReport, 0, len(regions))
	ages := make([]ClassificationResult, 0, len(regions))
	for _, r := range regions {
		age, err := l.classify(f, r)
		if err != nil {
			return Output{}, err
		}
		faces = append(faces, FaceReport{Region: r, Age: age})
		ages = append(ages, age)
	}

	text := BuildText(l.cfg.Text, l.parts.Detector.Info(), det, faces)

	l.logger.Debug("frame processed",
		"seq", f.Seq,
		"faces", len(regions),
		"inference", det.Duration,
	)

	return Output{
		Original:  f,
		Annotated: annotated,
		Detection: det,
		Regions:   regions,
		Ages:      ages,
		Text:      text,
	}, nil
}

// classify crops r out of the original frame and classifies it. A box that
// falls entirely outside the frame has nothing to classify and is reported
// as an abstention.
func (l *Loop) classify(original frame.Frame, r Region) (ClassificationResult, error) {
	crop, err := frame.Crop(original, r.Box())
	if errors.Is(err, frame.ErrEmptyCrop) {
		l.logger.Debug("face outside frame", "face", r.Label, "box", r.Box().String())
		return ClassificationResult{}, nil
	}
	if err != nil {
		return ClassificationResult{}, err
	}

	res, err := l.parts.Classifier.Classify(crop)
	if err != nil {
		return ClassificationResult{}, inferenceError(l.parts.Classifier.Info().ID, err)
	}
	return res, nil
}

func captureError(err error) error {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return err
	}
	return &CaptureError{Err: err}
}

func inferenceError(model string, err error) error {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return err
	}
	return &InferenceError{Model: model, Err: err}
}
