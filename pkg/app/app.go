// Package app owns one agecam run: it loads nothing itself but takes the
// models, opens the frame source and sink, warms up, drives the pipeline
// loop and reports throughput on the way out.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/teslashibe/go-agecam/internal/log"
	"github.com/teslashibe/go-agecam/pkg/ledger"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
	"github.com/teslashibe/go-agecam/pkg/stats"
)

// DefaultWarmup is the pause between opening the camera and starting the
// throughput window.
const DefaultWarmup = 2 * time.Second

// ledgerTimeout bounds the run ledger write at shutdown.
const ledgerTimeout = 5 * time.Second

// ErrMissingOption is returned by New when a required option is unset.
var ErrMissingOption = errors.New("app: missing option")

// SourceFactory opens the frame source.
type SourceFactory func() (pipeline.FrameSource, error)

// SinkFactory opens the frame sink.
type SinkFactory func() (pipeline.FrameSink, error)

// Options configures an App.
type Options struct {
	// Models. If they implement io.Closer the App closes them in Close.
	Detector   pipeline.FaceDetector
	Classifier pipeline.AgeClassifier
	Renderer   pipeline.Renderer

	// Scoped resources, opened by Run and closed before it returns.
	OpenSource SourceFactory
	OpenSink   SinkFactory

	Pipeline pipeline.Config

	// Warmup is slept after the source opens. Negative means no warm-up;
	// zero means DefaultWarmup.
	Warmup time.Duration

	// Clock drives the throughput window. Nil uses the wall clock.
	Clock clock.Clock

	// Sleep performs the warm-up pause. Nil uses Clock.Sleep.
	Sleep func(time.Duration)

	// Out receives the banner and the final report. Nil means stdout.
	Out io.Writer

	Logger *slog.Logger

	// Ledger, when set, receives a record of the run.
	Ledger ledger.Recorder

	// RunID identifies the run; empty generates a UUID.
	RunID string

	// SourceName describes the source in the ledger (e.g. "camera 0").
	SourceName string
}

// Report summarises a finished run.
type Report struct {
	RunID  string
	Reason pipeline.StopReason
	Stats  stats.Summary
}

// App is one agecam run.
type App struct {
	opts   Options
	clock  clock.Clock
	out    io.Writer
	logger *slog.Logger
	runID  string

	closeOnce sync.Once
	closeErr  error
}

// New validates opts and fills defaults.
func New(opts Options) (*App, error) {
	switch {
	case opts.Detector == nil:
		return nil, fmt.Errorf("%w: detector", ErrMissingOption)
	case opts.Classifier == nil:
		return nil, fmt.Errorf("%w: classifier", ErrMissingOption)
	case opts.Renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingOption)
	case opts.OpenSource == nil:
		return nil, fmt.Errorf("%w: source", ErrMissingOption)
	case opts.OpenSink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingOption)
	}

	a := &App{opts: opts}

	a.clock = opts.Clock
	if a.clock == nil {
		a.clock = clock.New()
	}
	if a.opts.Sleep == nil {
		a.opts.Sleep = a.clock.Sleep
	}
	if a.opts.Warmup == 0 {
		a.opts.Warmup = DefaultWarmup
	}

	a.out = opts.Out
	if a.out == nil {
		a.out = os.Stdout
	}

	a.runID = opts.RunID
	if a.runID == "" {
		a.runID = uuid.NewString()
	}

	a.logger = opts.Logger
	if a.logger == nil {
		a.logger = log.L()
	}
	a.logger = a.logger.With("run_id", a.runID)
	if a.opts.Pipeline.Logger == nil {
		a.opts.Pipeline.Logger = a.logger
	}

	return a, nil
}

// RunID returns the run identifier.
func (a *App) RunID() string { return a.runID }

// Run prints the model banner, opens the source and sink, warms up and
// runs the loop until the viewer exits, ctx is canceled or a stage fails.
// Whatever happens after the banner, the source and sink are closed exactly
// once and the throughput report is printed. The returned error combines
// the loop error with any close errors.
func (a *App) Run(ctx context.Context) (report Report, err error) {
	a.printBanner()

	fps := stats.NewFPS(a.clock)
	startedAt := a.clock.Now()
	report = Report{RunID: a.runID, Reason: pipeline.StopError}

	var resources []*guard
	defer func() {
		fps.Stop()

		closeErr := closeAll(resources)
		if closeErr != nil {
			a.logger.Error("release failed", "error", closeErr)
		}
		err = multierr.Append(err, closeErr)

		report.Stats = fps.Summary()
		a.printReport(report.Stats)
		a.logSummary(report)
		a.record(ctx, startedAt, report, err)
	}()

	src, err := a.opts.OpenSource()
	if err != nil {
		return report, &pipeline.ResourceError{Resource: "source", Err: err}
	}
	srcGuard := newGuard("source", src)
	resources = append(resources, srcGuard)

	sink, err := a.opts.OpenSink()
	if err != nil {
		return report, &pipeline.ResourceError{Resource: "sink", Err: err}
	}
	sinkGuard := newGuard("sink", sink)
	resources = append(resources, sinkGuard)

	loop, err := pipeline.New(a.opts.Pipeline, pipeline.Parts{
		Source:     src,
		Detector:   a.opts.Detector,
		Classifier: a.opts.Classifier,
		Renderer:   a.opts.Renderer,
		Sink:       sink,
	}, fps)
	if err != nil {
		return report, err
	}

	if a.opts.Warmup > 0 {
		a.logger.Info("warming up", "duration", a.opts.Warmup)
		a.opts.Sleep(a.opts.Warmup)
	}

	fps.Start()
	a.logger.Info("pipeline started")

	report.Reason, err = loop.Run(ctx)
	return report, err
}

// Close releases the models. Safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for _, m := range []interface{}{a.opts.Detector, a.opts.Classifier} {
			if c, ok := m.(io.Closer); ok {
				errs = append(errs, c.Close())
			}
		}
		a.closeErr = multierr.Combine(errs...)
	})
	return a.closeErr
}

// printBanner writes engine, accelerator and model id for each model.
func (a *App) printBanner() {
	for _, info := range []pipeline.ModelInfo{a.opts.Detector.Info(), a.opts.Classifier.Info()} {
		fmt.Fprintf(a.out, "Engine: %s\n", info.Engine)
		fmt.Fprintf(a.out, "Accelerator: %s\n\n", info.Accelerator)
		fmt.Fprintf(a.out, "Model:\n%s\n\n", info.ID)
	}
}

// printReport writes the final throughput lines.
func (a *App) printReport(s stats.Summary) {
	fmt.Fprintf(a.out, "elapsed time: %.2f\n", s.Elapsed.Seconds())
	fmt.Fprintf(a.out, "approx. FPS: %.2f\n", s.FPS)
	fmt.Fprintln(a.out, "Program Ending")
}

func (a *App) logSummary(r Report) {
	a.logger.Info("run finished",
		"reason", string(r.Reason),
		"frames", r.Stats.Frames,
		"elapsed", r.Stats.Elapsed,
		"fps", r.Stats.FPS,
		"inference_mean", r.Stats.MeanInference,
		"inference_p95", r.Stats.P95Inference,
	)
}

// record writes the run to the ledger. The run context may already be
// canceled, so the write gets its own deadline.
func (a *App) record(ctx context.Context, startedAt time.Time, r Report, runErr error) {
	if a.opts.Ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	entry := ledger.Run{
		ID:         a.runID,
		StartedAt:  startedAt,
		Elapsed:    r.Stats.Elapsed,
		Frames:     uint64(r.Stats.Frames),
		FPS:        r.Stats.FPS,
		Detector:   a.opts.Detector.Info().ID,
		Classifier: a.opts.Classifier.Info().ID,
		Source:     a.opts.SourceName,
		StopReason: string(r.Reason),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := a.opts.Ledger.Record(ctx, entry); err != nil {
		a.logger.Warn("ledger write failed", "error", err)
	}
}
