package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-agecam/internal/log"
	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/ledger"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// closableDetector counts Close calls.
type closableDetector struct {
	*pipeline.MockDetector
	mu     sync.Mutex
	closes int
}

func (d *closableDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

// fakeLedger captures recorded runs.
type fakeLedger struct {
	runs []ledger.Run
	err  error
}

func (f *fakeLedger) Record(_ context.Context, r ledger.Run) error {
	f.runs = append(f.runs, r)
	return f.err
}

type harness struct {
	clock      *clock.Mock
	out        bytes.Buffer
	source     *pipeline.MockSource
	sink       *pipeline.MockSink
	detector   *pipeline.MockDetector
	classifier *pipeline.MockClassifier
	sleeps     []time.Duration
	sinkOpens  int
	opts       Options
}

func newHarness(frames int) *harness {
	h := &harness{clock: clock.NewMock()}

	var fs []frame.Frame
	for i := 1; i <= frames; i++ {
		fs = append(fs, frame.New(image.NewRGBA(image.Rect(0, 0, 16, 16)), uint64(i), h.clock.Now()))
	}
	h.source = &pipeline.MockSource{Frames: fs}
	h.sink = &pipeline.MockSink{}

	// Each detection takes half a second of mock time.
	h.detector = &pipeline.MockDetector{
		Model: pipeline.ModelInfo{ID: "face-model", Engine: "DNN", Accelerator: "CPU"},
		DetectFunc: func(frame.Frame, float64) (pipeline.DetectionResult, error) {
			h.clock.Add(500 * time.Millisecond)
			return pipeline.DetectionResult{
				Predictions: []pipeline.Prediction{{Box: frame.Box{W: 8, H: 8}, Label: "face", Confidence: 0.9}},
				Duration:    10 * time.Millisecond,
			}, nil
		},
	}
	h.classifier = &pipeline.MockClassifier{
		Model: pipeline.ModelInfo{ID: "age-model", Engine: "DNN", Accelerator: "CPU"},
	}

	h.opts = Options{
		Detector:   h.detector,
		Classifier: h.classifier,
		Renderer:   &pipeline.CloneRenderer{},
		OpenSource: func() (pipeline.FrameSource, error) { return h.source, nil },
		OpenSink: func() (pipeline.FrameSink, error) {
			h.sinkOpens++
			return h.sink, nil
		},
		Pipeline: pipeline.DefaultConfig(),
		Clock:    h.clock,
		Sleep: func(d time.Duration) {
			h.sleeps = append(h.sleeps, d)
			h.clock.Add(d)
		},
		Out:        &h.out,
		Logger:     log.Discard(),
		RunID:      "run-test",
		SourceName: "camera 0",
	}
	return h
}

func (h *harness) run(t *testing.T) (Report, error) {
	t.Helper()
	a, err := New(h.opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	return a.Run(context.Background())
}

func TestRun_ViewerExit(t *testing.T) {
	h := newHarness(4)
	h.sink.ExitAfter = 3

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "Engine: DNN\nAccelerator: CPU\n\nModel:\nface-model\n\n" +
		"Engine: DNN\nAccelerator: CPU\n\nModel:\nage-model\n\n" +
		"elapsed time: 1.50\n" +
		"approx. FPS: 2.00\n" +
		"Program Ending\n"
	if got := h.out.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}

	if report.Reason != pipeline.StopViewer {
		t.Errorf("reason: got %q", report.Reason)
	}
	if report.RunID != "run-test" {
		t.Errorf("run id: got %q", report.RunID)
	}
	if report.Stats.Frames != 3 {
		t.Errorf("frames: got %d, want 3", report.Stats.Frames)
	}
	if d := report.Stats.MeanInference - 10*time.Millisecond; d < -time.Microsecond || d > time.Microsecond {
		t.Errorf("mean inference: got %v, want 10ms", report.Stats.MeanInference)
	}
	if h.source.CloseCount() != 1 || h.sink.CloseCount() != 1 {
		t.Errorf("close counts: source=%d sink=%d", h.source.CloseCount(), h.sink.CloseCount())
	}
}

func TestRun_WarmupExcludedFromThroughput(t *testing.T) {
	h := newHarness(2)
	h.sink.ExitAfter = 2
	h.opts.Warmup = 0 // default

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.sleeps) != 1 || h.sleeps[0] != DefaultWarmup {
		t.Errorf("sleeps: got %v, want [%v]", h.sleeps, DefaultWarmup)
	}
	if report.Stats.Elapsed != time.Second {
		t.Errorf("elapsed: got %v, want 1s", report.Stats.Elapsed)
	}
}

func TestRun_NegativeWarmupSkipsSleep(t *testing.T) {
	h := newHarness(1)
	h.sink.ExitAfter = 1
	h.opts.Warmup = -1

	if _, err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.sleeps) != 0 {
		t.Errorf("expected no warm-up, got %v", h.sleeps)
	}
}

func TestRun_DetectorFailureReleasesResources(t *testing.T) {
	h := newHarness(3)
	boom := errors.New("forward failed")
	calls := 0
	ok := h.detector.DetectFunc
	h.detector.DetectFunc = func(f frame.Frame, c float64) (pipeline.DetectionResult, error) {
		calls++
		if calls == 2 {
			return pipeline.DetectionResult{}, boom
		}
		return ok(f, c)
	}

	report, err := h.run(t)

	if !errors.Is(err, pipeline.ErrInference) || !errors.Is(err, boom) {
		t.Fatalf("expected inference error, got %v", err)
	}
	if report.Reason != pipeline.StopError {
		t.Errorf("reason: got %q", report.Reason)
	}
	if h.source.CloseCount() != 1 {
		t.Errorf("source closed %d times, want 1", h.source.CloseCount())
	}
	if h.sink.CloseCount() != 1 {
		t.Errorf("sink closed %d times, want 1", h.sink.CloseCount())
	}
	out := h.out.String()
	if !strings.Contains(out, "approx. FPS: ") || !strings.HasSuffix(out, "Program Ending\n") {
		t.Errorf("throughput not printed:\n%s", out)
	}
	if report.Stats.Frames != 1 {
		t.Errorf("frames: got %d, want 1", report.Stats.Frames)
	}
}

func TestRun_SourceOpenFailure(t *testing.T) {
	h := newHarness(0)
	noCam := errors.New("no camera")
	h.opts.OpenSource = func() (pipeline.FrameSource, error) { return nil, noCam }

	_, err := h.run(t)

	var re *pipeline.ResourceError
	if !errors.As(err, &re) || re.Resource != "source" || !errors.Is(err, noCam) {
		t.Fatalf("expected source ResourceError, got %v", err)
	}
	if h.sinkOpens != 0 {
		t.Error("sink should not be opened when the source fails")
	}
	if h.detector.CallCount() != 0 {
		t.Error("detector should not run")
	}
	out := h.out.String()
	if !strings.Contains(out, "elapsed time: 0.00\napprox. FPS: 0.00\nProgram Ending\n") {
		t.Errorf("report missing:\n%s", out)
	}
}

func TestRun_SinkOpenFailureClosesSource(t *testing.T) {
	h := newHarness(1)
	h.opts.OpenSink = func() (pipeline.FrameSink, error) { return nil, errors.New("port in use") }

	_, err := h.run(t)

	if !errors.Is(err, pipeline.ErrResource) {
		t.Fatalf("expected ErrResource, got %v", err)
	}
	if h.source.CloseCount() != 1 {
		t.Errorf("source closed %d times, want 1", h.source.CloseCount())
	}
}

func TestRun_CloseErrorsCombined(t *testing.T) {
	h := newHarness(2)
	h.sink.ExitAfter = 1
	srcErr := errors.New("device busy")
	sinkErr := errors.New("listener gone")
	h.source.CloseErr = srcErr
	h.sink.CloseErr = sinkErr

	report, err := h.run(t)

	if !errors.Is(err, srcErr) || !errors.Is(err, sinkErr) {
		t.Errorf("expected both close errors, got %v", err)
	}
	if report.Reason != pipeline.StopViewer {
		t.Errorf("reason: got %q", report.Reason)
	}
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(5)
	a, err := New(h.opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := a.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Reason != pipeline.StopCanceled || report.Stats.Frames != 1 {
		t.Errorf("got %+v", report)
	}
}

func TestRun_RecordsLedger(t *testing.T) {
	h := newHarness(2)
	h.sink.ExitAfter = 2
	fl := &fakeLedger{err: errors.New("db down")}
	h.opts.Ledger = fl

	if _, err := h.run(t); err != nil {
		t.Fatalf("ledger failure must not fail the run: %v", err)
	}

	if len(fl.runs) != 1 {
		t.Fatalf("recorded %d runs", len(fl.runs))
	}
	r := fl.runs[0]
	if r.ID != "run-test" || r.Frames != 2 || r.StopReason != "viewer" || r.Source != "camera 0" {
		t.Errorf("run: %+v", r)
	}
	if r.Detector != "face-model" || r.Classifier != "age-model" || r.Error != "" {
		t.Errorf("run: %+v", r)
	}
	if r.Elapsed != time.Second || r.FPS != 2 {
		t.Errorf("throughput: %v %.2f", r.Elapsed, r.FPS)
	}
}

func TestRun_RecordsFailure(t *testing.T) {
	h := newHarness(0)
	fl := &fakeLedger{}
	h.opts.Ledger = fl

	if _, err := h.run(t); err == nil {
		t.Fatal("expected capture error from an empty source")
	}
	if len(fl.runs) != 1 || fl.runs[0].Error == "" || fl.runs[0].StopReason != "error" {
		t.Errorf("runs: %+v", fl.runs)
	}
}

func TestNew_MissingOptions(t *testing.T) {
	h := newHarness(0)
	tests := []struct {
		name  string
		strip func(o *Options)
	}{
		{"detector", func(o *Options) { o.Detector = nil }},
		{"classifier", func(o *Options) { o.Classifier = nil }},
		{"renderer", func(o *Options) { o.Renderer = nil }},
		{"source", func(o *Options) { o.OpenSource = nil }},
		{"sink", func(o *Options) { o.OpenSink = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := h.opts
			tc.strip(&o)
			if _, err := New(o); !errors.Is(err, ErrMissingOption) {
				t.Errorf("expected ErrMissingOption, got %v", err)
			}
		})
	}
}

func TestNew_GeneratesRunID(t *testing.T) {
	h := newHarness(0)
	h.opts.RunID = ""
	a, err := New(h.opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(a.RunID()) != 36 {
		t.Errorf("expected a UUID, got %q", a.RunID())
	}
}

func TestClose_ReleasesModelsOnce(t *testing.T) {
	h := newHarness(0)
	det := &closableDetector{MockDetector: h.detector}
	h.opts.Detector = det

	a, err := New(h.opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	a.Close()

	if det.closes != 1 {
		t.Errorf("detector closed %d times, want 1", det.closes)
	}
}

func TestGuard_ClosesOnce(t *testing.T) {
	src := &pipeline.MockSource{CloseErr: errors.New("busy")}
	g := newGuard("source", src)

	err1 := g.Close()
	err2 := g.Close()

	if src.CloseCount() != 1 {
		t.Errorf("closed %d times", src.CloseCount())
	}
	if err1 == nil || err1 != err2 || !strings.Contains(err1.Error(), "close source") {
		t.Errorf("errors: %v / %v", err1, err2)
	}
}
