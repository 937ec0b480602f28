package pipeline

import (
	"errors"
	"sync"

	"github.com/teslashibe/go-agecam/pkg/frame"
)

// ErrMockExhausted is returned by MockSource once its frames run out.
var ErrMockExhausted = errors.New("mock: no more frames")

// MockDetector implements FaceDetector for testing.
type MockDetector struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(f frame.Frame, confidence float64) (DetectionResult, error)

	// Model is returned from Info.
	Model ModelInfo

	mu    sync.Mutex
	calls []float64 // confidence passed to each call
}

// Detect calls DetectFunc and records the call.
func (m *MockDetector) Detect(f frame.Frame, confidence float64) (DetectionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, confidence)
	m.mu.Unlock()
	if m.DetectFunc != nil {
		return m.DetectFunc(f, confidence)
	}
	return DetectionResult{}, nil
}

// Info returns Model.
func (m *MockDetector) Info() ModelInfo { return m.Model }

// CallCount returns how many times Detect ran.
func (m *MockDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Thresholds returns the confidence passed to each Detect call.
func (m *MockDetector) Thresholds() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockClassifier implements AgeClassifier for testing.
type MockClassifier struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(f frame.Frame) (ClassificationResult, error)

	// Model is returned from Info.
	Model ModelInfo

	mu     sync.Mutex
	inputs []frame.Frame
}

// Classify calls ClassifyFunc and records the input.
func (m *MockClassifier) Classify(f frame.Frame) (ClassificationResult, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, f)
	m.mu.Unlock()
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(f)
	}
	return ClassificationResult{}, nil
}

// Info returns Model.
func (m *MockClassifier) Info() ModelInfo { return m.Model }

// CallCount returns how many times Classify ran.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// Inputs returns every crop passed to Classify.
func (m *MockClassifier) Inputs() []frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]frame.Frame, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// MockSource implements FrameSource over a fixed list of frames.
type MockSource struct {
	Frames []frame.Frame

	// ReadFunc overrides Frames when set.
	ReadFunc func() (frame.Frame, error)

	// CloseErr is returned from Close.
	CloseErr error

	mu     sync.Mutex
	next   int
	closes int
}

// Read returns the next frame, then ErrMockExhausted.
func (m *MockSource) Read() (frame.Frame, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.Frames) {
		return frame.Frame{}, ErrMockExhausted
	}
	f := m.Frames[m.next]
	m.next++
	return f, nil
}

// Close records the call.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return m.CloseErr
}

// CloseCount returns how many times Close ran.
func (m *MockSource) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Published is one frame received by MockSink.
type Published struct {
	Frame frame.Frame
	Text  []string
}

// MockSink implements FrameSink and records everything it receives.
type MockSink struct {
	// ExitAfter makes ShouldExit return true once this many frames were
	// published. Zero never exits.
	ExitAfter int

	// PublishErr is returned from Publish.
	PublishErr error

	// CloseErr is returned from Close.
	CloseErr error

	mu        sync.Mutex
	published []Published
	closes    int
}

// Publish records the frame and text.
func (m *MockSink) Publish(f frame.Frame, text []string) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, Published{Frame: f, Text: append([]string(nil), text...)})
	return nil
}

// ShouldExit implements FrameSink.
func (m *MockSink) ShouldExit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExitAfter > 0 && len(m.published) >= m.ExitAfter
}

// Close records the call.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return m.CloseErr
}

// CloseCount returns how many times Close ran.
func (m *MockSink) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Published returns every published frame.
func (m *MockSink) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.published))
	copy(out, m.published)
	return out
}

// CloneRenderer implements Renderer by returning a deep copy of the frame.
// Set Paint to scribble on the copy.
type CloneRenderer struct {
	Paint func(f frame.Frame, regions []Region)

	mu    sync.Mutex
	calls int
}

// Markup implements Renderer.
func (r *CloneRenderer) Markup(f frame.Frame, regions []Region, _ MarkupOptions) frame.Frame {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	out := frame.Clone(f)
	if r.Paint != nil {
		r.Paint(out, regions)
	}
	return out
}

// CallCount returns how many times Markup ran.
func (r *CloneRenderer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Verify mocks implement their interfaces at compile time.
var (
	_ FaceDetector  = (*MockDetector)(nil)
	_ AgeClassifier = (*MockClassifier)(nil)
	_ FrameSource   = (*MockSource)(nil)
	_ FrameSink     = (*MockSink)(nil)
	_ Renderer      = (*CloneRenderer)(nil)
)
