// Package stats tracks run throughput: elapsed wall-clock time, frames
// published and detector latency.
package stats

import (
	"time"

	"github.com/benbjohnson/clock"
	mstats "github.com/montanaflynn/stats"
)

// FPS measures frames per second over a start/stop window.
// It is written only by the pipeline goroutine and is not safe for
// concurrent use.
type FPS struct {
	clock clock.Clock

	start   time.Time
	end     time.Time
	started bool
	stopped bool

	frames    int
	latencies []float64 // detector latencies in seconds
}

// NewFPS creates a counter on c. A nil clock uses the wall clock.
func NewFPS(c clock.Clock) *FPS {
	if c == nil {
		c = clock.New()
	}
	return &FPS{clock: c}
}

// Start marks the beginning of the measured window. Later calls are ignored.
func (f *FPS) Start() {
	if f.started {
		return
	}
	f.start = f.clock.Now()
	f.started = true
}

// Update counts one published frame.
func (f *FPS) Update() {
	f.frames++
}

// ObserveInference records one detector latency for the summary.
func (f *FPS) ObserveInference(d time.Duration) {
	f.latencies = append(f.latencies, d.Seconds())
}

// Stop closes the measured window. Only the first call has an effect. A
// counter that was never started stops with an empty window.
func (f *FPS) Stop() {
	if f.stopped {
		return
	}
	now := f.clock.Now()
	if !f.started {
		f.start = now
		f.started = true
	}
	f.end = now
	f.stopped = true
}

// Stopped reports whether Stop has run.
func (f *FPS) Stopped() bool { return f.stopped }

// Frames returns the number of frames counted so far.
func (f *FPS) Frames() int { return f.frames }

// Elapsed returns the measured window; while running it is the time since
// Start.
func (f *FPS) Elapsed() time.Duration {
	switch {
	case !f.started:
		return 0
	case f.stopped:
		return f.end.Sub(f.start)
	default:
		return f.clock.Since(f.start)
	}
}

// FPS returns the average frames per second over the window.
func (f *FPS) FPS() float64 {
	return ComputeFPS(f.frames, f.Elapsed())
}

// ComputeFPS returns frames/elapsed, or 0 when elapsed is not positive.
func ComputeFPS(frames int, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(frames) / secs
}

// Summary is a snapshot of the counters.
type Summary struct {
	Elapsed       time.Duration
	Frames        int
	FPS           float64
	MeanInference time.Duration
	P95Inference  time.Duration
}

// Summary returns the current counters plus a detector latency summary.
func (f *FPS) Summary() Summary {
	s := Summary{
		Elapsed: f.Elapsed(),
		Frames:  f.frames,
		FPS:     f.FPS(),
	}
	if len(f.latencies) == 0 {
		return s
	}
	data := mstats.Float64Data(f.latencies)
	if mean, err := data.Mean(); err == nil {
		s.MeanInference = seconds(mean)
	}
	if p95, err := data.Percentile(95); err == nil {
		s.P95Inference = seconds(p95)
	}
	return s
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
