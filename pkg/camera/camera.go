// Package camera reads frames from a webcam or video file through OpenCV.
package camera

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/frame"
)

var (
	// ErrEndOfStream is returned by Read once a video file is exhausted.
	ErrEndOfStream = errors.New("camera: end of stream")

	// ErrReadFailed is returned when a live device stops delivering frames.
	ErrReadFailed = errors.New("camera: read failed")

	// ErrEmptyFrame is returned when the device delivers a frame with no pixels.
	ErrEmptyFrame = errors.New("camera: empty frame")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("camera: closed")
)

// Camera is a pipeline.FrameSource backed by gocv.VideoCapture.
type Camera struct {
	cfg    config.Camera
	device Device
	clock  clock.Clock

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	seq    uint64
	closed bool
}

// Option configures a Camera.
type Option func(*Camera)

// WithClock sets the clock used to timestamp frames.
func WithClock(c clock.Clock) Option {
	return func(cam *Camera) { cam.clock = c }
}

// Open starts capturing from cfg.Device.
func Open(cfg config.Camera, opts ...Option) (*Camera, error) {
	dev := ParseDevice(cfg.Device)

	vc, err := gocv.OpenVideoCapture(dev.Arg())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dev, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: device not available", dev)
	}

	// Files and streams carry their own geometry.
	if dev.IsIndex() {
		if cfg.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		}
		if cfg.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		if cfg.Framerate > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
		}
	}

	c := &Camera{
		cfg:    cfg,
		device: dev,
		clock:  clock.New(),
		vc:     vc,
		mat:    gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Read grabs the next frame. The returned Frame owns its pixels.
func (c *Camera) Read() (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return frame.Frame{}, ErrClosed
	}

	if ok := c.vc.Read(&c.mat); !ok {
		if c.device.IsIndex() {
			return frame.Frame{}, fmt.Errorf("%w: %s", ErrReadFailed, c.device)
		}
		return frame.Frame{}, ErrEndOfStream
	}
	if c.mat.Empty() {
		return frame.Frame{}, ErrEmptyFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("convert frame: %w", err)
	}

	c.seq++
	return frame.New(img, c.seq, c.clock.Now()), nil
}

// Size reports the geometry the device actually delivers.
func (c *Camera) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, 0
	}
	return int(c.vc.Get(gocv.VideoCaptureFrameWidth)), int(c.vc.Get(gocv.VideoCaptureFrameHeight))
}

// Device returns the parsed device.
func (c *Camera) Device() Device { return c.device }

// Close releases the device. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.vc.Close()
}

// Device is a parsed capture target.
type Device struct {
	Index int    // Camera index when Path is empty
	Path  string // Video file or stream URL
}

// ParseDevice interprets "0", "1", ... as camera indexes and anything else
// as a path or URL. An empty string means camera 0.
func ParseDevice(s string) Device {
	if s == "" {
		return Device{}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return Device{Index: n}
	}
	return Device{Path: s}
}

// IsIndex reports whether d is a live camera index.
func (d Device) IsIndex() bool { return d.Path == "" }

// Arg is the value handed to gocv.OpenVideoCapture.
func (d Device) Arg() interface{} {
	if d.IsIndex() {
		return d.Index
	}
	return d.Path
}

// String implements fmt.Stringer.
func (d Device) String() string {
	if d.IsIndex() {
		return fmt.Sprintf("camera %d", d.Index)
	}
	return d.Path
}
