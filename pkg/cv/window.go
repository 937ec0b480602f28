package cv

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// Keys that close the window.
const (
	keyQuit   = 'q'
	keyEscape = 27
)

// Text overlay layout.
const (
	textScale      = 0.5
	textLineHeight = 18
	textMargin     = 10
)

var (
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadowColor = color.RGBA{A: 255}
)

// Window is a pipeline.FrameSink that shows frames in a local highgui
// window and overlays the display text. Pressing q or Esc requests exit.
type Window struct {
	win  *gocv.Window
	exit atomic.Bool

	mu     sync.Mutex
	closed bool
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Publish shows f with text drawn in the top-left corner and polls the
// keyboard.
func (w *Window) Publish(f frame.Frame, text []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	img, err := toMat(f)
	if err != nil {
		return err
	}
	defer img.Close()

	for i, line := range text {
		org := image.Pt(textMargin, textMargin+(i+1)*textLineHeight)
		gocv.PutText(&img, line, org.Add(image.Pt(1, 1)), gocv.FontHersheySimplex, textScale, shadowColor, 2)
		gocv.PutText(&img, line, org, gocv.FontHersheySimplex, textScale, textColor, 1)
	}

	w.win.IMShow(img)
	if IsExitKey(w.win.WaitKey(1)) {
		w.exit.Store(true)
	}
	return nil
}

// ShouldExit reports whether the user pressed an exit key.
func (w *Window) ShouldExit() bool { return w.exit.Load() }

// Close destroys the window. Safe to call more than once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.win.Close()
}

// IsExitKey reports whether a WaitKey result is q, Q or Esc.
func IsExitKey(key int) bool {
	if key < 0 {
		return false
	}
	switch key & 0xFF {
	case keyQuit, 'Q', keyEscape:
		return true
	}
	return false
}

var _ pipeline.FrameSink = (*Window)(nil)
