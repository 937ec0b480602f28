// Package frame holds the image type passed between pipeline stages.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when a box does not overlap the frame.
var ErrEmptyCrop = errors.New("frame: crop region is empty")

// Frame is one captured image. A Frame is never modified once it has been
// read; markup and crops always produce new pixel buffers.
type Frame struct {
	Image    image.Image
	Seq      uint64    // Capture sequence number, starting at 1
	Captured time.Time // When the source produced the frame
}

// New wraps an image.
func New(img image.Image, seq uint64, captured time.Time) Frame {
	return Frame{Image: img, Seq: seq, Captured: captured}
}

// Bounds returns the pixel bounds, or the zero rectangle for an empty frame.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// Width in pixels.
func (f Frame) Width() int { return f.Bounds().Dx() }

// Height in pixels.
func (f Frame) Height() int { return f.Bounds().Dy() }

// Channels returns 1 for grayscale images and 3 for everything else.
func (f Frame) Channels() int {
	switch f.Image.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case nil:
		return 0
	default:
		return 3
	}
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Bounds().Empty()
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("frame#%d %dx%dx%d", f.Seq, f.Width(), f.Height(), f.Channels())
}

// Clone returns a deep copy with the same metadata.
func Clone(f Frame) Frame {
	if f.Image == nil {
		return f
	}
	return Frame{Image: imaging.Clone(f.Image), Seq: f.Seq, Captured: f.Captured}
}

// Crop copies the pixels inside b out of f. The box is clamped to the frame
// first; a box entirely outside the frame yields ErrEmptyCrop.
func Crop(f Frame, b Box) (Frame, error) {
	r := b.Clamp(f.Bounds())
	if r.Empty() {
		return Frame{}, fmt.Errorf("%w: box %v in %v", ErrEmptyCrop, b, f.Bounds())
	}
	return Frame{Image: imaging.Crop(f.Image, r), Seq: f.Seq, Captured: f.Captured}, nil
}
