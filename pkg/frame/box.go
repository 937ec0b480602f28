package frame

import (
	"fmt"
	"image"
)

// Box is an axis-aligned region in pixel coordinates of the frame it was
// detected in.
type Box struct {
	X, Y int // Top-left corner
	W, H int // Width and height
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Clamp intersects the box with bounds.
func (b Box) Clamp(bounds image.Rectangle) image.Rectangle {
	return b.Rect().Intersect(bounds)
}

// Area returns W*H, or 0 for degenerate boxes.
func (b Box) Area() int {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// String implements fmt.Stringer.
func (b Box) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", b.X, b.Y, b.W, b.H)
}
