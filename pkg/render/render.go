// Package render draws face boxes and labels onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Options controls stroke and text styling.
type Options struct {
	LineWidth float64 // Box stroke width in pixels
	FontSize  float64 // Label size in points
	Padding   float64 // Space between label text and its background edge

	// Saturation and Value of the per-face HSV colour. Hue is spread by
	// face index.
	Saturation float64
	Value      float64
}

// DefaultOptions returns styling tuned for 640x480 frames.
func DefaultOptions() Options {
	return Options{
		LineWidth:  2,
		FontSize:   14,
		Padding:    3,
		Saturation: 0.85,
		Value:      0.95,
	}
}

// Renderer implements pipeline.Renderer.
type Renderer struct {
	opts Options
}

// New creates a renderer. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.LineWidth <= 0 {
		opts.LineWidth = def.LineWidth
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Padding <= 0 {
		opts.Padding = def.Padding
	}
	if opts.Saturation <= 0 {
		opts.Saturation = def.Saturation
	}
	if opts.Value <= 0 {
		opts.Value = def.Value
	}
	return &Renderer{opts: opts}
}

// Markup returns a copy of f with one box per region. f is not modified.
func (r *Renderer) Markup(f frame.Frame, regions []pipeline.Region, opts pipeline.MarkupOptions) frame.Frame {
	if f.Image == nil {
		return f
	}

	dc := gg.NewContextForImage(f.Image)
	face := truetype.NewFace(font, &truetype.Options{Size: r.opts.FontSize})
	dc.SetFontFace(face)

	// gg draws in a zero-origin canvas.
	origin := f.Bounds().Min
	for _, region := range regions {
		c := colorAt(region.Index, r.opts)
		rect := region.Box().Rect().Sub(origin)
		r.drawBox(dc, rect, c)

		if text := LabelText(region, opts); text != "" {
			r.drawLabel(dc, text, rect, c)
		}
	}

	return frame.New(dc.Image(), f.Seq, f.Captured)
}

func (r *Renderer) drawBox(dc *gg.Context, rect image.Rectangle, c color.Color) {
	dc.SetColor(c)
	dc.SetLineWidth(r.opts.LineWidth)
	dc.DrawRectangle(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()))
	dc.Stroke()
}

// drawLabel places text on a filled tab above the box, or inside the top
// edge when the box touches the top of the frame.
func (r *Renderer) drawLabel(dc *gg.Context, text string, rect image.Rectangle, c color.Color) {
	w, h := dc.MeasureString(text)
	pad := r.opts.Padding
	tabH := h + 2*pad

	x := float64(rect.Min.X)
	y := float64(rect.Min.Y) - tabH
	if y < 0 {
		y = float64(rect.Min.Y)
	}

	dc.SetColor(c)
	dc.DrawRectangle(x, y, w+2*pad, tabH)
	dc.Fill()

	dc.SetColor(textColor(c))
	dc.DrawStringAnchored(text, x+pad, y+pad+h/2, 0, 0.35)
}

// LabelText is the text drawn next to a region's box.
func LabelText(region pipeline.Region, opts pipeline.MarkupOptions) string {
	switch {
	case opts.ShowLabels && opts.ShowConfidences:
		return fmt.Sprintf("%s %.2f%%", region.Label, region.Raw.Confidence*100)
	case opts.ShowLabels:
		return region.Label
	case opts.ShowConfidences:
		return fmt.Sprintf("%.2f%%", region.Raw.Confidence*100)
	}
	return ""
}

// Color returns a stable colour for a 1-based face index. Consecutive
// indexes are spread around the hue wheel by the golden angle.
func Color(index int) color.Color {
	return colorAt(index, DefaultOptions())
}

func colorAt(index int, opts Options) color.Color {
	hue := math.Mod(float64(index-1)*137.508, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsv(hue, opts.Saturation, opts.Value).Clamped()
}

// textColor picks black or white text, whichever reads better on bg.
func textColor(bg color.Color) color.Color {
	c, ok := colorful.MakeColor(bg)
	if !ok {
		return color.White
	}
	if l, _, _ := c.Lab(); l > 0.6 {
		return color.Black
	}
	return color.White
}

var _ pipeline.Renderer = (*Renderer)(nil)
