// Package preview renders published meshes to a small debug image.
package preview

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

// Frame is the render target: color plus a depth buffer, nearer is smaller.
type Frame struct {
	Width  int
	Height int
	Color  *image.NRGBA
	Depth  []float32
}

// NewFrame allocates a frame cleared to bg and +inf depth.
func NewFrame(w, h int, bg color.NRGBA) *Frame {
	f := &Frame{
		Width:  w,
		Height: h,
		Color:  image.NewNRGBA(image.Rect(0, 0, w, h)),
		Depth:  make([]float32, w*h),
	}
	for i := range f.Depth {
		f.Depth[i] = math32.Inf(1)
	}
	for i := 0; i < len(f.Color.Pix); i += 4 {
		f.Color.Pix[i] = bg.R
		f.Color.Pix[i+1] = bg.G
		f.Color.Pix[i+2] = bg.B
		f.Color.Pix[i+3] = bg.A
	}
	return f
}

func (f *Frame) set(x, y int, c color.NRGBA) {
	i := f.Color.PixOffset(x, y)
	f.Color.Pix[i] = c.R
	f.Color.Pix[i+1] = c.G
	f.Color.Pix[i+2] = c.B
	f.Color.Pix[i+3] = c.A
}

// Covered returns the number of pixels written by a triangle.
func (f *Frame) Covered() int {
	n := 0
	for _, d := range f.Depth {
		if !math32.IsInf(d, 1) {
			n++
		}
	}
	return n
}
