package mosaic

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// ErrNilSurface is returned when a render is asked to write into a nil
// Surface.
var ErrNilSurface = errors.New("mosaic: nil surface")

// Surface is the render output: a straight-alpha RGBA pixel buffer owned
// by the caller. Every render resizes it to the source dimensions and
// repaints it completely.
type Surface struct {
	width  int
	height int
	data   []uint8 // RGBA, 4 bytes per pixel
}

// NewSurface creates a surface with the given dimensions.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Reset(width, height)
	return s
}

// Reset resizes the surface, reusing its buffer when large enough.
// The pixel content is unspecified until the next Fill.
func (s *Surface) Reset(width, height int) {
	width, height = max(width, 0), max(height, 0)
	n := width * height * 4
	if cap(s.data) < n {
		s.data = make([]uint8, n)
	}
	s.data = s.data[:n]
	s.width = width
	s.height = height
}

// Width returns the width of the surface.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the height of the surface.
func (s *Surface) Height() int {
	return s.height
}

// Data returns the raw pixel data (RGBA format).
func (s *Surface) Data() []uint8 {
	return s.data
}

// Fill sets every pixel to c.
func (s *Surface) Fill(c Color) {
	px := c.NRGBA()
	if len(s.data) == 0 {
		return
	}
	s.data[0], s.data[1], s.data[2], s.data[3] = px.R, px.G, px.B, px.A
	// Doubling copy: each pass copies everything written so far.
	for filled := 4; filled < len(s.data); filled *= 2 {
		copy(s.data[filled:], s.data[:filled])
	}
}

// fillRect sets the pixels of [x0, x1) × [y0, y1) to px. The rectangle
// must already be clipped to the surface.
func (s *Surface) fillRect(x0, y0, x1, y1 int, px color.NRGBA) {
	if x0 >= x1 || y0 >= y1 {
		return
	}
	stride := s.width * 4
	row := s.data[y0*stride+x0*4 : y0*stride+x1*4]
	for i := 0; i < len(row); i += 4 {
		row[i], row[i+1], row[i+2], row[i+3] = px.R, px.G, px.B, px.A
	}
	for y := y0 + 1; y < y1; y++ {
		copy(s.data[y*stride+x0*4:y*stride+x1*4], row)
	}
}

// setSpan sets the pixels of [x0, x1) on row y. The span must already be
// clipped to the surface.
func (s *Surface) setSpan(y, x0, x1 int, px color.NRGBA) {
	i := (y*s.width + x0) * 4
	for x := x0; x < x1; x++ {
		s.data[i], s.data[i+1], s.data[i+2], s.data[i+3] = px.R, px.G, px.B, px.A
		i += 4
	}
}

// NRGBAAt returns the pixel at (x, y), or transparent black when out of
// bounds.
func (s *Surface) NRGBAAt(x, y int) color.NRGBA {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return color.NRGBA{}
	}
	i := (y*s.width + x) * 4
	return color.NRGBA{R: s.data[i], G: s.data[i+1], B: s.data[i+2], A: s.data[i+3]}
}

// ToImage copies the surface into an image.NRGBA.
func (s *Surface) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.data)
	return img
}

// EncodePNG writes the surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.ToImage())
}

// SavePNG saves the surface to a PNG file.
func (s *Surface) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := s.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// At implements the image.Image interface.
func (s *Surface) At(x, y int) color.Color {
	return s.NRGBAAt(x, y)
}

// Bounds implements the image.Image interface.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// ColorModel implements the image.Image interface.
func (s *Surface) ColorModel() color.Model {
	return color.NRGBAModel
}
