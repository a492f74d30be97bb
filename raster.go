package mosaic

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

// ErrInvalidRaster is returned for rasters with non-positive dimensions or
// a pixel buffer of the wrong length.
var ErrInvalidRaster = errors.New("mosaic: invalid raster")

// Raster is an immutable source image: straight-alpha RGBA bytes, row by
// row, 4 bytes per pixel. Engines only read it, so one Raster can feed any
// number of concurrent renders.
type Raster struct {
	width  int
	height int
	pix    []uint8
}

// NewRaster creates a raster from a copy of pix.
// len(pix) must be width*height*4 and both dimensions must be positive.
func NewRaster(width, height int, pix []uint8) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidRaster, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrInvalidRaster, width, height, width*height*4, len(pix))
	}
	r := &Raster{width: width, height: height, pix: make([]uint8, len(pix))}
	copy(r.pix, pix)
	return r, nil
}

// RasterFromImage converts any image.Image to a Raster.
func RasterFromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidRaster, b.Dx(), b.Dy())
	}

	// Fast path: already tightly packed straight-alpha RGBA.
	if n, ok := img.(*image.NRGBA); ok && n.Stride == b.Dx()*4 && n.Rect.Min == (image.Point{}) {
		return NewRaster(b.Dx(), b.Dy(), n.Pix[:b.Dx()*b.Dy()*4])
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Raster{width: b.Dx(), height: b.Dy(), pix: dst.Pix}, nil
}

// DecodeRaster decodes a PNG, JPEG, GIF, BMP, TIFF or WebP stream.
func DecodeRaster(r io.Reader) (*Raster, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("mosaic: decode image: %w", err)
	}
	Logger().Debug("image decoded", "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return RasterFromImage(img)
}

// Width returns the width in pixels.
func (r *Raster) Width() int {
	return r.width
}

// Height returns the height in pixels.
func (r *Raster) Height() int {
	return r.height
}

// Pix returns the underlying pixel buffer. It must not be modified.
func (r *Raster) Pix() []uint8 {
	return r.pix
}

// NRGBAAt returns the pixel at (x, y), or transparent black when out of
// bounds.
func (r *Raster) NRGBAAt(x, y int) color.NRGBA {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return color.NRGBA{}
	}
	i := (y*r.width + x) * 4
	return color.NRGBA{R: r.pix[i], G: r.pix[i+1], B: r.pix[i+2], A: r.pix[i+3]}
}

// At implements the image.Image interface.
func (r *Raster) At(x, y int) color.Color {
	return r.NRGBAAt(x, y)
}

// Bounds implements the image.Image interface.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// ColorModel implements the image.Image interface.
func (r *Raster) ColorModel() color.Model {
	return color.NRGBAModel
}

// Fit returns a raster whose longer side is at most maxDim pixels,
// scaled with bilinear filtering. It returns r itself when it already fits
// or maxDim <= 0.
func (r *Raster) Fit(maxDim int) *Raster {
	if maxDim <= 0 || (r.width <= maxDim && r.height <= maxDim) {
		return r
	}
	w, h := maxDim, maxDim
	if r.width >= r.height {
		h = max(1, r.height*maxDim/r.width)
	} else {
		w = max(1, r.width*maxDim/r.height)
	}

	src := &image.NRGBA{Pix: r.pix, Stride: r.width * 4, Rect: r.Bounds()}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return &Raster{width: w, height: h, pix: dst.Pix}
}
