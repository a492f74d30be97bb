package mosaic

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/gogpu/mosaic/internal/blend"
)

// Sampling selects how a tile's representative color is derived.
type Sampling uint8

const (
	// SamplingCenter reads the single pixel at the tile center, clamped to
	// the image. This is the default and the only policy of the GPU engine.
	SamplingCenter Sampling = iota

	// SamplingAverage averages every in-bounds pixel of the tile.
	SamplingAverage
)

// String returns the policy name.
func (p Sampling) String() string {
	switch p {
	case SamplingCenter:
		return "center"
	case SamplingAverage:
		return "average"
	default:
		return fmt.Sprintf("Sampling(%d)", p)
	}
}

// ParseSampling parses "center" or "average".
func ParseSampling(s string) (Sampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center":
		return SamplingCenter, nil
	case "average":
		return SamplingAverage, nil
	}
	return SamplingCenter, fmt.Errorf("mosaic: unknown sampling policy %q", s)
}

// Tile is one cell of the mosaic grid.
type Tile struct {
	// X, Y is the tile origin. It is always inside the image.
	X, Y int

	// Bounds is [X, X+TileSize) × [Y, Y+TileSize) clipped to the image.
	// It is never empty.
	Bounds image.Rectangle
}

// grid enumerates tile origins for one image and settings pair.
type grid struct {
	width, height int
	size, step    int
}

func newGrid(width, height int, s Settings) grid {
	return grid{width: width, height: height, size: s.TileSize, step: s.Step()}
}

// cols returns the number of tile origins x with x < width.
func (g grid) cols() int {
	return (g.width + g.step - 1) / g.step
}

// rows returns the number of tile origins y with y < height.
func (g grid) rows() int {
	return (g.height + g.step - 1) / g.step
}

func (g grid) tile(col, row int) Tile {
	x, y := col*g.step, row*g.step
	return Tile{
		X: x,
		Y: y,
		Bounds: image.Rect(x, y,
			min(x+g.size, g.width), min(y+g.size, g.height)),
	}
}

// Tiles returns the tiles of a width × height image in row-major order.
// Settings are normalized first.
func Tiles(width, height int, s Settings) []Tile {
	if width <= 0 || height <= 0 {
		return nil
	}
	g := newGrid(width, height, s.Normalize())
	tiles := make([]Tile, 0, g.cols()*g.rows())
	for row := range g.rows() {
		for col := range g.cols() {
			tiles = append(tiles, g.tile(col, row))
		}
	}
	return tiles
}

// sample returns the representative color of t.
func (p Sampling) sample(img *Raster, t Tile, size int) Color {
	if p == SamplingAverage {
		return sampleAverage(img, t.Bounds)
	}
	return sampleCenter(img, t.X, t.Y, size)
}

// sampleCenter reads the pixel at the tile center, clamped to the image.
func sampleCenter(img *Raster, x, y, size int) Color {
	cx := min(x+size/2, img.width-1)
	cy := min(y+size/2, img.height-1)
	return ColorFromNRGBA(img.NRGBAAt(cx, cy))
}

// sampleAverage averages each channel over the in-bounds pixels of b.
// R, G and B are rounded to nearest; alpha is averaged, then scaled to
// [0, 1]. b is never empty, so count > 0.
func sampleAverage(img *Raster, b image.Rectangle) Color {
	var sr, sg, sb, sa uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := (y*img.width + b.Min.X) * 4
		end := i + b.Dx()*4
		for ; i < end; i += 4 {
			sr += uint64(img.pix[i])
			sg += uint64(img.pix[i+1])
			sb += uint64(img.pix[i+2])
			sa += uint64(img.pix[i+3])
		}
	}
	n := float64(b.Dx() * b.Dy())
	return Color{
		R: uint8(math.Round(float64(sr) / n)),
		G: uint8(math.Round(float64(sg) / n)),
		B: uint8(math.Round(float64(sb) / n)),
		A: float64(sa) / n / 255,
	}
}

// insideDisk reports whether the center of local pixel (lx, ly) lies within
// the disk inscribed in a size × size tile. Coordinates are doubled so the
// test is exact: the pixel center is 2*l+1 and the disk center is size.
func insideDisk(lx, ly, size int) bool {
	dx := 2*lx + 1 - size
	dy := 2*ly + 1 - size
	return dx*dx+dy*dy <= size*size
}

// paintTile writes the tile color, composited over the background, into
// the pixels of t selected by shape.
func paintTile(dst *Surface, t Tile, size int, shape Shape, c Color, bg color.NRGBA) {
	var px color.NRGBA
	px.R, px.G, px.B, px.A = blend.Over(c.R, c.G, c.B, c.A, bg.R, bg.G, bg.B, bg.A)

	if shape != ShapeCircle {
		dst.fillRect(t.Bounds.Min.X, t.Bounds.Min.Y, t.Bounds.Max.X, t.Bounds.Max.Y, px)
		return
	}

	for y := t.Bounds.Min.Y; y < t.Bounds.Max.Y; y++ {
		ly := y - t.Y
		// A disk row is one contiguous run.
		x0 := t.Bounds.Min.X
		for x0 < t.Bounds.Max.X && !insideDisk(x0-t.X, ly, size) {
			x0++
		}
		x1 := x0
		for x1 < t.Bounds.Max.X && insideDisk(x1-t.X, ly, size) {
			x1++
		}
		if x0 < x1 {
			dst.setSpan(y, x0, x1, px)
		}
	}
}
