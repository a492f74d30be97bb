// Package preview shows rendered mosaics in a terminal.
//
// Each terminal cell displays two vertically stacked pixels with the upper
// half block glyph: the foreground paints the top pixel, the background
// the bottom one. The image is scaled to fit the available cells with
// nearest-neighbor sampling, so tile edges stay crisp.
package preview

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"
)

// upperHalf is the glyph used for every image cell.
const upperHalf = '▀'

// Fit returns the largest size with the aspect ratio of w × h that fits in
// cols × rows cells, in pixels (two pixels per cell vertically).
func Fit(w, h, cols, rows int) (pw, ph int) {
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	maxW, maxH := cols, rows*2
	pw, ph = maxW, h*maxW/w
	if ph > maxH {
		pw, ph = w*maxH/h, maxH
	}
	return max(pw, 1), max(ph, 1)
}

// Scale resizes src to fit cols × rows cells.
func Scale(src image.Image, cols, rows int) *image.NRGBA {
	b := src.Bounds()
	pw, ph := Fit(b.Dx(), b.Dy(), cols, rows)
	dst := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	if pw == 0 || ph == 0 {
		return dst
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Draw paints src into the cells of area, centered, and clears the rest
// of area. It does not call Show.
func Draw(screen tcell.Screen, area image.Rectangle, src image.Image) {
	blank := tcell.StyleDefault.Background(tcell.ColorReset)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			screen.SetContent(x, y, ' ', nil, blank)
		}
	}

	img := Scale(src, area.Dx(), area.Dy())
	pw, ph := img.Rect.Dx(), img.Rect.Dy()
	ox := area.Min.X + (area.Dx()-pw)/2
	oy := area.Min.Y + (area.Dy()-(ph+1)/2)/2

	for cy := 0; cy*2 < ph; cy++ {
		for x := range pw {
			top := cellColor(img.NRGBAAt(x, cy*2))
			bottom := tcell.ColorReset
			if cy*2+1 < ph {
				bottom = cellColor(img.NRGBAAt(x, cy*2+1))
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			screen.SetContent(ox+x, oy+cy, upperHalf, nil, style)
		}
	}
}

// cellColor composites c over black, the terminal has no alpha.
func cellColor(c color.NRGBA) tcell.Color {
	a := int32(c.A)
	return tcell.NewRGBColor(
		int32(c.R)*a/255,
		int32(c.G)*a/255,
		int32(c.B)*a/255,
	)
}
