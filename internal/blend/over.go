// Package blend implements the compositing used to lay tile colors over
// the background.
//
// Unlike GPU render targets, surfaces here hold straight (non-premultiplied)
// alpha, the layout canvas APIs expose. Results are rounded to nearest.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

import "math"

// Over composites a straight-alpha source over a straight-alpha
// destination (Porter-Duff source-over):
//
//	ao = as + ad*(1-as)
//	co = (cs*as + cd*ad*(1-as)) / ao
//
// The source alpha sa is in [0, 1]; everything else is 0-255.
// A fully transparent result is returned as transparent black.
func Over(sr, sg, sb uint8, sa float64, dr, dg, db, da uint8) (r, g, b, a uint8) {
	switch {
	case sa >= 1:
		return sr, sg, sb, 255
	case !(sa > 0):
		return dr, dg, db, da
	}

	dA := float64(da) / 255
	dw := dA * (1 - sa)
	ao := sa + dw
	if ao <= 0 {
		return 0, 0, 0, 0
	}
	r = channel(sr, dr, sa, dw, ao)
	g = channel(sg, dg, sa, dw, ao)
	b = channel(sb, db, sa, dw, ao)
	a = uint8(math.Round(math.Min(ao, 1) * 255))
	return r, g, b, a
}

func channel(s, d uint8, sw, dw, ao float64) uint8 {
	v := (float64(s)*sw + float64(d)*dw) / ao
	return uint8(math.Round(math.Min(math.Max(v, 0), 255)))
}
