package mosaic

import (
	"fmt"
	"strings"
)

// Shape is the mask applied inside each tile's bounding box.
type Shape uint8

const (
	// ShapeSquare fills the whole tile box.
	ShapeSquare Shape = iota

	// ShapeCircle fills the disk inscribed in the tile box; the corners
	// keep the background.
	ShapeCircle
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeCircle:
		return "circle"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

// ParseShape parses "square" or "circle".
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square":
		return ShapeSquare, nil
	case "circle":
		return ShapeCircle, nil
	}
	return ShapeSquare, fmt.Errorf("mosaic: unknown shape %q", s)
}

// Upper bounds applied by Settings.Normalize. A square tile at
// MaxTileSize already covers any image the GPU engine accepts, and
// (MaxTileSize-1)² summed over both axes of the circle test stays below
// 2³¹.
const (
	MaxTileSize = 1 << 15
	MaxSpacing  = 1 << 15
)

// Slider ranges of the interactive controls. Settings outside these ranges
// are still valid; they only bound what a UI offers.
const (
	MinUITileSize = 4
	MaxUITileSize = 50
	MaxUISpacing  = 10
)

// Settings describes one mosaic rendering. It is a plain value: copy it,
// patch the copy and pass it to the next render.
type Settings struct {
	// TileSize is the edge length of a tile in pixels (>= 1).
	TileSize int

	// Spacing is the gutter between adjacent tiles in pixels (>= 0).
	Spacing int

	// Shape is the tile mask.
	Shape Shape

	// Background fills gutters and the area outside circle masks.
	// Background.A is the opacity.
	Background Color
}

// DefaultSettings returns 8px square tiles with a 1px gutter over a 20%
// black background.
func DefaultSettings() Settings {
	return Settings{
		TileSize:   8,
		Spacing:    1,
		Shape:      ShapeSquare,
		Background: Color{A: 0.2},
	}
}

// Normalize returns a copy with every field clamped into its valid range:
// TileSize in [1, MaxTileSize], Spacing in [0, MaxSpacing], Background.A
// in [0, 1] and unknown shapes mapped to ShapeSquare. Values come from
// continuous controls, so they are clamped rather than rejected.
//
// Circles larger than MaxTileSize are drawn at MaxTileSize.
func (s Settings) Normalize() Settings {
	s.TileSize = min(max(s.TileSize, 1), MaxTileSize)
	s.Spacing = min(max(s.Spacing, 0), MaxSpacing)
	if s.Shape != ShapeSquare && s.Shape != ShapeCircle {
		s.Shape = ShapeSquare
	}
	s.Background.A = clampUnit(s.Background.A)
	return s
}

// Step returns the distance between adjacent tile origins. It is only
// meaningful on normalized settings.
func (s Settings) Step() int {
	return s.TileSize + s.Spacing
}

// String formats the settings for logs.
func (s Settings) String() string {
	return fmt.Sprintf("size=%d spacing=%d shape=%s background=%s",
		s.TileSize, s.Spacing, s.Shape, s.Background)
}
