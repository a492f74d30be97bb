package mosaic

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned when a color string cannot be parsed.
var ErrInvalidColor = errors.New("mosaic: invalid color")

// Color is the canonical color representation shared by both engines.
// R, G and B are in the range 0-255; A is the opacity in the range [0, 1].
// Components are straight (not premultiplied by A).
type Color struct {
	R, G, B uint8
	A       float64
}

// RGB creates an opaque color from 0-255 components.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Common colors
var (
	Black       = RGB(0, 0, 0)
	White       = RGB(255, 255, 255)
	Transparent = Color{}
)

// Alpha8 returns the alpha scaled to 0-255 and rounded to nearest.
func (c Color) Alpha8() uint8 {
	return uint8(math.Round(clampUnit(c.A) * 255))
}

// NRGBA converts the color to a straight-alpha 8-bit color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.Alpha8()}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// String formats the color the way CSS writes it, e.g. "rgba(0, 0, 0, 0.2)".
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B,
		strconv.FormatFloat(clampUnit(c.A), 'f', -1, 64))
}

// ColorFromNRGBA converts a straight-alpha 8-bit color to a Color.
func ColorFromNRGBA(c color.NRGBA) Color {
	return Color{R: c.R, G: c.G, B: c.B, A: float64(c.A) / 255}
}

// OpacityScale declares the encoding of BackgroundInput.Opacity.
type OpacityScale uint8

const (
	// OpacityFromColor ignores Opacity and keeps the alpha of the color string.
	OpacityFromColor OpacityScale = iota

	// OpacityUnit reads Opacity in the range [0, 1].
	OpacityUnit

	// OpacityByte reads Opacity in the range [0, 255].
	OpacityByte
)

// String returns the scale name.
func (s OpacityScale) String() string {
	switch s {
	case OpacityFromColor:
		return "color"
	case OpacityUnit:
		return "unit"
	case OpacityByte:
		return "byte"
	default:
		return fmt.Sprintf("OpacityScale(%d)", s)
	}
}

// ParseOpacityScale parses "color", "unit" or "byte".
func ParseOpacityScale(s string) (OpacityScale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "color":
		return OpacityFromColor, nil
	case "unit":
		return OpacityUnit, nil
	case "byte":
		return OpacityByte, nil
	}
	return OpacityFromColor, fmt.Errorf("mosaic: unknown opacity scale %q", s)
}

// BackgroundInput carries a background color in any accepted encoding:
// a composed color string alone, or a color string plus a separate opacity
// on either a unit or a byte scale.
type BackgroundInput struct {
	// Color is "#rgb", "#rgba", "#rrggbb", "#rrggbbaa", "rgb(...)",
	// "rgba(...)", "hsl(...)", "hsla(...)" or a few names (black, white,
	// transparent). Empty means black.
	Color string

	// Opacity overrides the alpha of Color unless OpacityScale is
	// OpacityFromColor.
	Opacity      float64
	OpacityScale OpacityScale
}

// NormalizeBackground canonicalizes a background given in any accepted
// encoding. Out-of-range numbers are clamped; only an unparseable color
// string is an error.
func NormalizeBackground(in BackgroundInput) (Color, error) {
	c := Black
	if strings.TrimSpace(in.Color) != "" {
		parsed, err := ParseColor(in.Color)
		if err != nil {
			return Color{}, err
		}
		c = parsed
	}

	switch in.OpacityScale {
	case OpacityUnit:
		c.A = clampUnit(in.Opacity)
	case OpacityByte:
		c.A = clampRange(in.Opacity, 0, 255) / 255
	}
	c.A = clampUnit(c.A)
	return c, nil
}

var namedColors = map[string]Color{
	"black":       Black,
	"white":       White,
	"transparent": Transparent,
}

// ParseColor parses a CSS-style color string.
func ParseColor(s string) (Color, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[str]; ok {
		return c, nil
	}

	switch {
	case strings.HasPrefix(str, "#"):
		return parseHexColor(str)
	case strings.HasPrefix(str, "rgba(") || strings.HasPrefix(str, "rgb("):
		return parseRGBFunc(str)
	case strings.HasPrefix(str, "hsla(") || strings.HasPrefix(str, "hsl("):
		return parseHSLFunc(str)
	}
	return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// parseHexColor accepts "#rgb", "#rgba", "#rrggbb" and "#rrggbbaa".
func parseHexColor(s string) (Color, error) {
	digits := s[1:]
	var rgb, alpha string
	switch len(digits) {
	case 3, 6:
		rgb = digits
	case 4:
		rgb, alpha = digits[:3], digits[3:]+digits[3:]
	case 8:
		rgb, alpha = digits[:6], digits[6:]
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	cf, err := colorful.Hex("#" + rgb)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
	}
	r, g, b := cf.RGB255()
	c := Color{R: r, G: g, B: b, A: 1}
	if alpha != "" {
		a, err := strconv.ParseUint(alpha, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
		}
		c.A = float64(a) / 255
	}
	return c, nil
}

// parseRGBFunc accepts "rgb(r, g, b)" and "rgba(r, g, b, a)".
func parseRGBFunc(s string) (Color, error) {
	args, err := funcArgs(s)
	if err != nil {
		return Color{}, err
	}
	if len(args) != 3 && len(args) != 4 {
		return Color{}, fmt.Errorf("%w: %q: want 3 or 4 components", ErrInvalidColor, s)
	}

	var ch [3]uint8
	for i := range 3 {
		v, err := parseComponent(args[i], 255)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
		}
		ch[i] = uint8(math.Round(clampRange(v, 0, 255)))
	}

	c := Color{R: ch[0], G: ch[1], B: ch[2], A: 1}
	if len(args) == 4 {
		a, err := parseComponent(args[3], 1)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
		}
		c.A = clampUnit(a)
	}
	return c, nil
}

// parseHSLFunc accepts "hsl(h, s%, l%)" and "hsla(h, s%, l%, a)".
func parseHSLFunc(s string) (Color, error) {
	args, err := funcArgs(s)
	if err != nil {
		return Color{}, err
	}
	if len(args) != 3 && len(args) != 4 {
		return Color{}, fmt.Errorf("%w: %q: want 3 or 4 components", ErrInvalidColor, s)
	}

	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
	}
	sat, err := parseComponent(args[1], 1)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
	}
	light, err := parseComponent(args[2], 1)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
	}

	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsl(h, clampUnit(sat), clampUnit(light)).Clamped().RGB255()
	c := Color{R: r, G: g, B: b, A: 1}
	if len(args) == 4 {
		a, err := parseComponent(args[3], 1)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
		}
		c.A = clampUnit(a)
	}
	return c, nil
}

// funcArgs splits "name(a, b, c)" into its trimmed arguments.
func funcArgs(s string) ([]string, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// parseComponent parses a number or a percentage. Percentages are scaled
// to full, plain numbers are returned as is.
func parseComponent(s string, full float64) (float64, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		return v / 100 * full, nil
	}
	return strconv.ParseFloat(s, 64)
}

// clampUnit restricts a value to [0, 1]. NaN maps to 0.
func clampUnit(x float64) float64 {
	return clampRange(x, 0, 1)
}

// clampRange restricts a value to [lo, hi]. NaN maps to lo.
func clampRange(x, lo, hi float64) float64 {
	if !(x >= lo) {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
