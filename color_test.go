package mosaic

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Color
	}{
		{"named black", "black", Black},
		{"named upper", " WHITE ", White},
		{"transparent", "transparent", Transparent},
		{"hex short", "#f80", RGB(255, 136, 0)},
		{"hex long", "#0a141e", RGB(10, 20, 30)},
		{"hex short alpha", "#0008", Color{A: 136.0 / 255}},
		{"hex long alpha", "#ff000080", Color{R: 255, A: 128.0 / 255}},
		{"rgb", "rgb(1, 2, 3)", RGB(1, 2, 3)},
		{"rgb percent", "rgb(100%, 0%, 50%)", RGB(255, 0, 128)},
		{"rgb clamped", "rgb(300, -4, 12)", RGB(255, 0, 12)},
		{"rgba", "rgba(0, 0, 0, 0.2)", Color{A: 0.2}},
		{"rgba alpha clamped", "rgba(0, 0, 0, 7)", Color{A: 1}},
		{"hsl red", "hsl(0, 100%, 50%)", RGB(255, 0, 0)},
		{"hsl negative hue", "hsl(-240deg, 100%, 50%)", RGB(0, 255, 0)},
		{"hsla", "hsla(240, 100%, 50%, 50%)", Color{B: 255, A: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor(%q) = %v", tt.in, err)
			}
			if got.R != tt.want.R || got.G != tt.want.G || got.B != tt.want.B ||
				math.Abs(got.A-tt.want.A) > 1e-9 {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseColorErrors(t *testing.T) {
	for _, in := range []string{
		"", "not-a-color", "#12", "#12345", "#gggggg", "rgb(1, 2)",
		"rgb(1, 2, x)", "rgba(1, 2, 3, 4, 5)", "rgb(1, 2, 3", "hsl(a, 1%, 1%)",
	} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseColor(%q) = %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestNormalizeBackground(t *testing.T) {
	tests := []struct {
		name string
		in   BackgroundInput
		want Color
	}{
		{"empty is black", BackgroundInput{}, Black},
		{"color alpha kept", BackgroundInput{Color: "rgba(1, 2, 3, 0.4)"}, Color{R: 1, G: 2, B: 3, A: 0.4}},
		{"unit overrides", BackgroundInput{Color: "#ffffff80", Opacity: 0.25, OpacityScale: OpacityUnit}, Color{R: 255, G: 255, B: 255, A: 0.25}},
		{"unit clamped high", BackgroundInput{Opacity: 1.5, OpacityScale: OpacityUnit}, Color{A: 1}},
		{"unit clamped low", BackgroundInput{Opacity: -2, OpacityScale: OpacityUnit}, Color{}},
		{"unit NaN", BackgroundInput{Opacity: math.NaN(), OpacityScale: OpacityUnit}, Color{}},
		{"byte", BackgroundInput{Color: "white", Opacity: 51, OpacityScale: OpacityByte}, Color{R: 255, G: 255, B: 255, A: 0.2}},
		{"byte clamped", BackgroundInput{Opacity: 999, OpacityScale: OpacityByte}, Color{A: 1}},
		{"color scale ignores opacity", BackgroundInput{Color: "white", Opacity: 0.1, OpacityScale: OpacityFromColor}, White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBackground(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got.R != tt.want.R || got.G != tt.want.G || got.B != tt.want.B ||
				math.Abs(got.A-tt.want.A) > 1e-9 {
				t.Errorf("NormalizeBackground(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := NormalizeBackground(BackgroundInput{Color: "bogus"}); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("bogus color: err = %v, want ErrInvalidColor", err)
	}
}

func TestParseOpacityScale(t *testing.T) {
	for _, s := range []OpacityScale{OpacityFromColor, OpacityUnit, OpacityByte} {
		got, err := ParseOpacityScale(s.String())
		if err != nil || got != s {
			t.Errorf("ParseOpacityScale(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseOpacityScale("percent"); err == nil {
		t.Error("ParseOpacityScale(percent) should fail")
	}
}

func TestColorConversions(t *testing.T) {
	c := Color{R: 10, G: 20, B: 30, A: 0.5}
	if got := c.Alpha8(); got != 128 {
		t.Errorf("Alpha8() = %d, want 128", got)
	}
	if got := c.NRGBA(); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 128}) {
		t.Errorf("NRGBA() = %v", got)
	}
	if got := (Color{A: 3}).Alpha8(); got != 255 {
		t.Errorf("Alpha8() of out-of-range alpha = %d, want 255", got)
	}
	if got := ColorFromNRGBA(color.NRGBA{R: 1, G: 2, B: 3, A: 255}); got != RGB(1, 2, 3) {
		t.Errorf("ColorFromNRGBA = %v", got)
	}
	if got := c.String(); got != "rgba(10, 20, 30, 0.5)" {
		t.Errorf("String() = %q", got)
	}
}
