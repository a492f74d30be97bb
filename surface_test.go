package mosaic

import (
	"bytes"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func TestSurfaceReset(t *testing.T) {
	s := NewSurface(4, 4)
	if len(s.Data()) != 64 {
		t.Fatalf("len(Data) = %d, want 64", len(s.Data()))
	}
	buf := &s.Data()[0]

	s.Reset(2, 3)
	if s.Width() != 2 || s.Height() != 3 || len(s.Data()) != 24 {
		t.Fatalf("Reset(2, 3) = %dx%d len %d", s.Width(), s.Height(), len(s.Data()))
	}
	if &s.Data()[0] != buf {
		t.Error("Reset to a smaller size should reuse the buffer")
	}

	s.Reset(-1, 5)
	if s.Width() != 0 || len(s.Data()) != 0 {
		t.Errorf("Reset(-1, 5) = %dx%d", s.Width(), s.Height())
	}
	s.Fill(White)
}

func TestSurfaceFill(t *testing.T) {
	for _, n := range []int{1, 3, 7, 16} {
		s := NewSurface(n, n)
		s.Fill(Color{R: 1, G: 2, B: 3, A: 0.2})
		want := color.NRGBA{R: 1, G: 2, B: 3, A: 51}
		for y := range n {
			for x := range n {
				if got := s.NRGBAAt(x, y); got != want {
					t.Fatalf("%dx%d: pixel (%d,%d) = %v, want %v", n, n, x, y, got, want)
				}
			}
		}
	}
}

func TestSurfaceFillRectAndSpan(t *testing.T) {
	s := NewSurface(4, 3)
	red := color.NRGBA{R: 255, A: 255}
	s.fillRect(1, 1, 3, 3, red)
	s.setSpan(0, 3, 4, red)

	for y := range 3 {
		for x := range 4 {
			in := (x >= 1 && x < 3 && y >= 1) || (x == 3 && y == 0)
			got := s.NRGBAAt(x, y)
			if in && got != red {
				t.Errorf("(%d,%d) = %v, want red", x, y, got)
			}
			if !in && got != (color.NRGBA{}) {
				t.Errorf("(%d,%d) = %v, want untouched", x, y, got)
			}
		}
	}

	// Empty rectangles are no-ops.
	s.fillRect(2, 2, 2, 3, color.NRGBA{G: 255, A: 255})
	if s.NRGBAAt(2, 2) != red {
		t.Error("empty fillRect modified a pixel")
	}
}

func TestSurfacePNG(t *testing.T) {
	s := NewSurface(3, 2)
	s.Fill(RGB(9, 8, 7))

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := img.At(2, 1).RGBA(); r>>8 != 9 || g>>8 != 8 || b>>8 != 7 {
		t.Errorf("decoded pixel = %v", img.At(2, 1))
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := s.SavePNG(path); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePNG(filepath.Join(t.TempDir(), "missing", "out.png")); err == nil {
		t.Error("SavePNG into a missing directory should fail")
	}
}

func TestSurfaceToImageCopies(t *testing.T) {
	s := NewSurface(1, 1)
	s.Fill(White)
	img := s.ToImage()
	img.Pix[0] = 0
	if s.NRGBAAt(0, 0) != White.NRGBA() {
		t.Error("ToImage must copy the pixels")
	}
}
