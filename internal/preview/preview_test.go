package preview

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/mosaic"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		cols, rows   int
		wantW, wantH int
	}{
		{"wide image", 200, 100, 40, 20, 40, 20},
		{"tall image", 100, 400, 40, 20, 10, 40},
		{"exact", 80, 40, 80, 20, 80, 40},
		{"tiny", 1, 1, 10, 10, 10, 10},
		{"empty image", 0, 10, 10, 10, 0, 0},
		{"no cells", 10, 10, 0, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.cols, tt.rows)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Fit(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.cols, tt.rows, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestScaleNearest(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	src.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	src.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	dst := Scale(src, 4, 2)
	if dst.Rect.Dx() != 4 || dst.Rect.Dy() != 4 {
		t.Fatalf("scaled size %v, want 4x4", dst.Rect)
	}
	// Nearest neighbor keeps quadrants pure.
	if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("top-left = %v, want red", got)
	}
	if got := dst.NRGBAAt(3, 3); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("bottom-right = %v, want white", got)
	}
}

func TestDrawHalfBlocks(t *testing.T) {
	screen := newScreen(t, 4, 2)

	// 4x4 image: top half red, bottom half blue.
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			c := color.NRGBA{R: 255, A: 255}
			if y >= 2 {
				c = color.NRGBA{B: 255, A: 255}
			}
			src.SetNRGBA(x, y, c)
		}
	}
	Draw(screen, image.Rect(0, 0, 4, 2), src)

	for _, cell := range []struct {
		x, y   int
		fg, bg tcell.Color
	}{
		{0, 0, tcell.NewRGBColor(255, 0, 0), tcell.NewRGBColor(255, 0, 0)},
		{3, 1, tcell.NewRGBColor(0, 0, 255), tcell.NewRGBColor(0, 0, 255)},
	} {
		r, _, style, _ := screen.GetContent(cell.x, cell.y)
		if r != upperHalf {
			t.Errorf("cell (%d, %d) rune = %q, want %q", cell.x, cell.y, r, upperHalf)
		}
		fg, bg, _ := style.Decompose()
		if fg != cell.fg || bg != cell.bg {
			t.Errorf("cell (%d, %d) colors = %v/%v, want %v/%v", cell.x, cell.y, fg, bg, cell.fg, cell.bg)
		}
	}
}

func TestDrawCentersImage(t *testing.T) {
	screen := newScreen(t, 10, 2)

	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	Draw(screen, image.Rect(0, 0, 10, 2), src)

	// A square image in a 10x2 area is 4 cells wide, starting at column 3.
	if r, _, _, _ := screen.GetContent(2, 0); r != ' ' {
		t.Errorf("column 2 = %q, want blank", r)
	}
	if r, _, _, _ := screen.GetContent(3, 0); r != upperHalf {
		t.Errorf("column 3 = %q, want %q", r, upperHalf)
	}
	if r, _, _, _ := screen.GetContent(7, 0); r != ' ' {
		t.Errorf("column 7 = %q, want blank", r)
	}
}

func TestCellColorCompositesOverBlack(t *testing.T) {
	got := cellColor(color.NRGBA{R: 255, G: 100, B: 0, A: 51})
	want := tcell.NewRGBColor(51, 20, 0)
	if got != want {
		t.Errorf("cellColor = %v, want %v", got, want)
	}
}

func testRaster(t *testing.T) *mosaic.Raster {
	t.Helper()
	const w, h = 32, 16
	pix := make([]uint8, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = uint8(i), 128, 200, 255
	}
	img, err := mosaic.NewRaster(w, h, pix)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestViewerHandleKey(t *testing.T) {
	screen := newScreen(t, 40, 12)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	v := NewViewer(screen, e, testRaster(t), mosaic.DefaultSettings())
	defer v.Close()

	key := func(r rune) bool {
		return v.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}

	key('+')
	key('+')
	key('-')
	if got := v.Settings().TileSize; got != 9 {
		t.Errorf("TileSize = %d, want 9", got)
	}
	key(']')
	if got := v.Settings().Spacing; got != 2 {
		t.Errorf("Spacing = %d, want 2", got)
	}
	for range 5 {
		key('[')
	}
	if got := v.Settings().Spacing; got != 0 {
		t.Errorf("Spacing = %d, want 0", got)
	}
	key('s')
	if v.Settings().Shape != mosaic.ShapeCircle {
		t.Error("expected circle after toggle")
	}
	key('O')
	if got := v.Settings().Background.A; got != 0.3 {
		t.Errorf("opacity = %v, want 0.3", got)
	}
	for range 10 {
		key('o')
	}
	if got := v.Settings().Background.A; got != 0 {
		t.Errorf("opacity = %v, want 0", got)
	}

	if !key('q') {
		t.Error("q should quit")
	}
	if !v.HandleKey(tcell.NewEventKey(tcell.KeyEsc, 0, tcell.ModNone)) {
		t.Error("Esc should quit")
	}
	if key('x') {
		t.Error("unbound key should not quit")
	}
}

func TestViewerTileSizeLimits(t *testing.T) {
	screen := newScreen(t, 40, 12)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	s := mosaic.DefaultSettings()
	s.TileSize = mosaic.MaxUITileSize
	v := NewViewer(screen, e, testRaster(t), s)
	defer v.Close()

	v.HandleKey(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone))
	if got := v.Settings().TileSize; got != mosaic.MaxUITileSize {
		t.Errorf("TileSize = %d, want %d", got, mosaic.MaxUITileSize)
	}
}

func TestViewerKeysKeepOutOfRangeSettings(t *testing.T) {
	screen := newScreen(t, 40, 12)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	tests := []struct {
		name        string
		size, space int
		key         rune
		wantSize    int
		wantSpacing int
	}{
		{"smaller below slider", 2, 0, '-', 2, 0},
		{"larger below slider", 2, 0, '+', 3, 0},
		{"larger above slider", 80, 0, '+', 80, 0},
		{"smaller above slider", 80, 0, '-', 79, 0},
		{"wider gap above slider", 8, 25, ']', 8, 25},
		{"narrower gap above slider", 8, 25, '[', 8, 24},
		{"smaller at slider minimum", mosaic.MinUITileSize, 0, '-', mosaic.MinUITileSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mosaic.DefaultSettings()
			s.TileSize, s.Spacing = tt.size, tt.space
			v := NewViewer(screen, e, testRaster(t), s)
			defer v.Close()

			v.HandleKey(tcell.NewEventKey(tcell.KeyRune, tt.key, tcell.ModNone))
			got := v.Settings()
			if got.TileSize != tt.wantSize || got.Spacing != tt.wantSpacing {
				t.Errorf("after %q: size %d spacing %d, want %d, %d",
					tt.key, got.TileSize, got.Spacing, tt.wantSize, tt.wantSpacing)
			}
		})
	}
}

func TestViewerApply(t *testing.T) {
	screen := newScreen(t, 20, 6)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	v := NewViewer(screen, e, testRaster(t), mosaic.DefaultSettings())
	defer v.Close()

	surface, err := mosaic.Render(testRaster(t), v.Settings())
	if err != nil {
		t.Fatal(err)
	}

	v.apply(mosaic.Result{Surface: surface, Superseded: true})
	if v.last != nil {
		t.Error("superseded result must be skipped")
	}
	v.apply(mosaic.Result{Err: context.Canceled})
	if v.last != nil || v.lastErr != nil {
		t.Error("cancelled result must be skipped")
	}
	v.apply(mosaic.Result{Surface: surface})
	if v.last != surface {
		t.Fatal("expected surface to be shown")
	}

	found := false
	for x := range 20 {
		if r, _, _, _ := screen.GetContent(x, 0); r == upperHalf {
			found = true
		}
	}
	if !found {
		t.Error("expected image cells in the first row")
	}
	if r, _, _, _ := screen.GetContent(1, 5); r != 'c' {
		t.Errorf("status line starts with %q, want engine name", r)
	}
}

func TestViewerRunQuit(t *testing.T) {
	screen := newScreen(t, 40, 12)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	v := NewViewer(screen, e, testRaster(t), mosaic.DefaultSettings())

	errc := make(chan error, 1)
	go func() { errc <- v.Run(context.Background()) }()

	if err := screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	if err := screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after q")
	}
	if got := v.Settings().TileSize; got != 9 {
		t.Errorf("TileSize = %d, want 9", got)
	}
}

func TestViewerRunContext(t *testing.T) {
	screen := newScreen(t, 40, 12)
	e := mosaic.NewCPUEngine()
	defer e.Close()

	v := NewViewer(screen, e, testRaster(t), mosaic.DefaultSettings())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := v.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
}
