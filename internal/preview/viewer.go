package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/mosaic"
)

// opacityStep is the background opacity change per key press.
const opacityStep = 0.1

// Viewer displays a mosaic and re-renders it whenever a key changes the
// settings. Renders go through a mosaic.Scheduler, so holding a key never
// queues more than one render.
//
// Keys:
//
//	+ / -   tile size
//	] / [   spacing
//	s       toggle square / circle
//	o / O   background opacity down / up
//	q, Esc  quit
type Viewer struct {
	screen   tcell.Screen
	img      *mosaic.Raster
	settings mosaic.Settings
	engine   string

	sched     *mosaic.Scheduler
	results   chan mosaic.Result
	done      chan struct{}
	closeOnce sync.Once

	last    *mosaic.Surface
	lastErr error
}

// NewViewer creates a viewer rendering img with e on an initialized screen.
// The viewer does not own e or the screen.
func NewViewer(screen tcell.Screen, e mosaic.Engine, img *mosaic.Raster, s mosaic.Settings) *Viewer {
	v := &Viewer{
		screen:   screen,
		img:      img,
		settings: s.Normalize(),
		engine:   e.Name(),
		results:  make(chan mosaic.Result),
		done:     make(chan struct{}),
	}
	v.sched = mosaic.NewScheduler(e, v.deliver, mosaic.WithCancelStale())
	return v
}

// Settings returns the current settings.
func (v *Viewer) Settings() mosaic.Settings {
	return v.settings
}

func (v *Viewer) deliver(r mosaic.Result) {
	select {
	case v.results <- r:
	case <-v.done:
	}
}

// Run renders the initial mosaic and processes events until the user quits
// or ctx is done. Run may be called once.
func (v *Viewer) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-v.done:
				return
			}
		}
	}()
	defer v.Close()

	v.sched.Request(v.img, v.settings)
	v.draw()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
				v.draw()
			case *tcell.EventKey:
				if v.HandleKey(ev) {
					return nil
				}
			}
		case r := <-v.results:
			v.apply(r)
		}
	}
}

// Close stops rendering. Run calls it on return.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		close(v.done)
		v.sched.Close()
	})
}

// HandleKey applies a key press. It reports whether the viewer should quit.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEsc, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	s := v.settings
	switch ev.Rune() {
	case 'q':
		return true
	case '+', '=':
		s.TileSize = stepUp(s.TileSize, mosaic.MaxUITileSize)
	case '-':
		s.TileSize = stepDown(s.TileSize, mosaic.MinUITileSize)
	case ']':
		s.Spacing = stepUp(s.Spacing, mosaic.MaxUISpacing)
	case '[':
		s.Spacing = stepDown(s.Spacing, 0)
	case 's':
		if s.Shape == mosaic.ShapeCircle {
			s.Shape = mosaic.ShapeSquare
		} else {
			s.Shape = mosaic.ShapeCircle
		}
	case 'o':
		s.Background.A = roundOpacity(s.Background.A - opacityStep)
	case 'O':
		s.Background.A = roundOpacity(s.Background.A + opacityStep)
	default:
		return false
	}

	s = s.Normalize()
	if s != v.settings {
		v.settings = s
		v.sched.Request(v.img, s)
		v.draw()
	}
	return false
}

// stepUp increments v unless it is already at or above hi. Values set
// outside the slider range, e.g. from the command line, are never pulled
// into it by a key press.
func stepUp(v, hi int) int {
	if v >= hi {
		return v
	}
	return v + 1
}

// stepDown decrements v unless it is already at or below lo.
func stepDown(v, lo int) int {
	if v <= lo {
		return v
	}
	return v - 1
}

// roundOpacity keeps key-driven opacity on the 0.1 grid.
func roundOpacity(a float64) float64 {
	return math.Round(a*10) / 10
}

// apply shows a finished render. Results superseded by a newer request are
// skipped; the newer one follows.
func (v *Viewer) apply(r mosaic.Result) {
	switch {
	case r.Superseded:
		return
	case errors.Is(r.Err, context.Canceled):
		return
	case r.Err != nil:
		v.lastErr = r.Err
	default:
		v.last = r.Surface
		v.lastErr = nil
	}
	v.draw()
}

// draw repaints the image area and the status line.
func (v *Viewer) draw() {
	cols, rows := v.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	if v.last != nil && rows > 1 {
		Draw(v.screen, image.Rect(0, 0, cols, rows-1), v.last)
	}
	v.drawStatus(cols, rows-1)
	v.screen.Show()
}

func (v *Viewer) drawStatus(cols, row int) {
	status := fmt.Sprintf(" %s | %s", v.engine, v.settings)
	if v.sched.Busy() {
		status += " | rendering"
	}
	if v.lastErr != nil {
		status += " | error: " + v.lastErr.Error()
	}
	style := tcell.StyleDefault.Reverse(true)
	runes := []rune(status)
	for x := range cols {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		v.screen.SetContent(x, row, r, nil, style)
	}
}
