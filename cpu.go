package mosaic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/mosaic/internal/parallel"
)

// CPUEngine renders mosaics from the raster's pixel buffer on the CPU.
//
// The surface is filled with the background once, then each tile's
// representative color is sampled and its shape painted over it. Tiles
// never overlap, which makes tile rows independent: with WithWorkers the
// rows are painted in bands on a worker pool, with byte-identical output.
//
// CPUEngine is safe for concurrent use.
type CPUEngine struct {
	sampling Sampling
	workers  int

	poolOnce sync.Once
	pool     *parallel.WorkerPool
	closed   atomic.Bool
}

var _ Engine = (*CPUEngine)(nil)

// NewCPUEngine creates a CPU engine. The default is center sampling on the
// calling goroutine.
func NewCPUEngine(opts ...EngineOption) *CPUEngine {
	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampling != SamplingCenter && o.sampling != SamplingAverage {
		o.sampling = SamplingCenter
	}
	return &CPUEngine{sampling: o.sampling, workers: o.workers}
}

// Name returns "cpu".
func (e *CPUEngine) Name() string { return "cpu" }

// Sampling returns the engine's sampling policy.
func (e *CPUEngine) Sampling() Sampling { return e.sampling }

// Close stops the worker pool, if one was started. Render returns
// ErrEngineClosed afterwards.
func (e *CPUEngine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	// Settles a concurrent lazy start; later Renders see no pool.
	e.poolOnce.Do(func() {})
	if e.pool != nil {
		e.pool.Close()
	}
}

// Render paints the mosaic of img into dst.
//
// ctx is checked between tile rows; a cancelled render returns ctx.Err()
// and leaves dst partially painted.
func (e *CPUEngine) Render(ctx context.Context, dst *Surface, img *Raster, s Settings) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if dst == nil {
		return ErrNilSurface
	}
	if img == nil || img.width <= 0 || img.height <= 0 {
		return fmt.Errorf("%w: nil or empty raster", ErrInvalidRaster)
	}
	s = s.Normalize()
	start := time.Now()

	dst.Reset(img.width, img.height)
	dst.Fill(s.Background)

	g := newGrid(img.width, img.height, s)
	bg := s.Background.NRGBA()
	paintRows := func(from, to int) error {
		for row := from; row < to; row++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for col := range g.cols() {
				t := g.tile(col, row)
				c := e.sampling.sample(img, t, g.size)
				paintTile(dst, t, g.size, s.Shape, c, bg)
			}
		}
		return nil
	}

	var err error
	if pool := e.workerPool(); pool != nil && g.rows() > 1 {
		err = e.renderParallel(pool, g.rows(), paintRows)
	} else {
		err = paintRows(0, g.rows())
	}
	if err != nil {
		return err
	}

	Logger().Debug("cpu mosaic rendered",
		"width", img.width, "height", img.height,
		"tiles", g.cols()*g.rows(), "sampling", e.sampling,
		"settings", s, "elapsed", time.Since(start))
	return nil
}

// renderParallel splits the tile rows into bands, one work item per band.
// Bands cover disjoint pixel rows, so no synchronization is needed
// between them.
func (e *CPUEngine) renderParallel(pool *parallel.WorkerPool, rows int, paint func(from, to int) error) error {
	bands := parallel.Bands(rows, pool.Workers()*2)
	errs := make([]error, len(bands))
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			errs[i] = paint(b[0], b[1])
		}
	}
	pool.ExecuteAll(work)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// workerPool lazily starts the pool. It returns nil for sequential engines.
func (e *CPUEngine) workerPool() *parallel.WorkerPool {
	if e.workers == 1 {
		return nil
	}
	e.poolOnce.Do(func() {
		e.pool = parallel.NewWorkerPool(e.workers)
	})
	return e.pool
}
