package mosaic

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one scheduled render.
type Result struct {
	// Seq is the sequence number Request returned.
	Seq uint64

	// Surface is the freshly allocated output, nil when Err is set.
	Surface *Surface

	// Settings are the normalized settings that produced Surface.
	Settings Settings

	// Err is the render error; context.Canceled for stale renders
	// cancelled by a newer request.
	Err error

	// Superseded is true when a newer request was already waiting when
	// this result was delivered.
	Superseded bool

	// Elapsed is the render duration.
	Elapsed time.Duration
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithCancelStale cancels the in-flight render as soon as a newer request
// arrives. Without it the in-flight render completes and is delivered
// with Superseded set.
func WithCancelStale() SchedulerOption {
	return func(s *Scheduler) {
		s.cancelStale = true
	}
}

// Scheduler turns render requests into asynchronous work on one engine.
//
// Request never blocks. At most one render runs at a time; a request made
// while a render runs is queued, and a newer request replaces a queued
// one, so the latest settings are always eventually rendered. Results are
// delivered in request order on the scheduler's goroutine.
type Scheduler struct {
	engine      Engine
	onResult    func(Result)
	cancelStale bool

	base       context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	pending *renderRequest
	running bool
	cancel  context.CancelFunc // in-flight render
	idle    chan struct{}      // closed when running turns false
	closed  bool
}

type renderRequest struct {
	seq      uint64
	img      *Raster
	settings Settings
}

// NewScheduler creates a scheduler rendering with e and delivering every
// result to onResult. The scheduler does not own e.
func NewScheduler(e Engine, onResult func(Result), opts ...SchedulerOption) *Scheduler {
	if onResult == nil {
		onResult = func(Result) {}
	}
	s := &Scheduler{engine: e, onResult: onResult}
	s.base, s.cancelBase = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request schedules a render of img with settings and returns its
// sequence number, or 0 when the scheduler is closed.
func (s *Scheduler) Request(img *Raster, settings Settings) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	s.seq++
	req := &renderRequest{seq: s.seq, img: img, settings: settings.Normalize()}
	if s.running {
		if s.pending != nil {
			Logger().Debug("render request superseded", "seq", s.pending.seq, "by", req.seq)
		}
		s.pending = req
		if s.cancelStale && s.cancel != nil {
			s.cancel()
		}
		return req.seq
	}

	ctx, cancel := context.WithCancel(s.base)
	s.running = true
	s.cancel = cancel
	s.idle = make(chan struct{})
	go s.run(ctx, req)
	return req.seq
}

// run renders req and then any request queued meanwhile.
func (s *Scheduler) run(ctx context.Context, req *renderRequest) {
	for {
		start := time.Now()
		dst := &Surface{}
		err := s.engine.Render(ctx, dst, req.img, req.settings)

		res := Result{Seq: req.seq, Settings: req.settings, Err: err, Elapsed: time.Since(start)}
		if err == nil {
			res.Surface = dst
		}
		s.mu.Lock()
		res.Superseded = s.pending != nil
		s.mu.Unlock()
		s.onResult(res)

		s.mu.Lock()
		s.cancel()
		next := s.pending
		s.pending = nil
		if next == nil || s.closed {
			s.running = false
			s.cancel = nil
			close(s.idle)
			s.mu.Unlock()
			return
		}
		ctx, s.cancel = context.WithCancel(s.base)
		s.mu.Unlock()
		req = next
	}
}

// Busy reports whether a render is running or queued.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until no render is running or queued, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drops any queued request, cancels the in-flight render and waits
// for it to finish. Request returns 0 afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.cancelBase()
	_ = s.Wait(context.Background())
}
