package mosaic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrGPUUnavailable is returned when no GPU engine is registered or the
	// registered one fails to initialize.
	ErrGPUUnavailable = errors.New("mosaic: GPU engine unavailable")

	// ErrUnsupportedSampling is returned when an engine cannot provide the
	// requested sampling policy.
	ErrUnsupportedSampling = errors.New("mosaic: sampling policy not supported by engine")

	// ErrEngineClosed is returned by Render after Close.
	ErrEngineClosed = errors.New("mosaic: engine closed")
)

// Engine renders a mosaic of a raster into a surface.
//
// Render resizes dst to the raster's dimensions and overwrites every pixel.
// Settings are normalized by the engine. An engine must be safe for
// concurrent Render calls; each call needs its own dst.
type Engine interface {
	// Name returns the engine name (e.g., "cpu", "gpu").
	Name() string

	// Sampling returns the sampling policy the engine applies.
	Sampling() Sampling

	// Render paints the mosaic of img into dst.
	Render(ctx context.Context, dst *Surface, img *Raster, s Settings) error

	// Close releases the engine's resources.
	Close()
}

// Execution selects the engine implementation.
type Execution uint8

const (
	// ExecAuto uses the GPU engine when available and the CPU engine
	// otherwise.
	ExecAuto Execution = iota

	// ExecCPU always uses the CPU engine.
	ExecCPU

	// ExecGPU requires the GPU engine.
	ExecGPU
)

// String returns the execution name.
func (e Execution) String() string {
	switch e {
	case ExecAuto:
		return "auto"
	case ExecCPU:
		return "cpu"
	case ExecGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Execution(%d)", e)
	}
}

// ParseExecution parses "auto", "cpu" or "gpu".
func ParseExecution(s string) (Execution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ExecAuto, nil
	case "cpu":
		return ExecCPU, nil
	case "gpu":
		return ExecGPU, nil
	}
	return ExecAuto, fmt.Errorf("mosaic: unknown engine %q", s)
}

// EngineOption configures an engine at creation.
//
// Example:
//
//	e := mosaic.NewCPUEngine(mosaic.WithSampling(mosaic.SamplingAverage), mosaic.WithWorkers(4))
type EngineOption func(*engineOptions)

// engineOptions holds optional engine configuration.
type engineOptions struct {
	sampling Sampling
	workers  int
}

// defaultEngineOptions returns center sampling on a single goroutine.
func defaultEngineOptions() engineOptions {
	return engineOptions{
		sampling: SamplingCenter,
		workers:  1,
	}
}

// WithSampling selects the sampling policy.
func WithSampling(p Sampling) EngineOption {
	return func(o *engineOptions) {
		o.sampling = p
	}
}

// WithWorkers paints tile rows on n goroutines. n <= 0 uses GOMAXPROCS;
// 1 (the default) keeps rendering sequential. Ignored by the GPU engine.
func WithWorkers(n int) EngineOption {
	return func(o *engineOptions) {
		o.workers = n
	}
}

// GPUEngineFactory creates a GPU engine. Each call must return an engine
// that exclusively owns its GPU resources.
type GPUEngineFactory func() (Engine, error)

var (
	gpuFactoryMu sync.RWMutex
	gpuFactory   GPUEngineFactory

	// liveEngines tracks open GPU engines for logger propagation.
	enginesMu   sync.Mutex
	liveEngines = map[Engine]struct{}{}
)

// RegisterGPUEngine registers the factory used by OpenEngine for the GPU.
// Subsequent calls replace the previous factory.
//
// Typical usage via blank import in the GPU package:
//
//	func init() {
//	    mosaic.RegisterGPUEngine(func() (mosaic.Engine, error) { return gpuimpl.New() })
//	}
func RegisterGPUEngine(f GPUEngineFactory) {
	gpuFactoryMu.Lock()
	gpuFactory = f
	gpuFactoryMu.Unlock()
}

// GPUEngineRegistered reports whether a GPU engine factory is registered.
func GPUEngineRegistered() bool {
	gpuFactoryMu.RLock()
	defer gpuFactoryMu.RUnlock()
	return gpuFactory != nil
}

// OpenEngine creates an engine for the requested execution.
//
// ExecGPU returns ErrGPUUnavailable (wrapping the cause) when the GPU
// engine cannot start, and ErrUnsupportedSampling for SamplingAverage.
// ExecAuto never fails: it logs the reason and falls back to the CPU.
func OpenEngine(exec Execution, opts ...EngineOption) (Engine, error) {
	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	switch exec {
	case ExecCPU:
		return NewCPUEngine(opts...), nil
	case ExecGPU:
		return openGPU(o)
	case ExecAuto:
		if o.sampling != SamplingCenter {
			Logger().Debug("GPU engine skipped", "sampling", o.sampling)
			return NewCPUEngine(opts...), nil
		}
		e, err := openGPU(o)
		if err != nil {
			Logger().Warn("GPU mosaic engine not available, using CPU", "err", err)
			return NewCPUEngine(opts...), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("mosaic: unknown execution %v", exec)
	}
}

func openGPU(o engineOptions) (Engine, error) {
	if o.sampling != SamplingCenter {
		return nil, fmt.Errorf("%w: gpu supports %v only, got %v",
			ErrUnsupportedSampling, SamplingCenter, o.sampling)
	}

	gpuFactoryMu.RLock()
	f := gpuFactory
	gpuFactoryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: no GPU engine registered (import github.com/gogpu/mosaic/gpu)", ErrGPUUnavailable)
	}

	e, err := f()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGPUUnavailable, err)
	}
	propagateLogger(e, Logger())
	trackEngine(e)
	Logger().Info("GPU mosaic engine opened", "engine", e.Name())
	return &trackedEngine{Engine: e}, nil
}

func trackEngine(e Engine) {
	enginesMu.Lock()
	liveEngines[e] = struct{}{}
	enginesMu.Unlock()
}

func untrackEngine(e Engine) {
	enginesMu.Lock()
	delete(liveEngines, e)
	enginesMu.Unlock()
}

// trackedEngine removes a GPU engine from logger propagation on Close.
type trackedEngine struct {
	Engine
	once sync.Once
}

func (t *trackedEngine) Close() {
	t.once.Do(func() {
		untrackEngine(t.Engine)
		t.Engine.Close()
	})
}

// Render renders img with the CPU engine into a new surface.
func Render(img *Raster, s Settings, opts ...EngineOption) (*Surface, error) {
	e := NewCPUEngine(opts...)
	defer e.Close()

	dst := &Surface{}
	if err := e.Render(context.Background(), dst, img, s); err != nil {
		return nil, err
	}
	return dst, nil
}
