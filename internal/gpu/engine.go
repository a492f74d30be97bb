//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/mosaic"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Default WebGPU limits bound what one pass can handle.
const (
	maxTextureDimension2D = 8192
	maxStorageBindingSize = 128 << 20
)

// errTooLarge is returned for images beyond the device limits.
var errTooLarge = errors.New("gpu: image exceeds device limits")

// Engine renders mosaics with a fragment shader. It implements mosaic.Engine.
//
// Engine is safe for concurrent use; renders are serialized on the device.
type Engine struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	pipe     *mosaicPipeline

	externalDevice bool // true when using shared device (don't destroy on Close)
	closed         bool
}

var _ mosaic.Engine = (*Engine)(nil)

// New opens a Vulkan device, preferring a discrete or integrated GPU, and
// builds the mosaic pipeline on it.
func New() (*Engine, error) {
	e := &Engine{}
	if err := e.initGPU(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// NewWithDevice builds an engine on a device owned by the caller.
// Close releases the engine's pipeline but not the device.
func NewWithDevice(device hal.Device, queue hal.Queue) (*Engine, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("gpu: nil device or queue")
	}
	pipe, err := newMosaicPipeline(device, queue)
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	return &Engine{device: device, queue: queue, pipe: pipe, externalDevice: true}, nil
}

// NewWithProvider builds an engine on the shared device of a gogpu
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewWithProvider(provider gpucontext.DeviceProvider) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("gpu: nil device provider")
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	e, err := NewWithDevice(device, queue)
	if err != nil {
		return nil, err
	}
	slogger().Info("gpu: mosaic engine on shared device", "format", provider.SurfaceFormat())
	return e, nil
}

func (e *Engine) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	e.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("gpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("gpu: open device: %w", err)
	}
	e.device = openDev.Device
	e.queue = openDev.Queue

	pipe, err := newMosaicPipeline(e.device, e.queue)
	if err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	e.pipe = pipe
	slogger().Info("gpu: mosaic engine initialized", "adapter", selected.Info.Name)
	return nil
}

// Name returns "gpu".
func (e *Engine) Name() string { return "gpu" }

// Sampling returns mosaic.SamplingCenter, the only policy of the shader.
func (e *Engine) Sampling() mosaic.Sampling { return mosaic.SamplingCenter }

// SetLogger sets the logger for the GPU engine.
// Called by mosaic.SetLogger to propagate logging configuration.
func (e *Engine) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Render draws the mosaic of img into dst.
//
// ctx is checked before the pass is submitted; a submitted pass always
// completes.
func (e *Engine) Render(ctx context.Context, dst *mosaic.Surface, img *mosaic.Raster, s mosaic.Settings) error {
	if dst == nil {
		return mosaic.ErrNilSurface
	}
	if img == nil || img.Width() <= 0 || img.Height() <= 0 {
		return fmt.Errorf("%w: nil or empty raster", mosaic.ErrInvalidRaster)
	}
	w, h := img.Width(), img.Height()
	if w > maxTextureDimension2D || h > maxTextureDimension2D || w*h*4 > maxStorageBindingSize {
		return fmt.Errorf("%w: %dx%d", errTooLarge, w, h)
	}
	s = s.Normalize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.pipe == nil {
		return mosaic.ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	dst.Reset(w, h)
	//nolint:gosec // dimensions checked above
	if err := e.pipe.render(img.Pix(), uint32(w), uint32(h), s, dst.Data()); err != nil {
		slogger().Warn("gpu: mosaic pass failed", "err", err)
		return fmt.Errorf("gpu: %w", err)
	}
	slogger().Debug("gpu: mosaic rendered",
		"width", w, "height", h, "settings", s, "elapsed", time.Since(start))
	return nil
}

// Close releases the pipeline and, unless the device is shared, the device.
// Render returns mosaic.ErrEngineClosed afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true

	if e.pipe != nil {
		e.pipe.destroy()
		e.pipe = nil
	}
	if !e.externalDevice {
		if e.device != nil {
			e.device.Destroy()
		}
		if e.instance != nil {
			e.instance.Destroy()
		}
	}
	e.device = nil
	e.queue = nil
	e.instance = nil
}
