//go:build !nogpu

// Package gpu registers the fragment-shader mosaic engine.
//
// Import this package to make mosaic.ExecGPU and mosaic.ExecAuto use the
// GPU. The device is opened lazily by mosaic.OpenEngine; if GPU
// initialization fails (no Vulkan available), ExecAuto falls back to the
// CPU engine and ExecGPU reports mosaic.ErrGPUUnavailable.
//
// Build with the nogpu tag to leave the engine out entirely.
//
// Usage:
//
//	import _ "github.com/gogpu/mosaic/gpu" // enable the GPU engine
package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/mosaic"
	gpuimpl "github.com/gogpu/mosaic/internal/gpu"
)

func init() {
	mosaic.RegisterGPUEngine(func() (mosaic.Engine, error) {
		return gpuimpl.New()
	})
}

// SetDeviceProvider makes GPU engines opened from now on render on the
// shared device of an external provider (e.g., a gogpu window) instead of
// opening their own. The provider must also expose HalDevice() any and
// HalQueue() any.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return fmt.Errorf("gpu: nil device provider")
	}
	mosaic.RegisterGPUEngine(func() (mosaic.Engine, error) {
		return gpuimpl.NewWithProvider(provider)
	})
	mosaic.Logger().Info("GPU mosaic engine switched to shared device")
	return nil
}
