//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the WebGPU row alignment for texture/buffer copies.
const copyPitchAlignment = 256

// alignedRowBytes returns the padded bytes per row for a w pixel RGBA8 row.
func alignedRowBytes(w uint32) uint32 {
	return (w*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// textureSet holds the size-dependent resources of a mosaic pass:
//   - source: storage buffer with the image, one RGBA8 word per pixel
//   - target: 1x sample, RGBA8Unorm, RenderAttachment | CopySrc
//   - staging: MapRead buffer receiving the target with 256-byte rows
type textureSet struct {
	source     hal.Buffer
	target     hal.Texture
	targetView hal.TextureView
	staging    hal.Buffer
	width      uint32
	height     uint32
}

// ensureTextures creates or recreates the resources if the requested
// dimensions differ from the current size. It reports whether anything
// was recreated, so callers can rebuild bind groups.
func (ts *textureSet) ensureTextures(device hal.Device, w, h uint32) (bool, error) {
	if ts.width == w && ts.height == h && ts.target != nil {
		return false, nil
	}
	ts.destroyTextures(device)

	source, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_source",
		Size:  uint64(w) * uint64(h) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return false, fmt.Errorf("create source buffer: %w", err)
	}
	ts.source = source

	target, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "mosaic_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		ts.destroyTextures(device)
		return false, fmt.Errorf("create target texture: %w", err)
	}
	ts.target = target

	targetView, err := device.CreateTextureView(target, &hal.TextureViewDescriptor{
		Label: "mosaic_target_view",
	})
	if err != nil {
		ts.destroyTextures(device)
		return false, fmt.Errorf("create target view: %w", err)
	}
	ts.targetView = targetView

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_staging",
		Size:  uint64(alignedRowBytes(w)) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		ts.destroyTextures(device)
		return false, fmt.Errorf("create staging buffer: %w", err)
	}
	ts.staging = staging

	ts.width = w
	ts.height = h
	return true, nil
}

// destroyTextures releases all resources. Safe to call on an empty set.
func (ts *textureSet) destroyTextures(device hal.Device) {
	if ts.staging != nil {
		device.DestroyBuffer(ts.staging)
		ts.staging = nil
	}
	if ts.targetView != nil {
		device.DestroyTextureView(ts.targetView)
		ts.targetView = nil
	}
	if ts.target != nil {
		device.DestroyTexture(ts.target)
		ts.target = nil
	}
	if ts.source != nil {
		device.DestroyBuffer(ts.source)
		ts.source = nil
	}
	ts.width = 0
	ts.height = 0
}
