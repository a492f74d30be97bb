//go:build !nogpu

// Package gpu implements the mosaic engine as a WebGPU fragment shader.
//
// It runs on the gogpu/wgpu Pure Go WebGPU implementation (zero CGO) through
// its HAL layer, with WGSL compiled to SPIR-V by gogpu/naga.
//
// # Pipeline
//
// One full-screen quad is drawn into an RGBA8 render target the size of
// the source image. The fragment shader works out, for its own pixel, which
// tile it belongs to and where inside that tile it lies:
//
//	step  = tile_size + spacing
//	local = pixel % step
//	local outside tile_size       -> background (gutter)
//	circle and local outside disk -> background
//	otherwise                     -> source pixel at the tile center
//
// The source pixels are uploaded as a read-only storage buffer of packed
// RGBA8 words and fetched without filtering, so the tile center is read
// exactly. The render target is copied to a staging buffer and read back
// into the caller's surface.
//
// Only center sampling is available. The sampled color is written
// unmodified; unlike the CPU engine it is not composited over the
// background, so the two engines agree exactly for opaque images.
//
// # Resources
//
// The shader module, pipeline, quad vertex buffer and uniform buffer are
// created once per Engine. The source buffer, render target and staging
// buffer are recreated only when the image size changes.
//
// # Usage
//
// The package is internal; applications enable the engine by importing
// github.com/gogpu/mosaic/gpu and calling mosaic.OpenEngine.
package gpu
