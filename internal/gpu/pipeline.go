//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/mosaic"
	"github.com/gogpu/wgpu/hal"
)

// fenceTimeout bounds the wait for one submitted mosaic pass.
const fenceTimeout = 5 * time.Second

// mosaicPipeline owns every GPU object of the mosaic pass on one device.
//
// Lifecycle:
//   - newMosaicPipeline: shader, layouts, pipeline, quad and params buffers
//   - render: per call; size-dependent resources via textureSet
//   - destroy: everything, in reverse creation order
type mosaicPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	quadBuf    hal.Buffer
	paramsBuf  hal.Buffer

	textures  textureSet
	bindGroup hal.BindGroup
}

// newMosaicPipeline compiles the shader and creates the size-independent
// resources. On error everything created so far is released.
func newMosaicPipeline(device hal.Device, queue hal.Queue) (*mosaicPipeline, error) {
	p := &mosaicPipeline{device: device, queue: queue}
	if err := p.createPipeline(); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *mosaicPipeline) createPipeline() error {
	code, err := compileShader()
	if err != nil {
		return err
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mosaic_shader",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("create mosaic shader module: %w", err)
	}
	p.shader = shader

	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mosaic_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create mosaic bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "mosaic_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create mosaic pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// No blend state: the fragment output replaces the target.
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "mosaic_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create mosaic render pipeline: %w", err)
	}
	p.pipeline = pipeline

	quad := quadVertexBytes()
	quadBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_quad",
		Size:  uint64(len(quad)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create quad buffer: %w", err)
	}
	p.quadBuf = quadBuf
	p.queue.WriteBuffer(p.quadBuf, 0, quad)

	paramsBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	p.paramsBuf = paramsBuf
	return nil
}

func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
			},
		},
	}
}

// ensureResources sizes the texture set for w × h and rebuilds the bind
// group when the source buffer changed.
func (p *mosaicPipeline) ensureResources(w, h uint32) error {
	recreated, err := p.textures.ensureTextures(p.device, w, h)
	if err != nil {
		return err
	}
	if !recreated && p.bindGroup != nil {
		return nil
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mosaic_bind_group",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: p.textures.source.NativeHandle(), Offset: 0, Size: uint64(w) * uint64(h) * 4,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create mosaic bind group: %w", err)
	}
	p.bindGroup = bindGroup
	return nil
}

// render draws the mosaic of the w × h RGBA8 pixels src with normalized
// settings s and writes the result, tightly packed, into out.
func (p *mosaicPipeline) render(src []uint8, w, h uint32, s mosaic.Settings, out []uint8) error {
	if err := p.ensureResources(w, h); err != nil {
		return err
	}

	p.queue.WriteBuffer(p.textures.source, 0, src)
	p.queue.WriteBuffer(p.paramsBuf, 0, packParams(w, h, s))

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "mosaic_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mosaic_frame"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "mosaic_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       p.textures.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetVertexBuffer(0, p.quadBuf, 0)
	rp.Draw(quadVertexCount, 1, 0, 0)
	rp.End()

	// CopyTextureToBuffer needs the target out of the attachment layout.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: p.textures.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	rowBytes := w * 4
	alignedRow := alignedRowBytes(w)
	encoder.CopyTextureToBuffer(p.textures.target, p.textures.staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: p.textures.target, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: p.textures.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	fence, err := p.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer p.device.DestroyFence(fence)

	if err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := p.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, uint64(alignedRow)*uint64(h))
	if err := p.queue.ReadBuffer(p.textures.staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	stripRowPadding(readback, out, rowBytes, alignedRow, h)
	return nil
}

// stripRowPadding copies h rows of rowBytes from src, whose rows are
// alignedRow bytes apart, into the tightly packed dst.
func stripRowPadding(src, dst []byte, rowBytes, alignedRow, h uint32) {
	if rowBytes == alignedRow {
		copy(dst, src[:uint64(rowBytes)*uint64(h)])
		return
	}
	for row := range h {
		srcOff := int(row) * int(alignedRow)
		dstOff := int(row) * int(rowBytes)
		copy(dst[dstOff:dstOff+int(rowBytes)], src[srcOff:srcOff+int(rowBytes)])
	}
}

// destroy releases all resources in reverse creation order.
func (p *mosaicPipeline) destroy() {
	if p.device == nil {
		return
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	p.textures.destroyTextures(p.device)
	if p.paramsBuf != nil {
		p.device.DestroyBuffer(p.paramsBuf)
		p.paramsBuf = nil
	}
	if p.quadBuf != nil {
		p.device.DestroyBuffer(p.quadBuf)
		p.quadBuf = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
