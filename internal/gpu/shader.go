//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/mosaic"
	"github.com/gogpu/naga"
)

// mosaicShaderSource is the WGSL for the mosaic pass.
//
// Bindings:
//
//	@group(0) @binding(0) params: uniform Params (48 bytes)
//	@group(0) @binding(1) src:    storage array<u32>, one RGBA8 word per pixel
const mosaicShaderSource = `
struct Params {
    image_size: vec2<u32>,
    tile_size: u32,
    spacing: u32,
    shape: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
    background: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<u32>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos, 0.0, 1.0);
    return out;
}

fn unpack_rgba(p: u32) -> vec4<f32> {
    let r = f32(p & 255u);
    let g = f32((p >> 8u) & 255u);
    let b = f32((p >> 16u) & 255u);
    let a = f32((p >> 24u) & 255u);
    return vec4<f32>(r, g, b, a) / 255.0;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    // position.xy is the pixel center; truncation gives the pixel index.
    let x = u32(in.position.x);
    let y = u32(in.position.y);

    let size = params.tile_size;
    let step = size + params.spacing;
    let lx = x % step;
    let ly = y % step;
    if (lx >= size || ly >= size) {
        return params.background;
    }

    if (params.shape == 1u) {
        // Doubled coordinates: pixel center 2*l+1, disk center size.
        // size <= 32768 keeps the sums below 2^31.
        let dx = i32(lx * 2u + 1u) - i32(size);
        let dy = i32(ly * 2u + 1u) - i32(size);
        let r = i32(size);
        if (dx * dx + dy * dy > r * r) {
            return params.background;
        }
    }

    let cx = min(x - lx + size / 2u, params.image_size.x - 1u);
    let cy = min(y - ly + size / 2u, params.image_size.y - 1u);
    return unpack_rgba(src[cy * params.image_size.x + cx]);
}
`

// paramsSize is the byte size of the Params uniform.
const paramsSize = 48

// shapeCircle is the Params.shape value for circles; anything else is a square.
const shapeCircle = 1

// packParams serializes the uniform for an image of w × h pixels.
// s must be normalized.
func packParams(w, h uint32, s mosaic.Settings) []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:4], w)
	binary.LittleEndian.PutUint32(buf[4:8], h)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(s.TileSize)) //nolint:gosec // normalized, in [1, MaxTileSize]
	binary.LittleEndian.PutUint32(buf[12:16], uint32(s.Spacing)) //nolint:gosec // normalized, in [0, MaxSpacing]
	var shape uint32
	if s.Shape == mosaic.ShapeCircle {
		shape = shapeCircle
	}
	binary.LittleEndian.PutUint32(buf[16:20], shape)

	bg := s.Background
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(float32(bg.R)/255))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(float32(bg.G)/255))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(float32(bg.B)/255))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(float32(bg.A)))
	return buf
}

// compileShader translates mosaicShaderSource to SPIR-V words.
func compileShader() ([]uint32, error) {
	spirvBytes, err := naga.Compile(mosaicShaderSource)
	if err != nil {
		return nil, fmt.Errorf("compile mosaic shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile mosaic shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// quadVertices is two triangles covering clip space, as x, y float32 pairs.
var quadVertices = [12]float32{
	-1, -1, 1, -1, -1, 1,
	1, -1, 1, 1, -1, 1,
}

const (
	quadVertexCount  = 6
	quadVertexStride = 8
)

func quadVertexBytes() []byte {
	buf := make([]byte, len(quadVertices)*4)
	for i, v := range quadVertices {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
