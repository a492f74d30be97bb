// Package mosaic renders raster images as tile mosaics.
//
// # Overview
//
// The source image is partitioned into a grid of square or circular tiles.
// Each tile is filled with one representative color taken from the pixels
// it covers, and tiles are separated by a gutter painted with a background
// color at a configurable opacity.
//
// # Quick Start
//
//	import "github.com/gogpu/mosaic"
//
//	f, _ := os.Open("photo.jpg")
//	img, err := mosaic.DecodeRaster(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := mosaic.DefaultSettings()
//	s.TileSize = 12
//	s.Shape = mosaic.ShapeCircle
//
//	out, err := mosaic.Render(img, s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out.SavePNG("mosaic.png")
//
// # Engines
//
// Two engines implement the same [Engine] contract:
//   - CPU: a single pass over the pixel buffer. Supports both sampling
//     policies, [SamplingCenter] (default) and [SamplingAverage].
//   - GPU: a WGSL fragment program evaluated per output pixel via
//     gogpu/wgpu. Center sampling only. Enabled by blank import:
//
//	import _ "github.com/gogpu/mosaic/gpu"
//
// Use [OpenEngine] with [ExecAuto] to prefer the GPU and fall back to the
// CPU engine when no adapter is available.
//
// # Coordinate System
//
// Origin (0,0) is the top-left pixel, X grows right and Y grows down.
// A pixel (x, y) covers the square [x, x+1) × [y, y+1); shape masks are
// evaluated at pixel centers.
//
// # Color Model
//
// Rasters and surfaces hold straight (non-premultiplied) RGBA bytes.
// The canonical [Color] keeps R, G, B in 0-255 and alpha in [0, 1].
package mosaic

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
