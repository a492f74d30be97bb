// Command mosaic renders images as tile mosaics.
//
// Usage:
//
//	mosaic render -i photo.jpg -o mosaic.png --size 12 --spacing 2 --shape circle
//	mosaic render -i photo.jpg --preview
//	mosaic config --size 16
//
// Every flag can also be set in a YAML config file (--config, default
// $HOME/.mosaic.yaml) or as a MOSAIC_* environment variable, e.g.
// MOSAIC_SIZE=16 or MOSAIC_OPACITY_SCALE=byte.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
