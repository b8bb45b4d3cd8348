package imageprocessing

import (
	"image"

	"github.com/makeworld-the-better-one/dither/v2"
)

// DitherFloydSteinberg error-diffuses an image against the black/white
// palette. Only the photographic import path uses this; the render pipeline
// quantizes with the fixed threshold so generated screens stay reproducible.
func DitherFloydSteinberg(img image.Image) image.Image {
	if img == nil {
		return nil
	}

	ditherer := dither.NewDitherer(monoPalette)
	ditherer.Matrix = dither.FloydSteinberg
	return ditherer.Dither(img)
}
