package imageprocessing

import (
	"image"
	"image/color"
)

// monoThreshold is the fixed luminance cut between black and white. The
// panel is strictly bicolor, so intermediate tones must resolve the same
// way on every run; no error diffusion happens here.
const monoThreshold = 128

// monoPalette is the two-entry palette shared by both encoders:
// index 0 is black, index 1 is white.
var monoPalette = color.Palette{
	color.Gray{Y: 0},
	color.Gray{Y: 255},
}

// ToGrayscale converts an image to grayscale using the standard luminance
// weights (via color.GrayModel).
func ToGrayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// QuantizeMono reduces a canvas to a strict black/white paletted image by
// thresholding luminance. Deterministic: the same canvas always quantizes
// to the same output.
func QuantizeMono(img image.Image) *image.Paletted {
	gray := ToGrayscale(img)
	bounds := gray.Bounds()

	paletted := image.NewPaletted(bounds, monoPalette)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= monoThreshold {
				paletted.SetColorIndex(x, y, 1)
			} else {
				paletted.SetColorIndex(x, y, 0)
			}
		}
	}
	return paletted
}
