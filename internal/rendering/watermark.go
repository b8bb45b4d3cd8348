package rendering

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	watermarkFontSize = 14
	watermarkMargin   = 5
	watermarkPadding  = 2
)

// drawWatermark stamps a small labeled box in the bottom right corner
// of the canvas. White fill with a black border keeps the label legible
// on both light and dark content.
func drawWatermark(canvas *image.RGBA, text string) error {
	face, err := newFace(watermarkFontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	bounds := canvas.Bounds()
	metrics := face.Metrics()
	textW := lineWidth(face, text)
	textH := metrics.Ascent.Ceil() + metrics.Descent.Ceil()

	boxW := textW + 2*watermarkPadding
	boxH := textH + 2*watermarkPadding
	boxX := bounds.Max.X - watermarkMargin - boxW
	boxY := bounds.Max.Y - watermarkMargin - boxH
	if boxX < bounds.Min.X || boxY < bounds.Min.Y {
		// Canvas too small for the label, skip rather than fail.
		return nil
	}

	box := image.Rect(boxX, boxY, boxX+boxW, boxY+boxH)
	draw.Draw(canvas, box, image.NewUniform(color.White), image.Point{}, draw.Src)
	drawRectOutline(canvas, box, color.Black)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(boxX + watermarkPadding),
			Y: fixed.I(boxY + watermarkPadding + metrics.Ascent.Ceil()),
		},
	}
	drawer.DrawString(text)
	return nil
}

func drawRectOutline(canvas *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		canvas.Set(x, r.Min.Y, c)
		canvas.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		canvas.Set(r.Min.X, y, c)
		canvas.Set(r.Max.X-1, y, c)
	}
}
