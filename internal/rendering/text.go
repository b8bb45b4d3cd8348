package rendering

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// bodyFontSize is the fixed point size used by the plain text mode.
	bodyFontSize = 24
	// textMargin keeps rendered text off the panel bleed area.
	textMargin = 40
)

var (
	parsedFontOnce sync.Once
	parsedFont     *opentype.Font
	parsedFontErr  error
)

func loadFont() (*opentype.Font, error) {
	parsedFontOnce.Do(func() {
		parsedFont, parsedFontErr = opentype.Parse(goregular.TTF)
	})
	return parsedFont, parsedFontErr
}

func newFace(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// renderText lays out content as wrapped body text at a fixed font size,
// top-aligned with a margin. Text that cannot fit is clipped; the canvas is
// always exactly one page.
func (r *Rasterizer) renderText(content string, width, height int) (*image.RGBA, error) {
	canvas := newBlankCanvas(width, height)
	if strings.TrimSpace(content) == "" {
		return canvas, nil
	}

	face, err := newFace(bodyFontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := wrapText(face, content, width-2*textMargin)
	drawLines(canvas, face, lines, textMargin, textMargin, height)
	return canvas, nil
}

// wrapText breaks content into lines that fit maxWidth, wrapping at word
// boundaries. Explicit newlines are preserved. A single word wider than
// maxWidth gets its own line and is clipped when drawn.
func wrapText(face font.Face, content string, maxWidth int) []string {
	maxW := fixed.I(maxWidth)
	var lines []string

	for _, paragraph := range strings.Split(content, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if font.MeasureString(face, candidate) <= maxW {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}

// drawLines paints lines downward from (x, y), stopping at the bottom
// margin. Returns nothing; overflow is simply not drawn.
func drawLines(canvas *image.RGBA, face font.Face, lines []string, x, y, canvasHeight int) {
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	baseline := y + metrics.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: face,
	}

	for _, line := range lines {
		if baseline+metrics.Descent.Ceil() > canvasHeight-textMargin {
			break
		}
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
		baseline += lineHeight
	}
}

// lineWidth measures a single line in pixels.
func lineWidth(face font.Face, line string) int {
	return font.MeasureString(face, line).Ceil()
}
