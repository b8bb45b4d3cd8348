package rendering

import (
	"image"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	bigTextMinSize = 12
	bigTextMaxSize = 320
)

// renderBigText lays out content at the largest font size whose wrapped
// lines fit the canvas without clipping, maximizing screen coverage. The
// block is centered both ways.
func (r *Rasterizer) renderBigText(content string, width, height int) (*image.RGBA, error) {
	canvas := newBlankCanvas(width, height)
	if strings.TrimSpace(content) == "" {
		return canvas, nil
	}

	size, err := maxFittingSize(content, width-2*textMargin, height-2*textMargin)
	if err != nil {
		return nil, err
	}

	face, err := newFace(float64(size))
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := wrapText(face, content, width-2*textMargin)
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	blockHeight := len(lines) * lineHeight

	y := (height - blockHeight) / 2
	if y < textMargin {
		y = textMargin
	}
	baseline := y + metrics.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: face,
	}
	for _, line := range lines {
		x := (width - lineWidth(face, line)) / 2
		if x < textMargin {
			x = textMargin
		}
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
		baseline += lineHeight
	}

	return canvas, nil
}

// maxFittingSize binary-searches for the largest font size at which every
// wrapped line fits maxWidth and the full block fits maxHeight. Multi-line
// content is bounded by its widest line and total line count. Falls back to
// the minimum size for content that fits at no size (drawn clipped).
func maxFittingSize(content string, maxWidth, maxHeight int) (int, error) {
	lo, hi := bigTextMinSize, bigTextMaxSize
	best := bigTextMinSize

	for lo <= hi {
		mid := (lo + hi) / 2
		fits, err := fitsAtSize(content, mid, maxWidth, maxHeight)
		if err != nil {
			return 0, err
		}
		if fits {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

func fitsAtSize(content string, size, maxWidth, maxHeight int) (bool, error) {
	face, err := newFace(float64(size))
	if err != nil {
		return false, err
	}
	defer face.Close()

	lines := wrapText(face, content, maxWidth)
	if len(lines)*face.Metrics().Height.Ceil() > maxHeight {
		return false, nil
	}
	for _, line := range lines {
		if lineWidth(face, line) > maxWidth {
			return false, nil
		}
	}
	return true, nil
}
