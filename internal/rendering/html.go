package rendering

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder for backend output
	_ "image/png"  // register decoder for backend output
)

// HTMLRenderer renders a complete HTML document at the given viewport and
// returns the captured pixels as an encoded image (typically PNG). The
// narrow contract keeps the pipeline engine-agnostic and testable with a
// stub.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string, width, height int) ([]byte, error)
	Close() error
}

// renderHTML hands the document to the configured backend under a bounded
// timeout and decodes the returned buffer onto a canvas. Backend failures
// and contract violations surface as ErrRenderBackend; no partial canvas is
// ever returned.
func (r *Rasterizer) renderHTML(ctx context.Context, content string, width, height int) (*image.RGBA, error) {
	if r.html == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrRenderBackend)
	}

	ctx, cancel := context.WithTimeout(ctx, r.htmlTimeout)
	defer cancel()

	data, err := r.html.RenderHTML(ctx, content, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderBackend, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: backend returned undecodable image: %v", ErrRenderBackend, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("%w: backend returned %dx%d, want %dx%d",
			ErrRenderBackend, bounds.Dx(), bounds.Dy(), width, height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return canvas, nil
}
