package rendering

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/inkfleet/inkfleet/internal/config"
)

// ContentType selects how operator-supplied content is rasterized.
type ContentType string

const (
	ContentTypeText    ContentType = "text"
	ContentTypeBigText ContentType = "big_text"
	ContentTypeHTML    ContentType = "html"
)

var (
	// ErrUnsupportedContentType is returned for content types outside the
	// three recognized modes.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrRenderBackend is returned when the HTML render backend is
	// unavailable, times out, or returns an unusable buffer.
	ErrRenderBackend = errors.New("html render backend failed")
)

// Rasterizer converts a content mode plus raw content into a canvas of the
// requested resolution. Canvases are owned by the caller once returned.
type Rasterizer struct {
	html        HTMLRenderer
	htmlTimeout time.Duration
	watermark   string
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithHTMLRenderer sets the backend used for html content.
func WithHTMLRenderer(r HTMLRenderer) Option {
	return func(ra *Rasterizer) { ra.html = r }
}

// WithHTMLTimeout bounds how long an html render may block.
func WithHTMLTimeout(d time.Duration) Option {
	return func(ra *Rasterizer) { ra.htmlTimeout = d }
}

// WithWatermark draws the given text in the bottom-right corner of every
// generated canvas. Empty disables it.
func WithWatermark(text string) Option {
	return func(ra *Rasterizer) { ra.watermark = text }
}

// NewRasterizer creates a rasterizer with defaults from the environment.
func NewRasterizer(opts ...Option) *Rasterizer {
	r := &Rasterizer{
		htmlTimeout: config.GetDuration("HTML_RENDER_TIMEOUT", 30*time.Second),
		watermark:   config.Get("WATERMARK_TEXT", ""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render rasterizes content onto a white width x height canvas. Empty
// content is valid and produces a blank canvas. The html mode requires a
// configured backend; without one it fails with ErrRenderBackend.
func (r *Rasterizer) Render(ctx context.Context, contentType ContentType, content string, width, height int) (*image.RGBA, error) {
	var canvas *image.RGBA
	var err error

	switch contentType {
	case ContentTypeText:
		canvas, err = r.renderText(content, width, height)
	case ContentTypeBigText:
		canvas, err = r.renderBigText(content, width, height)
	case ContentTypeHTML:
		canvas, err = r.renderHTML(ctx, content, width, height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	if err != nil {
		return nil, err
	}

	if r.watermark != "" {
		if werr := drawWatermark(canvas, r.watermark); werr != nil {
			return nil, werr
		}
	}
	return canvas, nil
}

// newBlankCanvas allocates a white canvas.
func newBlankCanvas(width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	return canvas
}
