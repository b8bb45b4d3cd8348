package rendering

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer captures HTML screenshots with a locally managed
// headless Chrome instance.
type ChromeRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChromeRenderer starts a headless Chrome allocator shared by all
// render calls. Call Close to release it.
func NewChromeRenderer() (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		allocCtx: allocCtx,
		cancel:   cancel,
	}, nil
}

// RenderHTML renders an HTML document to PNG bytes using headless Chrome.
func (r *ChromeRenderer) RenderHTML(ctx context.Context, html string, width, height int) ([]byte, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(r.allocCtx)
	defer cancelBrowser()

	// Honor the caller's deadline while the tab is alive.
	go func() {
		select {
		case <-ctx.Done():
			cancelBrowser()
		case <-browserCtx.Done():
		}
	}()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var screenshot []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.CaptureScreenshot(&screenshot),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chrome screenshot failed: %w", err)
	}
	return screenshot, nil
}

// Close shuts down the Chrome allocator.
func (r *ChromeRenderer) Close() error {
	r.cancel()
	return nil
}

// NewHTMLRenderer selects the HTML rendering backend from HTML_RENDERER.
// Supported values are "browserless" and "chromedp"; empty disables
// HTML rendering entirely.
func NewHTMLRenderer(backend string) (HTMLRenderer, error) {
	switch backend {
	case "browserless":
		return NewBrowserlessRenderer()
	case "chromedp":
		return NewChromeRenderer()
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown HTML renderer backend %q", backend)
	}
}
