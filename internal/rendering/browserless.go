package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkfleet/inkfleet/internal/config"
)

// BrowserlessRenderer captures HTML screenshots through an external
// browserless service.
type BrowserlessRenderer struct {
	client  *http.Client
	baseURL string
}

// NewBrowserlessRenderer creates a renderer pointed at BROWSERLESS_URL.
func NewBrowserlessRenderer() (*BrowserlessRenderer, error) {
	baseURL := config.Get("BROWSERLESS_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("BROWSERLESS_URL environment variable is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &BrowserlessRenderer{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
	}, nil
}

// screenshotRequest is the browserless /screenshot payload for raw HTML.
type screenshotRequest struct {
	HTML     string `json:"html"`
	Viewport struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"viewport"`
	Options struct {
		Type           string `json:"type"`
		FullPage       bool   `json:"fullPage"`
		OmitBackground bool   `json:"omitBackground"`
	} `json:"options"`
	GotoOptions struct {
		WaitUntil string `json:"waitUntil"`
		Timeout   int    `json:"timeout"`
	} `json:"gotoOptions"`
}

// RenderHTML renders an HTML document to PNG bytes via browserless.
func (r *BrowserlessRenderer) RenderHTML(ctx context.Context, html string, width, height int) ([]byte, error) {
	req := screenshotRequest{HTML: html}
	req.Viewport.Width = width
	req.Viewport.Height = height
	req.Options.Type = "png"
	req.Options.FullPage = false
	req.Options.OmitBackground = false
	req.GotoOptions.WaitUntil = "networkidle0"
	req.GotoOptions.Timeout = 30000

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal screenshot request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/screenshot", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach browserless: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("browserless screenshot failed with status %d: %s", resp.StatusCode, string(body))
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read browserless response: %w", err)
	}
	return imageData, nil
}

// Close cleans up the renderer (no-op for browserless)
func (r *BrowserlessRenderer) Close() error {
	return nil
}
