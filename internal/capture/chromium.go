// Package capture renders the server-side calendar page to a PNG with
// headless Chromium.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "schedview/internal/log"
)

// Default capture parameters. They match the desktop layout of /calendar.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 960
	DefaultTimeoutSec = 30
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// Query is the view state to capture (view, date, filters). It is
	// appended to /calendar as-is.
	Query url.Values

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration
}

// PageURL returns the /calendar URL under base for the given view state.
func PageURL(base string, q url.Values) string {
	u := strings.TrimRight(base, "/") + "/calendar"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// CalendarPNG navigates headless Chromium to the calendar page, waits for
// the root element to report data-ready="true", and writes a PNG
// screenshot of the full page to opts.OutputPath.
func CalendarPNG(parentCtx context.Context, opts Options) error {
	if opts.BaseURL == "" {
		return fmt.Errorf("capture: BaseURL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	target := PageURL(opts.BaseURL, opts.Query)

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	// Apply timeout to the entire capture sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("calendar snapshot written", "path", opts.OutputPath, "bytes", len(png), "took", time.Since(start))
	return nil
}
