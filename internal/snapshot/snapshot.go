// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package snapshot renders a site document in headless Chrome and captures
// a PNG of the first screen, used as the client thumbnail in the admin.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be found.
var ErrNoBrowser = errors.New("snapshot: no chrome/chromium binary found")

// Options configures the capturer. Zero values take the defaults below.
type Options struct {
	ExecPath string // browser binary; empty searches PATH
	Width    int
	Height   int
	// Settle is how long to wait after load for the Tailwind CDN script and
	// web fonts to apply.
	Settle        time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

const (
	defaultWidth   = 1280
	defaultHeight  = 800
	defaultSettle  = 1500 * time.Millisecond
	defaultTimeout = 45 * time.Second
)

// browsers are tried in order when no ExecPath is configured.
var browsers = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

// Capturer takes screenshots. Each capture starts its own browser process;
// MaxConcurrent bounds how many run at once.
type Capturer struct {
	opts Options
	sem  *semaphore.Weighted
}

// New returns a Capturer with defaults filled in.
func New(opts Options) *Capturer {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	return &Capturer{opts: opts, sem: semaphore.NewWeighted(int64(opts.MaxConcurrent))}
}

// Browser returns the binary Capture will launch, or ErrNoBrowser.
func (c *Capturer) Browser() (string, error) {
	if c.opts.ExecPath != "" {
		if _, err := exec.LookPath(c.opts.ExecPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNoBrowser, c.opts.ExecPath)
		}
		return c.opts.ExecPath, nil
	}
	for _, name := range browsers {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

// Capture loads doc into a blank page and returns a PNG of the viewport.
func (c *Capturer) Capture(ctx context.Context, doc string) ([]byte, error) {
	browser, err := c.Browser()
	if err != nil {
		return nil, err
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions(browser)...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var png []byte
	err = chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(c.opts.Width), int64(c.opts.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.Settle),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot capture: %w", err)
	}
	return png, nil
}

func (c *Capturer) allocatorOptions(browser string) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browser),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(c.opts.Width, c.opts.Height),
	)
}
