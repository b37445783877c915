package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"product-detector/internal/config"
	"product-detector/internal/page"
	"product-detector/internal/types"
)

// settleDelay gives client-side rendering a moment after navigation
const settleDelay = 500 * time.Millisecond

// Snapshot is the rendered markup of a tab plus the globals read from it
type Snapshot struct {
	URL     string
	HTML    string
	Globals map[string]interface{}
}

// Page parses the snapshot into a page
func (s *Snapshot) Page() (*page.Page, error) {
	p, err := page.Parse(s.URL, s.HTML)
	if err != nil {
		return nil, err
	}
	return p.WithGlobals(s.Globals), nil
}

// BrowserClient provides headless browser functionality
type BrowserClient struct {
	config config.FetchConfig
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(cfg config.FetchConfig, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: cfg,
		logger: logger,
	}
}

// GetPageContent retrieves the HTML content of a page using headless browser
func (b *BrowserClient) GetPageContent(ctx context.Context, url string) (string, error) {
	snapshot, err := b.GetSnapshot(ctx, url)
	if err != nil {
		return "", err
	}
	return snapshot.HTML, nil
}

// GetSnapshot navigates a fresh tab to url and captures its markup and the
// known framework globals.
func (b *BrowserClient) GetSnapshot(ctx context.Context, url string) (*Snapshot, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(settleDelay),
	); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	snapshot, err := capture(browserCtx, b.logger)
	if err != nil {
		return nil, err
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", url, len(snapshot.HTML))
	return snapshot, nil
}

// BrowserSession is a long-lived tab used to follow in-page navigation
type BrowserSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger types.Logger
}

// NewBrowserSession starts a browser. With headless false a visible window
// opens so a user can browse while the session watches.
func NewBrowserSession(ctx context.Context, headless bool, logger types.Logger) (*BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", headless))
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// start the browser now so failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserSession{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		logger: logger,
	}, nil
}

// Navigate loads url in the session tab
func (s *BrowserSession) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url), chromedp.Sleep(settleDelay)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Location returns the current URL of the tab
func (s *BrowserSession) Location() (string, error) {
	var location string
	if err := chromedp.Run(s.ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

// Snapshot captures the tab as it is now
func (s *BrowserSession) Snapshot() (*Snapshot, error) {
	return capture(s.ctx, s.logger)
}

// Close shuts the browser down
func (s *BrowserSession) Close() {
	s.cancel()
}

func capture(ctx context.Context, logger types.Logger) (*Snapshot, error) {
	snapshot := &Snapshot{Globals: make(map[string]interface{})}

	if err := chromedp.Run(ctx,
		chromedp.Location(&snapshot.URL),
		chromedp.OuterHTML("html", &snapshot.HTML),
	); err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}

	for _, name := range page.KnownGlobals {
		var encoded string
		script := fmt.Sprintf("JSON.stringify(window.%s || null)", name)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &encoded)); err != nil {
			logger.Debugf("Could not evaluate global %s: %v", name, err)
			continue
		}

		var value interface{}
		if err := json.Unmarshal([]byte(encoded), &value); err != nil || value == nil {
			continue
		}
		snapshot.Globals[name] = value
	}

	return snapshot, nil
}
