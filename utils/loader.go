package utils

import (
	"context"

	"product-detector/internal/config"
	"product-detector/internal/page"
	"product-detector/internal/types"
)

// Loader turns a URL into a parsed page, through a headless browser or a
// plain HTTP fetch depending on configuration.
type Loader struct {
	config        config.FetchConfig
	logger        types.Logger
	httpClient    *HTTPClient
	browserClient *BrowserClient
}

// NewLoader creates a loader with its own HTTP and browser clients
func NewLoader(cfg config.FetchConfig, logger types.Logger) *Loader {
	return &Loader{
		config:        cfg,
		logger:        logger,
		httpClient:    NewHTTPClient(cfg, logger),
		browserClient: NewBrowserClient(cfg, logger),
	}
}

// Load fetches and parses rawURL
func (l *Loader) Load(ctx context.Context, rawURL string) (*page.Page, error) {
	if _, err := page.ParseURL(rawURL); err != nil {
		return nil, err
	}

	// Use headless browser for client-rendered storefronts
	if l.config.UseHeadlessBrowser {
		snapshot, err := l.browserClient.GetSnapshot(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return snapshot.Page()
	}

	body, err := l.httpClient.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return page.Parse(rawURL, string(body))
}
