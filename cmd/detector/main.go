package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/logging"
	"product-detector/internal/page"
	"product-detector/internal/types"
	"product-detector/overlay"
	"product-detector/utils"
)

// Report is the CLI output for one page
type Report struct {
	URL    string                      `json:"url"`
	Result *types.ClassificationResult `json:"result"`
	Panel  map[overlay.Region]string   `json:"panel"`
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		urlFlag    = flag.String("url", "", "Page URL to analyze")
		htmlFlag   = flag.String("html", "", "Read page HTML from this file instead of fetching the URL")
		outputFlag = flag.String("output", "", "Output file path (default: stdout)")
		configFlag = flag.String("config", "", "Config file path (default: search ., ./config, /etc/product-detector)")
		httpOnly   = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		watch      = flag.Bool("watch", false, "Open a browser window and re-run on every navigation")
	)
	flag.Parse()

	if *urlFlag == "" {
		fmt.Fprintln(os.Stderr, "The --url flag is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpOnly {
		cfg.Fetch.UseHeadlessBrowser = false
	}

	logger := logging.New(cfg.Log)
	if *verbose {
		logging.SetVerbose(logger)
	}

	store, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Fatalf("Failed to create cache: %v", err)
	}
	responses := cache.NewCache(store, logger)
	session := overlay.NewSession(responses)
	defer session.Close()

	controller := overlay.NewController(cfg, logger, responses)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := runWatch(ctx, cfg, logger, controller, session, *urlFlag); err != nil && err != context.Canceled {
			logger.Fatalf("Watch mode failed: %v", err)
		}
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p, err := loadPage(runCtx, cfg, logger, *urlFlag, *htmlFlag)
	if err != nil {
		logger.Fatalf("Failed to load page: %v", err)
	}

	panel := overlay.NewPanel()
	var sink overlay.Sink = panel
	if *verbose {
		sink = overlay.MultiSink{panel, overlay.NewWriterSink(os.Stderr)}
	}

	startTime := time.Now()
	result, err := controller.Run(runCtx, p, session, sink)
	if err != nil {
		logger.Fatalf("Failed to render panel: %v", err)
	}
	logger.Infof("Analysis completed in %v", time.Since(startTime))

	jsonData, err := json.MarshalIndent(Report{URL: *urlFlag, Result: result, Panel: panel.Snapshot()}, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to marshal results: %v", err)
	}

	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, jsonData, 0644); err != nil {
			logger.Fatalf("Failed to write output file: %v", err)
		}
		logger.Infof("Results written to: %s", *outputFlag)
	} else {
		fmt.Println(string(jsonData))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func loadPage(ctx context.Context, cfg *config.Config, logger *logrus.Logger, rawURL, htmlPath string) (*page.Page, error) {
	if htmlPath == "" {
		return utils.NewLoader(cfg.Fetch, logger).Load(ctx, rawURL)
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", htmlPath, err)
	}
	return page.Parse(rawURL, string(html))
}

// runWatch opens a visible browser tab and re-runs the controller whenever
// the tab navigates, printing panel updates as they arrive.
func runWatch(ctx context.Context, cfg *config.Config, logger *logrus.Logger, controller *overlay.Controller, session *overlay.Session, rawURL string) error {
	browser, err := utils.NewBrowserSession(ctx, false, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	if err := browser.Navigate(rawURL); err != nil {
		return err
	}

	sink := overlay.NewWriterSink(os.Stdout)
	analyze := func(ctx context.Context, location string) {
		snapshot, err := browser.Snapshot()
		if err != nil {
			logger.Errorf("Failed to capture %s: %v", location, err)
			return
		}
		p, err := snapshot.Page()
		if err != nil {
			logger.Errorf("Failed to parse %s: %v", location, err)
			return
		}
		if _, err := controller.Run(ctx, p, session, sink); err != nil {
			logger.Errorf("Failed to render panel for %s: %v", location, err)
		}
	}

	analyze(ctx, rawURL)

	source := overlay.NewPollingSource(browser.Location, cfg.Navigation.PollInterval, logger)
	watcher := overlay.NewWatcher(source, cfg.Navigation.Debounce, logger)
	logger.Info("Watching for navigation, press Ctrl+C to stop")
	return watcher.Run(ctx, analyze)
}
