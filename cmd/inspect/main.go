package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/joho/godotenv"

	"product-detector/classifier"
	"product-detector/extractor"
	"product-detector/internal/config"
	"product-detector/internal/page"
	"product-detector/internal/types"
	"product-detector/utils"
)

// inspect prints the raw signals the classifier looks at, one stage at a time.
func main() {
	_ = godotenv.Load()

	var (
		urlFlag  = flag.String("url", "", "Page URL to inspect")
		htmlFlag = flag.String("html", "", "Read page HTML from this file instead of fetching the URL")
		httpOnly = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
	)
	flag.Parse()

	if *urlFlag == "" {
		log.Fatal("The --url flag is required")
	}

	cfg := config.Default()
	cfg.Fetch.UseHeadlessBrowser = !*httpOnly
	logger := &debugLogger{}

	p, err := load(cfg.Fetch, logger, *urlFlag, *htmlFlag)
	if err != nil {
		log.Fatalf("Failed to load page: %v", err)
	}

	fmt.Printf("=== %s ===\n", *urlFlag)
	fmt.Printf("Host: %s  Path: %s\n", p.Hostname(), p.Path())
	fmt.Printf("Document title: '%s'\n", p.Title())

	if rule := classifier.ResolveRule(p.Hostname()); rule != nil {
		fmt.Printf("Site rule: %s (%d URL patterns, %d DOM selectors)\n", rule.HostKey, len(rule.URLPatterns), len(rule.DOMSelectors))
	} else {
		fmt.Println("Site rule: none")
	}

	fmt.Println("\n--- Structured data ---")
	blocks := p.Doc.Find(`script[type="application/ld+json"]`)
	fmt.Printf("JSON-LD blocks: %d\n", blocks.Length())
	blocks.Each(func(i int, s *goquery.Selection) {
		fmt.Printf("  %d: %s\n", i+1, truncate(s.Text(), 120))
	})
	fmt.Printf("Microdata products: %d\n", p.Doc.Find(`[itemtype*="schema.org/Product"]`).Length())

	fmt.Println("\n--- Meta tags ---")
	p.Doc.Find(`meta[property^="og:"], meta[property^="product:"]`).Each(func(i int, s *goquery.Selection) {
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		fmt.Printf("  %s = '%s'\n", property, truncate(content, 80))
	})

	fmt.Println("\n--- Framework globals ---")
	for _, name := range page.KnownGlobals {
		fmt.Printf("  window.%s present: %t\n", name, p.Global(name) != nil)
	}

	fmt.Println("\n--- Price elements ---")
	prices := p.Doc.Find(`[class*="price"], [id*="price"], [data-testid*="price"]`)
	fmt.Printf("Elements with 'price' in class/id: %d\n", prices.Length())
	count := 0
	prices.Each(func(i int, s *goquery.Selection) {
		if count >= 10 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" && len(text) < 100 {
			fmt.Printf("  %d: '%s'\n", i+1, text)
			count++
		}
	})

	fmt.Println("\n--- Buttons ---")
	buttons := p.Doc.Find(`button, input[type="submit"], [role="button"]`)
	fmt.Printf("Button-like elements: %d\n", buttons.Length())
	count = 0
	buttons.Each(func(i int, s *goquery.Selection) {
		if count >= 10 {
			return
		}
		label := strings.Join(strings.Fields(s.Text()), " ")
		if label == "" {
			label, _ = s.Attr("value")
		}
		if label != "" {
			fmt.Printf("  %d: '%s'\n", i+1, truncate(label, 60))
			count++
		}
	})

	fmt.Println("\n--- Extraction stages ---")
	ext := extractor.NewExtractor(logger)
	fmt.Printf("Order: %s\n", strings.Join(ext.Stages(), " -> "))
	result := classifier.NewClassifierWithExtractor(ext, logger).Classify(p)

	fmt.Println("\n--- Classification ---")
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func load(cfg config.FetchConfig, logger types.Logger, rawURL, htmlPath string) (*page.Page, error) {
	if htmlPath != "" {
		html, err := os.ReadFile(htmlPath)
		if err != nil {
			return nil, err
		}
		return page.Parse(rawURL, string(html))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return utils.NewLoader(cfg, logger).Load(ctx, rawURL)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type debugLogger struct{}

func (d *debugLogger) Debug(args ...interface{})                 { fmt.Println(args...) }
func (d *debugLogger) Info(args ...interface{})                  { fmt.Println(args...) }
func (d *debugLogger) Warn(args ...interface{})                  { fmt.Println(args...) }
func (d *debugLogger) Error(args ...interface{})                 { fmt.Println(args...) }
func (d *debugLogger) Debugf(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Infof(format string, args ...interface{})  { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Warnf(format string, args ...interface{})  { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Errorf(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
