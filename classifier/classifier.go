package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"product-detector/extractor"
	"product-detector/internal/metrics"
	"product-detector/internal/page"
	"product-detector/internal/types"
)

// Reasons reported for outcomes that carry no match details
const (
	ReasonInvalidPage   = "A valid document object was not provided."
	ReasonNoIndicators  = "No product indicators found."
	ReasonDetails       = "Found data in global JS variable or JSON-LD."
	ReasonOpenGraph     = "Found og:type='product' meta tag."
	ReasonMicrodata     = "Found schema.org/Product microdata."
	ReasonGenericSignal = "Generic DOM analysis (found price and cart button)."
)

const (
	priceSignalSelector = `[class*="price"], [id*="price"], [data-test*="price"]`
	buttonSelector      = `button, input[type="submit"], input[type="button"], a[role="button"]`
)

var priceSignalPattern = regexp.MustCompile(`[€$£]\s*\d`)

// cartPhrases are matched case-folded against button labels
var cartPhrases = []string{
	"add to cart",
	"add to bag",
	"add to basket",
	"adaugă în coș",
	"in den warenkorb",
	"ajouter au panier",
	"añadir a la cesta",
	"aggiungi al carrello",
}

// check is one step of the cascade. It returns a reason when it fires.
type check struct {
	name string
	run  func(p *page.Page, details types.ProductDetails) (string, bool)
}

// Classifier decides whether a page is a product page
type Classifier struct {
	extractor *extractor.Extractor
	logger    types.Logger
	checks    []check
	phrases   []string
}

// NewClassifier creates a classifier backed by a fresh extractor
func NewClassifier(logger types.Logger) *Classifier {
	return NewClassifierWithExtractor(extractor.NewExtractor(logger), logger)
}

// NewClassifierWithExtractor creates a classifier around an existing extractor
func NewClassifierWithExtractor(ext *extractor.Extractor, logger types.Logger) *Classifier {
	c := &Classifier{
		extractor: ext,
		logger:    logger,
	}
	fold := cases.Fold()
	for _, phrase := range cartPhrases {
		c.phrases = append(c.phrases, fold.String(phrase))
	}
	c.checks = []check{
		{name: "details", run: checkDetails},
		{name: "open-graph", run: checkOpenGraph},
		{name: "microdata", run: checkMicrodata},
		{name: "url-dom", run: checkURLAndDOM},
		{name: "generic-signals", run: c.checkGenericSignals},
	}
	return c
}

// Classify runs the cascade; the first check that fires wins. It never fails:
// bad input produces a negative result with a reason.
func (c *Classifier) Classify(p *page.Page) types.ClassificationResult {
	if !p.Valid() {
		c.logger.Debug("Classify called without a valid page")
		metrics.Classifications.WithLabelValues("invalid").Inc()
		return negative(ReasonInvalidPage)
	}

	details := c.extractor.Extract(p)
	c.logger.Debugf("Extracted details for %s: %+v", p.URL, details)

	for _, ch := range c.checks {
		reason, ok := ch.run(p, details)
		if !ok {
			continue
		}
		c.logger.Debugf("Check %s matched for %s: %s", ch.name, p.URL, reason)
		metrics.Classifications.WithLabelValues("product").Inc()
		metrics.ClassificationSteps.WithLabelValues(ch.name).Inc()
		return types.ClassificationResult{
			IsProductPage: true,
			Reason:        reason,
			Details:       details,
		}
	}

	c.logger.Debugf("No product indicators on %s", p.URL)
	metrics.Classifications.WithLabelValues("not_product").Inc()
	return negative(ReasonNoIndicators)
}

func negative(reason string) types.ClassificationResult {
	return types.ClassificationResult{Reason: reason}
}

func checkDetails(p *page.Page, details types.ProductDetails) (string, bool) {
	return ReasonDetails, details.Price != "" && details.Title != ""
}

func checkOpenGraph(p *page.Page, details types.ProductDetails) (string, bool) {
	found := false
	p.Doc.Find(`meta[property="og:type"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		content, _ := s.Attr("content")
		found = strings.EqualFold(strings.TrimSpace(content), "product")
		return !found
	})
	return ReasonOpenGraph, found
}

func checkMicrodata(p *page.Page, details types.ProductDetails) (string, bool) {
	return ReasonMicrodata, p.Doc.Find(`[itemscope][itemtype*="schema.org/Product"]`).Length() > 0
}

// checkURLAndDOM requires a URL pattern match corroborated by a DOM element
func checkURLAndDOM(p *page.Page, details types.ProductDetails) (string, bool) {
	match := matchURL(ResolveRule(p.Hostname()), p.Path())
	if match == nil {
		return "", false
	}
	for _, selector := range match.selectors {
		if p.Doc.Find(selector).Length() > 0 {
			return fmt.Sprintf("%s URL pattern matched: %s & found DOM element: '%s'", match.kind, match.pattern, selector), true
		}
	}
	return "", false
}

// checkGenericSignals needs both a price and an add-to-cart style button
func (c *Classifier) checkGenericSignals(p *page.Page, details types.ProductDetails) (string, bool) {
	if !hasPriceSignal(p, details) {
		return "", false
	}
	return ReasonGenericSignal, c.hasCartButton(p)
}

func hasPriceSignal(p *page.Page, details types.ProductDetails) bool {
	if details.Price != "" {
		return true
	}
	found := false
	p.Doc.Find(priceSignalSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		found = priceSignalPattern.MatchString(s.Text())
		return !found
	})
	return found
}

func (c *Classifier) hasCartButton(p *page.Page) bool {
	found := false
	p.Doc.Find(buttonSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		label := strings.Join(strings.Fields(s.Text()), " ")
		if label == "" {
			label, _ = s.Attr("value")
		}
		found = c.matchesPhrase(label)
		return !found
	})
	return found
}

func (c *Classifier) matchesPhrase(label string) bool {
	if label == "" {
		return false
	}
	// a Caser is stateful, so each call gets its own
	folded := cases.Fold().String(label)
	for _, phrase := range c.phrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}
