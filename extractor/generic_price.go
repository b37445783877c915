package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

const priceElementSelector = `[class*="price"], [id*="price"], [data-testid*="price"]`

var genericPricePattern = regexp.MustCompile(`(?i)([$€£]|USD|EUR|GBP|RON|lei)\s*([\d,.]*\d)`)

var currencyCodes = map[string]string{
	"€":   "EUR",
	"$":   "USD",
	"£":   "GBP",
	"lei": "RON",
	"ron": "RON",
}

// fromGenericPrice scans price-flagged elements in document order and takes the
// first currency-prefixed number.
func (e *Extractor) fromGenericPrice(p *page.Page, details *types.ProductDetails) {
	if details.Price != "" {
		return
	}

	p.Doc.Find(priceElementSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		match := genericPricePattern.FindStringSubmatch(s.Text())
		if match == nil {
			return true
		}
		details.Price = match[2]
		fill(&details.Currency, currencyForToken(match[1]))
		return false
	})
}

func currencyForToken(token string) string {
	if code, ok := currencyCodes[strings.ToLower(token)]; ok {
		return code
	}
	return strings.ToUpper(token)
}
