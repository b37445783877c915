package extractor

import (
	"regexp"
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

// siteProfile holds hand-tuned selectors for a marketplace whose markup is
// stable enough to read directly.
type siteProfile struct {
	name           string
	matches        func(host string) bool
	titleSelectors []string
	brandSelectors []string
	priceSelectors []string
	cleanBrand     func(string) string
}

var siteProfiles = []siteProfile{
	{
		name:    "amazon",
		matches: func(host string) bool { return strings.HasPrefix(host, "amazon.") },
		titleSelectors: []string{
			"#productTitle",
			"#title span",
		},
		brandSelectors: []string{
			"#bylineInfo",
			"#brand",
		},
		priceSelectors: []string{
			"#corePrice_feature_div .a-offscreen",
			"#corePriceDisplay_desktop_feature_div .a-offscreen",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			".a-price .a-offscreen",
		},
		cleanBrand: cleanBylineBrand,
	},
	{
		name:    "walmart",
		matches: func(host string) bool { return host == "walmart.com" },
		titleSelectors: []string{
			`h1[itemprop="name"]`,
			"#main-title",
		},
		brandSelectors: []string{
			`a[data-seo-id="brand-name"]`,
			`[itemprop="brand"]`,
		},
		priceSelectors: []string{
			`[data-seo-id="hero-price"]`,
			`span[itemprop="price"]`,
		},
	},
	{
		name:    "target",
		matches: func(host string) bool { return host == "target.com" },
		titleSelectors: []string{
			`h1[data-test="product-title"]`,
		},
		brandSelectors: []string{
			`a[data-test="@web/ProductDetailPage/BrandLink"]`,
		},
		priceSelectors: []string{
			`[data-test="product-price"]`,
		},
	},
}

var symbolPricePattern = regexp.MustCompile(`([$€£])(\d[\d.,]*\d|\d)`)

var symbolCurrencies = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

func profileForHost(host string) *siteProfile {
	host = strings.TrimPrefix(host, "www.")
	for i := range siteProfiles {
		if siteProfiles[i].matches(host) {
			return &siteProfiles[i]
		}
	}
	return nil
}

// fromSiteDOM applies the profile of a known marketplace. It runs before the
// generic price heuristic because it reads a narrower part of the page.
func (e *Extractor) fromSiteDOM(p *page.Page, details *types.ProductDetails) {
	profile := profileForHost(p.Hostname())
	if profile == nil {
		return
	}
	e.logger.Debugf("Applying %s site profile", profile.name)

	if details.Title == "" {
		fill(&details.Title, firstText(p, profile.titleSelectors))
	}
	if details.Brand == "" {
		brand := firstText(p, profile.brandSelectors)
		if profile.cleanBrand != nil {
			brand = profile.cleanBrand(brand)
		}
		fill(&details.Brand, brand)
	}
	if details.Price == "" {
		for _, selector := range profile.priceSelectors {
			price, currency, ok := parseSymbolPrice(p.Doc.Find(selector).First().Text())
			if !ok {
				continue
			}
			details.Price = price
			fill(&details.Currency, currency)
			break
		}
	}
}

// parseSymbolPrice strips whitespace and matches a currency symbol followed by
// a number, e.g. "$ 19.99" -> ("19.99", "USD").
func parseSymbolPrice(text string) (string, string, bool) {
	compact := strings.Join(strings.Fields(text), "")
	match := symbolPricePattern.FindStringSubmatch(compact)
	if match == nil {
		return "", "", false
	}
	return match[2], symbolCurrencies[match[1]], true
}

func firstText(p *page.Page, selectors []string) string {
	for _, selector := range selectors {
		text := strings.Join(strings.Fields(p.Doc.Find(selector).First().Text()), " ")
		if text != "" {
			return text
		}
	}
	return ""
}

// cleanBylineBrand turns "Visit the Acme Store" or "Brand: Acme" into "Acme"
func cleanBylineBrand(byline string) string {
	brand := strings.TrimSpace(byline)
	brand = strings.TrimPrefix(brand, "Brand:")
	brand = strings.TrimPrefix(brand, "Visit the ")
	brand = strings.TrimSuffix(brand, " Store")
	return strings.TrimSpace(brand)
}
