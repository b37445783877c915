package classifier

import (
	"regexp"
	"strings"

	"product-detector/internal/types"
)

// Kinds of URL match, used as the reason prefix
const (
	kindSite     = "Site-specific"
	kindPlatform = "Generic Shopify"
	kindGeneric  = "Generic"
)

// priorityRules are checked before the exact-host table. Amazon matches every
// marketplace sharing the "amazon." prefix.
var priorityRules = []struct {
	matches func(host string) bool
	rule    types.SiteRule
}{
	{
		matches: func(host string) bool { return strings.HasPrefix(host, "amazon.") },
		rule: types.SiteRule{
			HostKey:      "amazon",
			URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/dp/`)},
			DOMSelectors: []string{"#addToCart_feature_div", "#buyNow_feature_div", "input#add-to-cart-button", "#productTitle"},
		},
	},
	{
		matches: func(host string) bool { return host == "nike.com" },
		rule: types.SiteRule{
			HostKey:      "nike.com",
			URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/t/`)},
			DOMSelectors: []string{`[data-test="add-to-cart"]`, `[data-test="add-to-bag"]`},
		},
	},
	{
		matches: func(host string) bool { return host == "saksfifthavenue.com" },
		rule: types.SiteRule{
			HostKey:      "saksfifthavenue.com",
			URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/product/`)},
			DOMSelectors: []string{".add-to-bag"},
		},
	},
}

// exactRules are keyed by the www-stripped hostname
var exactRules = map[string]types.SiteRule{
	"walmart.com": {
		HostKey:      "walmart.com",
		URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/ip/`)},
		DOMSelectors: []string{`button[data-testid="add-to-cart-button"]`},
	},
	"target.com": {
		HostKey:      "target.com",
		URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/p/`)},
		DOMSelectors: []string{`[data-test="shippingATCButton"]`, `[data-test*="AddToCart"] button`},
	},
	"apple.com": {
		HostKey:      "apple.com",
		URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/shop/buy`)},
		DOMSelectors: []string{`[data-autom="add-to-cart"]`, ".as-productorder-addtocart"},
	},
}

// platformRule covers storefront platforms with a shared product URL layout
var platformRule = types.SiteRule{
	HostKey:      "shopify",
	URLPatterns:  []*regexp.Regexp{regexp.MustCompile(`(?i)/products/`)},
	DOMSelectors: []string{`[name="add"]`, `button[type="submit"][name="add"]`, `[data-section-type="product"]`},
}

var genericURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/product(s)?/`),
	regexp.MustCompile(`(?i)/p/`),
	regexp.MustCompile(`(?i)/shop/`),
	regexp.MustCompile(`(?i)/item/`),
	regexp.MustCompile(`(?i)/detail`),
}

var genericDOMSelectors = []string{
	`[class*="add-to-cart"]`,
	`[class*="addtocart"]`,
	`[class*="add-to-bag"]`,
	`[data-test*="add-to-cart"]`,
}

// ResolveRule returns the site rule for a hostname, nil when only the generic
// rules apply.
func ResolveRule(hostname string) *types.SiteRule {
	host := strings.TrimPrefix(strings.ToLower(hostname), "www.")
	for _, p := range priorityRules {
		if p.matches(host) {
			rule := p.rule
			return &rule
		}
	}
	if rule, ok := exactRules[host]; ok {
		return &rule
	}
	return nil
}

// urlMatch records which pattern matched and which selectors must corroborate it
type urlMatch struct {
	kind      string
	pattern   *regexp.Regexp
	selectors []string
}

// matchURL tries the site rule, then the platform rule, then the generic
// patterns against the path.
func matchURL(rule *types.SiteRule, path string) *urlMatch {
	if rule != nil {
		if pattern := firstMatch(rule.URLPatterns, path); pattern != nil {
			return &urlMatch{kind: kindSite, pattern: pattern, selectors: rule.DOMSelectors}
		}
	}
	if pattern := firstMatch(platformRule.URLPatterns, path); pattern != nil {
		selectors := append(append([]string{}, platformRule.DOMSelectors...), genericDOMSelectors...)
		return &urlMatch{kind: kindPlatform, pattern: pattern, selectors: selectors}
	}
	if pattern := firstMatch(genericURLPatterns, path); pattern != nil {
		return &urlMatch{kind: kindGeneric, pattern: pattern, selectors: genericDOMSelectors}
	}
	return nil
}

func firstMatch(patterns []*regexp.Regexp, path string) *regexp.Regexp {
	for _, pattern := range patterns {
		if pattern.MatchString(path) {
			return pattern
		}
	}
	return nil
}
