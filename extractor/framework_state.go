package extractor

import (
	"sort"
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

const productRoutePrefix = "routes/product."

// fromFrameworkState reads Remix loader data when nothing else supplied a price.
// Unexpected shapes simply yield nothing.
func (e *Extractor) fromFrameworkState(p *page.Page, details *types.ProductDetails) {
	if details.Price != "" {
		return
	}
	remix := asMap(p.Global(page.RemixContext))
	if remix == nil {
		return
	}

	loaderData := asMap(dig(remix, "state", "loaderData"))
	keys := make([]string, 0, len(loaderData))
	for key := range loaderData {
		if strings.HasPrefix(key, productRoutePrefix) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	productData := asMap(dig(asMap(loaderData[keys[0]]), "productData"))
	products, _ := dig(productData, "analyticsData", "product_event", "products").([]interface{})
	if len(products) == 0 {
		return
	}
	product := asMap(products[0])
	if product == nil {
		return
	}
	e.logger.Debugf("Using framework state from loader route %s", keys[0])

	fill(&details.Brand, scalar(product["brand"]))
	fill(&details.Title, scalar(product["name"]))
	fill(&details.Price, scalar(product["price"]))

	formatted := scalar(dig(productData, "currentPrice", "formatted", "value", "value"))
	if formatted != "" && details.Currency == "" {
		details.Currency = currencyFromSymbols(formatted)
	}
}

// currencyFromSymbols checks $, € and £ in turn; a later match wins
func currencyFromSymbols(text string) string {
	currency := ""
	if strings.Contains(text, "$") {
		currency = "USD"
	}
	if strings.Contains(text, "€") {
		currency = "EUR"
	}
	if strings.Contains(text, "£") {
		currency = "GBP"
	}
	return currency
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func dig(m map[string]interface{}, keys ...string) interface{} {
	var current interface{} = m
	for _, key := range keys {
		next := asMap(current)
		if next == nil {
			return nil
		}
		current = next[key]
	}
	return current
}
