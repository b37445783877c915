package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

// gtinKeys in order of preference
var gtinKeys = []string{"gtin13", "gtin12", "gtin8", "gtin"}

// fromStructuredData reads schema.org Product nodes out of JSON-LD blocks
func (e *Extractor) fromStructuredData(p *page.Page, details *types.ProductDetails) {
	p.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			e.logger.Debugf("Skipping malformed JSON-LD block %d: %v", i, err)
			return true
		}

		node := findProductNode(data)
		if node == nil {
			return true
		}
		applyProductNode(node, details)

		complete := details.Title != "" && details.Brand != "" && details.Currency != "" && details.Price != ""
		return !complete
	})
}

// findProductNode returns the first Product node at the top level, inside
// @graph, or inside a top-level list.
func findProductNode(data interface{}) map[string]interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if isProductType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]interface{}); ok && isProductType(node["@type"]) {
					return node
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			if node := findProductNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		name := v
		if i := strings.LastIndexAny(name, "/:"); i >= 0 {
			name = name[i+1:]
		}
		return strings.EqualFold(strings.TrimSpace(name), "product")
	case []interface{}:
		for _, item := range v {
			if isProductType(item) {
				return true
			}
		}
	}
	return false
}

func applyProductNode(node map[string]interface{}, details *types.ProductDetails) {
	fill(&details.Title, scalar(node["name"]))
	fill(&details.Brand, brandName(node["brand"]))

	for _, key := range gtinKeys {
		if gtin := scalar(node[key]); gtin != "" {
			fill(&details.GTIN, gtin)
			break
		}
	}
	fill(&details.MPN, scalar(node["mpn"]))

	offer := firstOffer(node["offers"])
	if offer == nil {
		return
	}
	price := scalar(offer["price"])
	if price == "" {
		price = scalar(offer["lowPrice"])
	}
	fill(&details.Price, price)
	fill(&details.Currency, scalar(offer["priceCurrency"]))
}

func brandName(brand interface{}) string {
	switch v := brand.(type) {
	case map[string]interface{}:
		return scalar(v["name"])
	case []interface{}:
		if len(v) > 0 {
			return brandName(v[0])
		}
		return ""
	default:
		return scalar(v)
	}
}

func firstOffer(offers interface{}) map[string]interface{} {
	switch v := offers.(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		if len(v) > 0 {
			if offer, ok := v[0].(map[string]interface{}); ok {
				return offer
			}
		}
	}
	return nil
}

// scalar renders strings and numbers; anything else is treated as absent
func scalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
