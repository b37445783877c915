package extractor

import (
	"fmt"
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

func (e *Extractor) fromMetaTags(p *page.Page, details *types.ProductDetails) {
	if details.Title == "" {
		title := metaContent(p, "og:title")
		if title == "" {
			title = p.Title()
		}
		fill(&details.Title, title)
	}
	fill(&details.Brand, metaContent(p, "product:brand"))
	fill(&details.Currency, metaContent(p, "product:price:currency"))
	fill(&details.Price, metaContent(p, "product:price:amount"))
	fill(&details.GTIN, metaContent(p, "product:retailer_item_id"))
	fill(&details.MPN, metaContent(p, "product:mfr_part_no"))
}

// metaContent returns the content of the first meta tag with the given property
func metaContent(p *page.Page, property string) string {
	content, _ := p.Doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(content)
}
