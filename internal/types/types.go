package types

import "regexp"

// ProductDetails holds the attributes extracted from a single page.
// Every field is a plain string and stays empty when nothing was found.
type ProductDetails struct {
	Title    string `json:"title"`
	Brand    string `json:"brand"`
	GTIN     string `json:"gtin"`
	MPN      string `json:"mpn"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

// ClassificationResult is the outcome of a product page check
type ClassificationResult struct {
	IsProductPage bool           `json:"isProductPage"`
	Reason        string         `json:"reason"`
	Details       ProductDetails `json:"details"`
}

// SiteRule ties a host to the URL patterns and DOM selectors that identify
// its product pages.
type SiteRule struct {
	HostKey      string
	URLPatterns  []*regexp.Regexp
	DOMSelectors []string
}

// Offer represents a price alternative found on another site
type Offer struct {
	Site     string  `json:"site"`
	Title    string  `json:"title"`
	Link     string  `json:"link"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
	Icon     string  `json:"icon,omitempty"`
}

// IssueReport lists negative issues reported for a product
type IssueReport struct {
	Issues []string `json:"issues"`
}

// SearchResponse is the body returned by the custom search endpoint
type SearchResponse struct {
	Items []SearchItem `json:"items"`
}

// SearchItem represents one custom search result
type SearchItem struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	DisplayLink string  `json:"displayLink"`
	PageMap     PageMap `json:"pagemap"`
}

// PageMap carries the structured data the search engine attached to a result
type PageMap struct {
	Offer        []SearchOffer `json:"offer,omitempty"`
	CSEThumbnail []SearchImage `json:"cse_thumbnail,omitempty"`
	CSEImage     []SearchImage `json:"cse_image,omitempty"`
}

// SearchOffer is an offer sub-object. Price is kept raw since engines return
// both numbers and formatted strings.
type SearchOffer struct {
	Price         interface{} `json:"price"`
	PriceCurrency string      `json:"pricecurrency"`
}

// SearchImage is a thumbnail or image reference
type SearchImage struct {
	Src string `json:"src"`
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
