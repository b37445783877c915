package extractor

import (
	"regexp"
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

var (
	// no word boundary: "Canon EOS R5 8.0" loses everything from "on "
	siteSuffixPattern = regexp.MustCompile(`on .*?\..*|\|.*$`)
	bracketPattern    = regexp.MustCompile(`\[.*?\]`)
	parenPattern      = regexp.MustCompile(`\(.*?\)`)
)

// title delimiters, checked in this order against the progressively cleaned title
var titleDelimiters = []string{":", "|", " - "}

// CleanTitle reduces a page title to something usable as a search query.
// Cleaning only ever removes text, so it is repeated until the title stops
// changing and a cleaned title cleans to itself.
func CleanTitle(title string) string {
	cleaned := cleanTitleOnce(title)
	for {
		next := cleanTitleOnce(cleaned)
		if next == cleaned {
			return cleaned
		}
		cleaned = next
	}
}

func cleanTitleOnce(title string) string {
	cleaned := bracketPattern.ReplaceAllString(title, "")
	cleaned = parenPattern.ReplaceAllString(cleaned, "")
	cleaned = siteSuffixPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	for _, delimiter := range titleDelimiters {
		if idx := strings.Index(cleaned, delimiter); idx >= 0 {
			cleaned = strings.TrimSpace(cleaned[:idx])
		}
	}
	return cleaned
}

func (e *Extractor) cleanupTitle(p *page.Page, details *types.ProductDetails) {
	details.Title = CleanTitle(details.Title)
}
