package extractor

import (
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

var tldCountries = map[string]string{
	"com": "us",
	"de":  "de",
	"uk":  "uk",
	"fr":  "fr",
	"ca":  "ca",
	"it":  "it",
	"es":  "es",
	"au":  "au",
	"jp":  "jp",
	"ro":  "ro",
}

// compound suffixes override the plain TLD guess
var compoundSuffixes = []struct {
	suffix  string
	country string
}{
	{".co.uk", "uk"},
	{".com.au", "au"},
	{".co.jp", "jp"},
}

// CountryForHost maps a hostname to a lowercase country code, "" if unknown
func CountryForHost(hostname string) string {
	hostname = strings.ToLower(hostname)
	parts := strings.Split(hostname, ".")
	country := tldCountries[parts[len(parts)-1]]

	for _, c := range compoundSuffixes {
		if strings.Contains(hostname, c.suffix) {
			country = c.country
			break
		}
	}
	return country
}

func (e *Extractor) inferCountry(p *page.Page, details *types.ProductDetails) {
	fill(&details.Country, CountryForHost(p.Hostname()))
}
