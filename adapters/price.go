package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/metrics"
	"product-detector/internal/types"
	"product-detector/utils"
)

const priceAdapterName = "price"

// results whose title contains one of these are not shopping pages
var irrelevantKeywords = []string{"review", "vs", "forum", "guide", "manual", "support"}

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
	leadingNumber = regexp.MustCompile(`^\d*\.?\d+`)
)

// PriceAdapter looks up the same product on other sites through a custom
// search JSON API.
type PriceAdapter struct {
	*BaseAdapter
	httpClient *utils.HTTPClient
}

// NewPriceAdapter creates a price adapter
func NewPriceAdapter(cfg *config.Config, logger types.Logger, c *cache.Cache) *PriceAdapter {
	return &PriceAdapter{
		BaseAdapter: NewBaseAdapter(cfg, logger, c),
		httpClient:  utils.NewHTTPClient(cfg.Fetch, logger),
	}
}

// FetchAlternatives returns offers from other sites than pageHost, cheapest
// first. Any failure yields an empty list.
func (a *PriceAdapter) FetchAlternatives(ctx context.Context, details types.ProductDetails, pageHost string) []types.Offer {
	return SelectOffers(a.FetchCandidates(ctx, details), pageHost, details.Currency)
}

// FetchCandidates returns every priced search result for the product. The
// list does not depend on the page it was requested from, so it is what gets
// cached; SelectOffers narrows it down for a given page.
func (a *PriceAdapter) FetchCandidates(ctx context.Context, details types.ProductDetails) []types.Offer {
	query := BuildQuery(details)
	if query == "" {
		return []types.Offer{}
	}

	key := fmt.Sprintf("google_%s_%s", query, details.Country)
	var cached []types.Offer
	if a.fromCache(ctx, key, a.config.Cache.PriceTTL, &cached) {
		return cached
	}

	if a.config.Search.APIKey == "" || a.config.Search.EngineID == "" {
		a.logger.Error("Search API key or engine ID is missing, skipping price lookup")
		return []types.Offer{}
	}

	endpoint, err := a.endpoint(query, details.Country)
	if err != nil {
		a.logger.Errorf("Invalid search endpoint: %v", err)
		metrics.SearchErrors.WithLabelValues(priceAdapterName).Inc()
		return []types.Offer{}
	}

	a.logger.Infof("Fetching price alternatives for %q", query)
	metrics.SearchRequests.WithLabelValues(priceAdapterName).Inc()
	start := time.Now()

	var response types.SearchResponse
	err = a.httpClient.GetJSON(ctx, endpoint, &response)
	metrics.SearchLatency.WithLabelValues(priceAdapterName).Observe(time.Since(start).Seconds())
	if err != nil {
		a.logger.Errorf("Price search request failed: %v", err)
		metrics.SearchErrors.WithLabelValues(priceAdapterName).Inc()
		return []types.Offer{}
	}

	candidates := PriceCandidates(response.Items)
	a.logger.Debugf("Kept %d of %d search results", len(candidates), len(response.Items))

	a.toCache(ctx, key, candidates)
	return candidates
}

func (a *PriceAdapter) endpoint(query, country string) (string, error) {
	u, err := url.Parse(a.config.Search.BaseURL)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("key", a.config.Search.APIKey)
	params.Set("cx", a.config.Search.EngineID)
	params.Set("q", query)
	params.Set("gl", country)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

type rankedOffer struct {
	offer types.Offer
	price decimal.Decimal
}

// FilterOffers turns raw search results into the offers shown for a page
func FilterOffers(items []types.SearchItem, pageHost, pageCurrency string) []types.Offer {
	return SelectOffers(PriceCandidates(items), pageHost, pageCurrency)
}

// PriceCandidates drops noise results and results without a parseable price.
// Each remaining result becomes an offer priced at its cheapest listed offer.
func PriceCandidates(items []types.SearchItem) []types.Offer {
	candidates := make([]types.Offer, 0, len(items))
	for _, item := range items {
		if isIrrelevant(item.Title) {
			continue
		}

		price, currency, ok := lowestOfferPrice(item.PageMap.Offer)
		if !ok {
			continue
		}
		value, _ := price.Float64()
		candidates = append(candidates, types.Offer{
			Site:     strings.TrimPrefix(strings.ToLower(item.DisplayLink), "www."),
			Title:    item.Title,
			Link:     item.Link,
			Price:    value,
			Currency: currency,
			Icon:     iconFor(item.PageMap),
		})
	}
	return candidates
}

// SelectOffers drops the current site and offers in another currency, keeps
// the cheapest offer per site and sorts by price.
func SelectOffers(candidates []types.Offer, pageHost, pageCurrency string) []types.Offer {
	pageHost = strings.ToLower(pageHost)
	bySite := make(map[string]rankedOffer)

	for _, offer := range candidates {
		if strings.Contains(pageHost, offer.Site) {
			continue
		}
		if pageCurrency != "" && offer.Currency != "" && !strings.EqualFold(pageCurrency, offer.Currency) {
			continue
		}

		price := decimal.NewFromFloat(offer.Price)
		if existing, seen := bySite[offer.Site]; seen && !price.LessThan(existing.price) {
			continue
		}
		bySite[offer.Site] = rankedOffer{offer: offer, price: price}
	}

	ranked := make([]rankedOffer, 0, len(bySite))
	for _, r := range bySite {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].price.Equal(ranked[j].price) {
			return ranked[i].price.LessThan(ranked[j].price)
		}
		return ranked[i].offer.Site < ranked[j].offer.Site
	})

	offers := make([]types.Offer, 0, len(ranked))
	for _, r := range ranked {
		offers = append(offers, r.offer)
	}
	return offers
}

func isIrrelevant(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range irrelevantKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// lowestOfferPrice returns the cheapest parseable offer and its currency
func lowestOfferPrice(offers []types.SearchOffer) (decimal.Decimal, string, bool) {
	var (
		best     decimal.Decimal
		currency string
		found    bool
	)
	for _, o := range offers {
		price, ok := parseOfferPrice(o.Price)
		if !ok {
			continue
		}
		if !found || price.LessThan(best) {
			best = price
			currency = o.PriceCurrency
			found = true
		}
	}
	return best, currency, found
}

// parseOfferPrice keeps digits and dots and reads the leading number, so
// "$1,299.99" is 1299.99.
func parseOfferPrice(raw interface{}) (decimal.Decimal, bool) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return decimal.Zero, false
	}

	number := leadingNumber.FindString(nonPriceChars.ReplaceAllString(text, ""))
	if number == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func iconFor(pm types.PageMap) string {
	if len(pm.CSEThumbnail) > 0 && pm.CSEThumbnail[0].Src != "" {
		return pm.CSEThumbnail[0].Src
	}
	if len(pm.CSEImage) > 0 {
		return pm.CSEImage[0].Src
	}
	return ""
}
