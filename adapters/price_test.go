package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/types"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Fetch.RequestDelay = time.Millisecond
	cfg.Search.APIKey = "search-key"
	cfg.Search.EngineID = "engine"
	cfg.Search.BaseURL = baseURL
	cfg.OpenAI.APIKey = "openai-key"
	cfg.OpenAI.BaseURL = baseURL + "/v1"
	return cfg
}

func item(site, title string, offers ...types.SearchOffer) types.SearchItem {
	return types.SearchItem{
		Title:       title,
		Link:        "https://" + site + "/listing",
		DisplayLink: site,
		PageMap:     types.PageMap{Offer: offers},
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		details types.ProductDetails
		want    string
	}{
		{"gtin wins", types.ProductDetails{GTIN: "012345678905", Brand: "Acme", Title: "Widget"}, "012345678905"},
		{"brand title mpn", types.ProductDetails{Brand: "Acme", Title: "Widget", MPN: "W-1"}, "Acme Widget W-1"},
		{"skips empty parts", types.ProductDetails{Title: "Widget", MPN: " "}, "Widget"},
		{"nothing", types.ProductDetails{Country: "us"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.details))
		})
	}
}

func TestFilterOffers(t *testing.T) {
	items := []types.SearchItem{
		item("www.cheapshop.com", "Acme Widget", types.SearchOffer{Price: "$25.00", PriceCurrency: "USD"}),
		item("www.mystore.com", "Acme Widget", types.SearchOffer{Price: "1.00", PriceCurrency: "USD"}),
		item("eurostore.de", "Acme Widget", types.SearchOffer{Price: "2.00", PriceCurrency: "EUR"}),
		item("reviews.example", "Acme Widget Review", types.SearchOffer{Price: "3.00", PriceCurrency: "USD"}),
		item("noprice.com", "Acme Widget"),
		item("bigbox.com", "Acme Widget",
			types.SearchOffer{Price: "1,299.99", PriceCurrency: "USD"},
			types.SearchOffer{Price: 19.5, PriceCurrency: "usd"},
			types.SearchOffer{Price: "call", PriceCurrency: "USD"},
		),
		item("cheapshop.com", "Acme Widget (cheaper listing)", types.SearchOffer{Price: "22", PriceCurrency: "USD"}),
		item("nocurrency.com", "Acme Widget", types.SearchOffer{Price: "30"}),
	}

	offers := FilterOffers(items, "shop.mystore.com", "USD")

	require.Len(t, offers, 3)
	assert.Equal(t, "bigbox.com", offers[0].Site)
	assert.Equal(t, 19.5, offers[0].Price)
	assert.Equal(t, "usd", offers[0].Currency)
	assert.Equal(t, "cheapshop.com", offers[1].Site)
	assert.Equal(t, 22.0, offers[1].Price)
	assert.Equal(t, "Acme Widget (cheaper listing)", offers[1].Title)
	assert.Equal(t, "nocurrency.com", offers[2].Site)
	assert.Equal(t, 30.0, offers[2].Price)
}

func TestFilterOffers_CurrencyMismatchExcludedEvenWhenCheapest(t *testing.T) {
	items := []types.SearchItem{
		item("cheap.de", "Widget", types.SearchOffer{Price: "1", PriceCurrency: "EUR"}),
		item("fair.com", "Widget", types.SearchOffer{Price: "50", PriceCurrency: "USD"}),
	}

	offers := FilterOffers(items, "www.example.com", "usd")

	require.Len(t, offers, 1)
	assert.Equal(t, "fair.com", offers[0].Site)
}

func TestFilterOffers_NoPageCurrency(t *testing.T) {
	items := []types.SearchItem{
		item("b.com", "Widget", types.SearchOffer{Price: "5", PriceCurrency: "EUR"}),
		item("a.com", "Widget", types.SearchOffer{Price: "5", PriceCurrency: "USD"}),
	}

	offers := FilterOffers(items, "www.example.com", "")

	require.Len(t, offers, 2)
	assert.Equal(t, "a.com", offers[0].Site)
	assert.Equal(t, "b.com", offers[1].Site)
}

func TestFilterOffers_Icon(t *testing.T) {
	withThumb := item("a.com", "Widget", types.SearchOffer{Price: "5"})
	withThumb.PageMap.CSEThumbnail = []types.SearchImage{{Src: "https://a.com/t.png"}}
	withThumb.PageMap.CSEImage = []types.SearchImage{{Src: "https://a.com/i.png"}}
	withImage := item("b.com", "Widget", types.SearchOffer{Price: "6"})
	withImage.PageMap.CSEImage = []types.SearchImage{{Src: "https://b.com/i.png"}}

	offers := FilterOffers([]types.SearchItem{withThumb, withImage}, "example.com", "")

	require.Len(t, offers, 2)
	assert.Equal(t, "https://a.com/t.png", offers[0].Icon)
	assert.Equal(t, "https://b.com/i.png", offers[1].Icon)
}

func TestParseOfferPrice(t *testing.T) {
	tests := []struct {
		raw  interface{}
		want string
		ok   bool
	}{
		{"19.99", "19.99", true},
		{"$1,299.99", "1299.99", true},
		{"1.299.00", "1.299", true},
		{42.0, "42", true},
		{"free", "", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		price, ok := parseOfferPrice(tt.raw)
		assert.Equal(t, tt.ok, ok, "%v", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, price.String(), "%v", tt.raw)
		}
	}
}

func TestPriceAdapter_FetchAlternatives(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		assert.Equal(t, "search-key", q.Get("key"))
		assert.Equal(t, "engine", q.Get("cx"))
		assert.Equal(t, "Acme Widget", q.Get("q"))
		assert.Equal(t, "us", q.Get("gl"))

		json.NewEncoder(w).Encode(types.SearchResponse{Items: []types.SearchItem{
			item("www.other.com", "Acme Widget", types.SearchOffer{Price: "17.00", PriceCurrency: "USD"}),
			item("www.acme.com", "Acme Widget", types.SearchOffer{Price: "15.00", PriceCurrency: "USD"}),
		}})
	}))
	defer server.Close()

	logger := logrus.New()
	c := cache.NewCache(cache.NewMemoryStore(), logger)
	adapter := NewPriceAdapter(testConfig(server.URL), logger, c)
	details := types.ProductDetails{Brand: "Acme", Title: "Widget", Currency: "USD", Country: "us"}

	offers := adapter.FetchAlternatives(context.Background(), details, "www.acme.com")
	require.Len(t, offers, 1)
	assert.Equal(t, "other.com", offers[0].Site)

	again := adapter.FetchAlternatives(context.Background(), details, "www.acme.com")
	assert.Equal(t, offers, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var cached []types.Offer
	require.True(t, c.Get(context.Background(), "google_Acme Widget_us", time.Hour, &cached))
	require.Len(t, cached, 2)
	assert.Equal(t, "other.com", cached[0].Site)
	assert.Equal(t, "acme.com", cached[1].Site)
}

func TestPriceAdapter_FetchAlternatives_SameProductOnTwoSites(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(types.SearchResponse{Items: []types.SearchItem{
			item("www.acme.com", "Acme Widget", types.SearchOffer{Price: "15.00", PriceCurrency: "USD"}),
			item("www.other.com", "Acme Widget", types.SearchOffer{Price: "17.00", PriceCurrency: "USD"}),
		}})
	}))
	defer server.Close()

	logger := logrus.New()
	adapter := NewPriceAdapter(testConfig(server.URL), logger, cache.NewCache(cache.NewMemoryStore(), logger))
	details := types.ProductDetails{GTIN: "012345678905", Currency: "USD", Country: "us"}

	fromAcme := adapter.FetchAlternatives(context.Background(), details, "www.acme.com")
	require.Len(t, fromAcme, 1)
	assert.Equal(t, "other.com", fromAcme[0].Site)

	fromOther := adapter.FetchAlternatives(context.Background(), details, "www.other.com")
	require.Len(t, fromOther, 1)
	assert.Equal(t, "acme.com", fromOther[0].Site)
	assert.Equal(t, 15.0, fromOther[0].Price)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPriceAdapter_CachedCandidatesFilteredByCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SearchResponse{Items: []types.SearchItem{
			item("shop.de", "Widget", types.SearchOffer{Price: "10", PriceCurrency: "EUR"}),
			item("shop.com", "Widget", types.SearchOffer{Price: "12", PriceCurrency: "USD"}),
		}})
	}))
	defer server.Close()

	logger := logrus.New()
	adapter := NewPriceAdapter(testConfig(server.URL), logger, cache.NewCache(cache.NewMemoryStore(), logger))

	inEuros := adapter.FetchAlternatives(context.Background(), types.ProductDetails{Title: "Widget", Currency: "EUR"}, "example.org")
	inDollars := adapter.FetchAlternatives(context.Background(), types.ProductDetails{Title: "Widget", Currency: "USD"}, "example.org")

	require.Len(t, inEuros, 1)
	assert.Equal(t, "shop.de", inEuros[0].Site)
	require.Len(t, inDollars, 1)
	assert.Equal(t, "shop.com", inDollars[0].Site)
}

func TestPriceCandidates(t *testing.T) {
	candidates := PriceCandidates([]types.SearchItem{
		item("www.acme.com", "Acme Widget", types.SearchOffer{Price: "$15.00", PriceCurrency: "USD"}),
		item("forum.example", "Widget forum", types.SearchOffer{Price: "1", PriceCurrency: "USD"}),
		item("noprice.com", "Acme Widget"),
	})

	require.Len(t, candidates, 1)
	assert.Equal(t, "acme.com", candidates[0].Site)
	assert.Equal(t, 15.0, candidates[0].Price)
}

func TestPriceAdapter_EmptyQuery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	adapter := NewPriceAdapter(testConfig(server.URL), logrus.New(), nil)

	offers := adapter.FetchAlternatives(context.Background(), types.ProductDetails{Country: "us"}, "example.com")

	assert.NotNil(t, offers)
	assert.Empty(t, offers)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPriceAdapter_MissingCredentials(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Search.EngineID = ""
	adapter := NewPriceAdapter(cfg, logrus.New(), nil)

	offers := adapter.FetchAlternatives(context.Background(), types.ProductDetails{Title: "Widget"}, "example.com")

	assert.Empty(t, offers)
}

func TestPriceAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logger := logrus.New()
	c := cache.NewCache(cache.NewMemoryStore(), logger)
	adapter := NewPriceAdapter(testConfig(server.URL), logger, c)

	offers := adapter.FetchAlternatives(context.Background(), types.ProductDetails{Title: "Widget"}, "example.com")

	assert.Empty(t, offers)
	var cached []types.Offer
	assert.False(t, c.Get(context.Background(), "google_Widget_", time.Hour, &cached))
}
