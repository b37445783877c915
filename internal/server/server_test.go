package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-detector/classifier"
	"product-detector/internal/config"
	"product-detector/internal/page"
	"product-detector/internal/types"
	"product-detector/overlay"
)

type stubLoader struct {
	html string
	err  error
}

func (s *stubLoader) Load(ctx context.Context, rawURL string) (*page.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return page.Parse(rawURL, s.html)
}

type stubSources struct{}

func (s *stubSources) FetchCandidates(ctx context.Context, details types.ProductDetails) []types.Offer {
	return []types.Offer{
		{Site: "other.com", Title: details.Title, Link: "https://other.com/x", Price: 12.5, Currency: "USD"},
		{Site: "acme.com", Title: details.Title, Link: "https://acme.com/x", Price: 11, Currency: "USD"},
	}
}

func (s *stubSources) FetchIssues(ctx context.Context, details types.ProductDetails) types.IssueReport {
	return types.IssueReport{Issues: []string{"Cracks easily"}}
}

const widgetHTML = `<script type="application/ld+json">{"@type":"Product","name":"Widget","brand":"Acme","offers":{"price":"19.99","priceCurrency":"USD"}}</script>`

func setupRouter(loader PageLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	sources := &stubSources{}
	controller := overlay.NewControllerWith(classifier.NewClassifier(logger), sources, sources, logger)
	return SetupRouter(config.Default(), NewHandler(controller, loader, logger))
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"product-detector"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestClassify_WithHTML(t *testing.T) {
	router := setupRouter(&stubLoader{err: errors.New("should not load")})

	w := postJSON(router, "/api/v1/classify", PageRequest{URL: "https://shop.example.com/widget", HTML: widgetHTML})

	require.Equal(t, http.StatusOK, w.Code)
	var result types.ClassificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsProductPage)
	assert.Equal(t, "Widget", result.Details.Title)
	assert.Equal(t, "us", result.Details.Country)
}

func TestClassify_LoadsWhenNoHTML(t *testing.T) {
	router := setupRouter(&stubLoader{html: `<title>About</title>`})

	w := postJSON(router, "/api/v1/classify", PageRequest{URL: "https://example.com/about"})

	require.Equal(t, http.StatusOK, w.Code)
	var result types.ClassificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.IsProductPage)
	assert.Equal(t, classifier.ReasonNoIndicators, result.Reason)
}

func TestClassify_BadRequests(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := postJSON(router, "/api/v1/classify", map[string]string{"html": "<p>x</p>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/v1/classify", PageRequest{URL: "/relative", HTML: "<p>x</p>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestClassify_LoadFailure(t *testing.T) {
	router := setupRouter(&stubLoader{err: errors.New("connection refused")})

	w := postJSON(router, "/api/v1/classify", PageRequest{URL: "https://example.com/p/1"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load page"}`, w.Body.String())
}

func TestAlternatives(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := postJSON(router, "/api/v1/alternatives", AlternativesRequest{
		Details: types.ProductDetails{Title: "Widget"},
		Host:    "shop.acme.com",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp AlternativesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, "Widget", resp.Offers[0].Title)
	assert.Equal(t, "other.com", resp.Offers[0].Site)
}

func TestIssues(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := postJSON(router, "/api/v1/issues", IssuesRequest{Details: types.ProductDetails{Brand: "Acme", Title: "Widget"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"issues":["Cracks easily"]}`, w.Body.String())
}

func TestAnalyze(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := postJSON(router, "/api/v1/analyze", PageRequest{URL: "https://www.acme.com/widget", HTML: widgetHTML})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		IsProductPage bool                 `json:"isProductPage"`
		Reason        string               `json:"reason"`
		Details       types.ProductDetails `json:"details"`
		Offers        []types.Offer        `json:"offers"`
		Issues        *types.IssueReport   `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsProductPage)
	assert.Equal(t, "Acme", resp.Details.Brand)
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, "other.com", resp.Offers[0].Site)
	require.NotNil(t, resp.Issues)
	assert.Equal(t, []string{"Cracks easily"}, resp.Issues.Issues)
}

func TestAnalyze_NotProduct(t *testing.T) {
	router := setupRouter(&stubLoader{})

	w := postJSON(router, "/api/v1/analyze", PageRequest{URL: "https://example.com/", HTML: "<p>hi</p>"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isProductPage":false,"reason":"No product indicators found.","details":{"title":"","brand":"","gtin":"","mpn":"","price":"","currency":"","country":""},"offers":[]}`, w.Body.String())
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"exact match", "chrome-extension://abc", []string{"chrome-extension://abc"}, true},
		{"wildcard match", "chrome-extension://abc", []string{"chrome-extension://*"}, true},
		{"no match", "http://evil.com", []string{"chrome-extension://*"}, false},
		{"empty origin", "", []string{"chrome-extension://*"}, false},
		{"empty allowed list", "chrome-extension://abc", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAllowedOrigin(tt.origin, tt.allowed))
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	router := setupRouter(&stubLoader{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/classify", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "chrome-extension://abc", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
