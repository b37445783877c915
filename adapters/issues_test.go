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
	"product-detector/internal/types"
)

// chatServer answers chat completion requests with the given reply content
func chatServer(t *testing.T, reply string, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer openai-key", r.Header.Get("Authorization"))

		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 150, req.MaxTokens)
		assert.InDelta(t, 0.1, req.Temperature, 0.0001)
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, `the product "Acme Widget"`)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
}

var acmeWidget = types.ProductDetails{Brand: "Acme", Title: "Widget"}

func TestIssueAdapter_FetchIssues(t *testing.T) {
	var calls int32
	server := chatServer(t, "Sure!\n{\"issues\": [\"Hinge cracks after 6 months\",\n \"Battery lasts 2 hours\"]}\nHope this helps.", &calls)
	defer server.Close()

	logger := logrus.New()
	c := cache.NewCache(cache.NewMemoryStore(), logger)
	adapter := NewIssueAdapter(testConfig(server.URL), logger, c)

	report := adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Equal(t, []string{"Hinge cracks after 6 months", "Battery lasts 2 hours"}, report.Issues)

	again := adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Equal(t, report, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIssueAdapter_NoJSONIsCachedAsEmpty(t *testing.T) {
	var calls int32
	server := chatServer(t, "I could not find anything.", &calls)
	defer server.Close()

	logger := logrus.New()
	c := cache.NewCache(cache.NewMemoryStore(), logger)
	adapter := NewIssueAdapter(testConfig(server.URL), logger, c)

	report := adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Equal(t, []string{}, report.Issues)

	var cached types.IssueReport
	require.True(t, c.Get(context.Background(), "openai_Acme Widget", time.Hour, &cached))
	assert.Empty(t, cached.Issues)

	adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIssueAdapter_MalformedJSONNotCached(t *testing.T) {
	var calls int32
	server := chatServer(t, `{"issues": [unquoted]}`, &calls)
	defer server.Close()

	logger := logrus.New()
	c := cache.NewCache(cache.NewMemoryStore(), logger)
	adapter := NewIssueAdapter(testConfig(server.URL), logger, c)

	report := adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Empty(t, report.Issues)

	adapter.FetchIssues(context.Background(), acmeWidget)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIssueAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	adapter := NewIssueAdapter(testConfig(server.URL), logrus.New(), nil)

	report := adapter.FetchIssues(context.Background(), acmeWidget)

	assert.NotNil(t, report.Issues)
	assert.Empty(t, report.Issues)
}

func TestIssueAdapter_EmptyQueryAndMissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	adapter := NewIssueAdapter(testConfig(server.URL), logrus.New(), nil)
	assert.Empty(t, adapter.FetchIssues(context.Background(), types.ProductDetails{GTIN: "123"}).Issues)

	cfg := testConfig(server.URL)
	cfg.OpenAI.APIKey = ""
	adapter = NewIssueAdapter(cfg, logrus.New(), nil)
	assert.Empty(t, adapter.FetchIssues(context.Background(), acmeWidget).Issues)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestParseIssueReply(t *testing.T) {
	report, err := ParseIssueReply("```json\n{\"issues\":[\"a\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Issues)

	report, err = ParseIssueReply(`{"issues": null}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, report.Issues)

	_, err = ParseIssueReply(`{"issues": "not a list"}`)
	assert.Error(t, err)
}
