package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/metrics"
	"product-detector/internal/types"
)

const issueAdapterName = "issues"

const issuePrompt = `
Analyze user reviews and technical forums for the product "%s".
List up to 3 of the most specific, verifiable, and frequently reported negative issues.
Prioritize problems with numbers, percentages, or specific component names (e.g., "battery life drops 20%% in a year", "keyboard fails after 18 months").
For perfumes, focus on longevity ('fades after 1-2 hours') or batch issues.
If no verifiable issues are widely reported, return an empty issues array.
Respond in JSON: {"issues": ["issue 1", "issue 2"]}
`

// jsonSpan matches from the first '{' to the last '}' across lines
var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

// IssueAdapter asks a chat completion model for commonly reported problems
type IssueAdapter struct {
	*BaseAdapter
	client *openai.Client
}

// NewIssueAdapter creates an issue adapter
func NewIssueAdapter(cfg *config.Config, logger types.Logger, c *cache.Cache) *IssueAdapter {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}

	return &IssueAdapter{
		BaseAdapter: NewBaseAdapter(cfg, logger, c),
		client:      openai.NewClientWithConfig(clientConfig),
	}
}

// IssueQuery is "brand title", trimmed
func IssueQuery(details types.ProductDetails) string {
	return strings.TrimSpace(details.Brand + " " + details.Title)
}

// FetchIssues returns the reported issues for the product. Any failure yields
// an empty report.
func (a *IssueAdapter) FetchIssues(ctx context.Context, details types.ProductDetails) types.IssueReport {
	query := IssueQuery(details)
	if query == "" {
		return emptyReport()
	}

	key := "openai_" + query
	var cached types.IssueReport
	if a.fromCache(ctx, key, a.config.Cache.IssueTTL, &cached) {
		return normalize(cached)
	}

	if a.config.OpenAI.APIKey == "" {
		a.logger.Error("OpenAI API key is missing, skipping issue lookup")
		return emptyReport()
	}

	a.logger.Infof("Fetching reported issues for %q", query)
	metrics.SearchRequests.WithLabelValues(issueAdapterName).Inc()
	start := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.OpenAI.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(issuePrompt, query),
			},
		},
		Temperature: a.config.OpenAI.Temperature,
		MaxTokens:   a.config.OpenAI.MaxTokens,
	})
	metrics.SearchLatency.WithLabelValues(issueAdapterName).Observe(time.Since(start).Seconds())
	if err != nil {
		a.logger.Errorf("Issue lookup failed: %v", err)
		metrics.SearchErrors.WithLabelValues(issueAdapterName).Inc()
		return emptyReport()
	}
	if len(resp.Choices) == 0 {
		a.logger.Error("Issue lookup returned no choices")
		metrics.SearchErrors.WithLabelValues(issueAdapterName).Inc()
		return emptyReport()
	}

	report, err := ParseIssueReply(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Errorf("Failed to parse issue reply: %v", err)
		metrics.SearchErrors.WithLabelValues(issueAdapterName).Inc()
		return emptyReport()
	}

	a.toCache(ctx, key, report)
	return report
}

// ParseIssueReply extracts the JSON object embedded in a model reply. A reply
// without any object is a valid empty report; an object that does not decode
// is an error.
func ParseIssueReply(content string) (types.IssueReport, error) {
	span := jsonSpan.FindString(content)
	if span == "" {
		return emptyReport(), nil
	}

	var report types.IssueReport
	if err := json.Unmarshal([]byte(span), &report); err != nil {
		return emptyReport(), fmt.Errorf("failed to decode issue report: %w", err)
	}
	return normalize(report), nil
}

func emptyReport() types.IssueReport {
	return types.IssueReport{Issues: []string{}}
}

func normalize(report types.IssueReport) types.IssueReport {
	if report.Issues == nil {
		report.Issues = []string{}
	}
	return report
}
