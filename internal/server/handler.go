package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"product-detector/internal/page"
	"product-detector/internal/types"
	"product-detector/overlay"
)

// PageLoader fetches and parses a page by URL
type PageLoader interface {
	Load(ctx context.Context, rawURL string) (*page.Page, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	controller *overlay.Controller
	loader     PageLoader
	logger     types.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(controller *overlay.Controller, loader PageLoader, logger types.Logger) *Handler {
	return &Handler{
		controller: controller,
		loader:     loader,
		logger:     logger,
	}
}

// PageRequest identifies a page. When HTML is supplied it is used as is,
// otherwise the page is loaded from URL.
type PageRequest struct {
	URL  string `json:"url" binding:"required"`
	HTML string `json:"html"`
}

// AlternativesRequest asks for offers for already extracted details
type AlternativesRequest struct {
	Details types.ProductDetails `json:"details"`
	Host    string               `json:"host"`
}

// IssuesRequest asks for reported issues for already extracted details
type IssuesRequest struct {
	Details types.ProductDetails `json:"details"`
}

// AlternativesResponse wraps the offer list
type AlternativesResponse struct {
	Offers []types.Offer `json:"offers"`
}

// AnalyzeResponse is a classification plus, for product pages, both lookups
type AnalyzeResponse struct {
	types.ClassificationResult
	Offers []types.Offer      `json:"offers"`
	Issues *types.IssueReport `json:"issues,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "product-detector",
	})
}

// Classify decides whether a page is a product page
func (h *Handler) Classify(c *gin.Context) {
	p, ok := h.resolvePage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.controller.Classifier().Classify(p))
}

// Alternatives returns price alternatives for the given details
func (h *Handler) Alternatives(c *gin.Context) {
	var req AlternativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offers := h.controller.Alternatives(c.Request.Context(), req.Details, req.Host)
	c.JSON(http.StatusOK, AlternativesResponse{Offers: nonNil(offers)})
}

// Issues returns reported issues for the given details
func (h *Handler) Issues(c *gin.Context) {
	var req IssuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	c.JSON(http.StatusOK, h.controller.Issues().FetchIssues(c.Request.Context(), req.Details))
}

// Analyze classifies a page and runs both lookups when it is a product page
func (h *Handler) Analyze(c *gin.Context) {
	p, ok := h.resolvePage(c)
	if !ok {
		return
	}

	result := h.controller.Classifier().Classify(p)
	response := AnalyzeResponse{ClassificationResult: result, Offers: []types.Offer{}}
	if result.IsProductPage {
		offers, report := h.controller.Lookup(c.Request.Context(), result.Details, p.Hostname())
		response.Offers = nonNil(offers)
		response.Issues = &report
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) resolvePage(c *gin.Context) (*page.Page, bool) {
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return nil, false
	}

	var (
		p   *page.Page
		err error
	)
	if req.HTML != "" {
		p, err = page.Parse(req.URL, req.HTML)
	} else {
		p, err = h.loader.Load(c.Request.Context(), req.URL)
	}

	switch {
	case errors.Is(err, page.ErrNoURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	case err != nil:
		h.logger.Errorf("Failed to load %s: %v", req.URL, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load page"})
		return nil, false
	}
	return p, true
}

func nonNil(offers []types.Offer) []types.Offer {
	if offers == nil {
		return []types.Offer{}
	}
	return offers
}
