package overlay

import (
	"context"

	"golang.org/x/sync/errgroup"

	"product-detector/adapters"
	"product-detector/classifier"
	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/page"
	"product-detector/internal/types"
)

// PriceSource finds priced search results for a product, regardless of the
// page they are shown on
type PriceSource interface {
	FetchCandidates(ctx context.Context, details types.ProductDetails) []types.Offer
}

// IssueSource finds reported problems for a product
type IssueSource interface {
	FetchIssues(ctx context.Context, details types.ProductDetails) types.IssueReport
}

// Controller classifies a page and, for product pages, fills the panel with
// price alternatives and reported issues.
type Controller struct {
	classifier *classifier.Classifier
	prices     PriceSource
	issues     IssueSource
	logger     types.Logger
}

// NewController wires the classifier and both search adapters around c
func NewController(cfg *config.Config, logger types.Logger, c *cache.Cache) *Controller {
	return NewControllerWith(
		classifier.NewClassifier(logger),
		adapters.NewPriceAdapter(cfg, logger, c),
		adapters.NewIssueAdapter(cfg, logger, c),
		logger,
	)
}

// NewControllerWith builds a controller from explicit collaborators
func NewControllerWith(cl *classifier.Classifier, prices PriceSource, issues IssueSource, logger types.Logger) *Controller {
	return &Controller{
		classifier: cl,
		prices:     prices,
		issues:     issues,
		logger:     logger,
	}
}

// Run processes one page load. A dismissed session renders nothing and
// returns a nil result. Both lookups run concurrently and each renders its own
// region when done; Run returns once both have finished.
func (c *Controller) Run(ctx context.Context, p *page.Page, session *Session, sink Sink) (*types.ClassificationResult, error) {
	if session.Dismissed() {
		c.logger.Debug("Panel dismissed for this session, skipping")
		return nil, nil
	}

	sink.Render(RegionStatus, CheckingMessage)

	result := c.classifier.Classify(p)
	c.logger.Infof("is product page: %t (%s)", result.IsProductPage, result.Reason)

	details, err := RenderDetails(result)
	if err != nil {
		return &result, err
	}
	sink.Render(RegionDetails, details)

	if !result.IsProductPage {
		sink.Render(RegionStatus, "not-product")
		return &result, nil
	}
	sink.Render(RegionStatus, "is-product")
	sink.Render(RegionAlternatives, FetchingPrices)
	sink.Render(RegionIssues, FetchingIssues)

	host := p.Hostname()
	var g errgroup.Group

	g.Go(func() error {
		candidates := c.prices.FetchCandidates(ctx, result.Details)
		offers := adapters.SelectOffers(candidates, host, result.Details.Currency)
		html, err := RenderOffers(offers, len(candidates))
		if err != nil {
			return err
		}
		sink.Render(RegionAlternatives, html)
		return nil
	})

	g.Go(func() error {
		report := c.issues.FetchIssues(ctx, result.Details)
		html, err := RenderIssues(report)
		if err != nil {
			return err
		}
		sink.Render(RegionIssues, html)
		return nil
	})

	return &result, g.Wait()
}

// Lookup runs both lookups concurrently and returns their raw results
func (c *Controller) Lookup(ctx context.Context, details types.ProductDetails, pageHost string) ([]types.Offer, types.IssueReport) {
	var (
		offers []types.Offer
		report types.IssueReport
		g      errgroup.Group
	)
	g.Go(func() error {
		offers = c.Alternatives(ctx, details, pageHost)
		return nil
	})
	g.Go(func() error {
		report = c.issues.FetchIssues(ctx, details)
		return nil
	})
	g.Wait()
	return offers, report
}

// Alternatives returns the offers for details that are not on pageHost and
// match the page currency
func (c *Controller) Alternatives(ctx context.Context, details types.ProductDetails, pageHost string) []types.Offer {
	return adapters.SelectOffers(c.prices.FetchCandidates(ctx, details), pageHost, details.Currency)
}

// Classifier returns the classifier used by the controller
func (c *Controller) Classifier() *classifier.Classifier {
	return c.classifier
}

// Issues returns the issue source
func (c *Controller) Issues() IssueSource {
	return c.issues
}
