package extractor

import (
	"strings"

	"product-detector/internal/page"
	"product-detector/internal/types"
)

// Stage is one step of the extraction pipeline. Stages run in order and only
// fill fields that are still empty, so earlier stages take precedence.
type Stage struct {
	Name  string
	Apply func(p *page.Page, details *types.ProductDetails)
}

// Extractor derives ProductDetails from a page
type Extractor struct {
	logger types.Logger
	stages []Stage
}

// NewExtractor creates an extractor with the default stage order
func NewExtractor(logger types.Logger) *Extractor {
	e := &Extractor{logger: logger}
	e.stages = []Stage{
		{Name: "country", Apply: e.inferCountry},
		{Name: "structured-data", Apply: e.fromStructuredData},
		{Name: "framework-state", Apply: e.fromFrameworkState},
		{Name: "meta-tags", Apply: e.fromMetaTags},
		{Name: "site-dom", Apply: e.fromSiteDOM},
		{Name: "generic-price", Apply: e.fromGenericPrice},
		{Name: "title-cleanup", Apply: e.cleanupTitle},
	}
	return e
}

// Stages returns the stage names in execution order
func (e *Extractor) Stages() []string {
	names := make([]string, 0, len(e.stages))
	for _, s := range e.stages {
		names = append(names, s.Name)
	}
	return names
}

// Extract runs every stage over the page. It never fails: missing data leaves
// fields empty.
func (e *Extractor) Extract(p *page.Page) types.ProductDetails {
	var details types.ProductDetails
	if !p.Valid() {
		e.logger.Debug("Extract called without a valid page")
		return details
	}

	for _, stage := range e.stages {
		stage.Apply(p, &details)
		e.logger.Debugf("After stage %s: %+v", stage.Name, details)
	}

	return details
}

// fill sets the field only when it is still empty
func fill(field *string, value string) {
	if *field == "" {
		*field = strings.TrimSpace(value)
	}
}
