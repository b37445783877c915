package overlay

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"product-detector/internal/types"
)

// MaxOffers caps the rows of the price table
const MaxOffers = 10

// Placeholder and empty-state messages
const (
	CheckingMessage = "checking..."
	FetchingPrices  = "<i>Fetching prices...</i>"
	FetchingIssues  = "<i>Asking AI...</i>"
	NoOffersMessage = "No other offers found."
	NoMatchMessage  = "No other offers found in the same currency."
	NoIssuesMessage = "Couldn't find any verifiable reported issues with this product."
)

var detailsTemplate = template.Must(template.New("details").Parse(
	`<div class="product-details">is product page: {{.IsProductPage}}<br>({{.Reason}})` +
		`{{if .IsProductPage}}{{with .Details}}<br><br>--- Product Details ---` +
		`<br><b>Title:</b> <span class="truncate-text">{{or .Title "Not found"}}</span>` +
		`<br><b>Brand:</b> <span class="truncate-text">{{or .Brand "Not found"}}</span>` +
		`<br><b>Price:</b> {{or .Price "Not found"}}` +
		`<br><b>Currency:</b> {{or .Currency "Not found"}}` +
		`<br><b>GTIN:</b> {{or .GTIN "Not found"}}` +
		`<br><b>MPN:</b> {{or .MPN "Not found"}}` +
		`{{end}}{{end}}</div>`))

var offersTemplate = template.Must(template.New("offers").Parse(
	`<table class="price-table">{{range .}}` +
		`<tr><td class="icon-cell"><img src="{{.Icon}}" alt="{{.Host}} icon"></td>` +
		`<td><a href="{{.Link}}" target="_blank" title="{{.Title}}">{{.Host}}</a></td>` +
		`<td class="price-cell">{{.Price}} {{.Currency}}</td></tr>` +
		`{{end}}</table>`))

var issuesTemplate = template.Must(template.New("issues").Parse(
	`{{if not .}}<br>Couldn&#39;t find any verifiable reported issues with this product.{{else}}` +
		`<ul class="analysis-list">{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}`))

type offerRow struct {
	Icon     string
	Host     string
	Link     string
	Title    string
	Price    string
	Currency string
}

// RenderDetails renders the classification outcome and, when positive, the
// extracted attributes.
func RenderDetails(result types.ClassificationResult) (string, error) {
	var b strings.Builder
	if err := detailsTemplate.Execute(&b, result); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderOffers renders at most MaxOffers offers as a table. found is the
// number of search results before the page filters ran, which picks the
// empty-state message.
func RenderOffers(offers []types.Offer, found int) (string, error) {
	if found == 0 {
		return "<br>" + NoOffersMessage, nil
	}
	if len(offers) == 0 {
		return "<br>" + NoMatchMessage, nil
	}
	if len(offers) > MaxOffers {
		offers = offers[:MaxOffers]
	}

	rows := make([]offerRow, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, offerRow{
			Icon:     o.Icon,
			Host:     linkHost(o.Link),
			Link:     o.Link,
			Title:    o.Title,
			Price:    strconv.FormatFloat(o.Price, 'f', -1, 64),
			Currency: o.Currency,
		})
	}

	var b strings.Builder
	if err := offersTemplate.Execute(&b, rows); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderIssues renders the reported issues as a list
func RenderIssues(report types.IssueReport) (string, error) {
	var b strings.Builder
	if err := issuesTemplate.Execute(&b, report.Issues); err != nil {
		return "", err
	}
	return b.String(), nil
}

func linkHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
