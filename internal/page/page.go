package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoURL is returned when a page is built without a usable location
var ErrNoURL = errors.New("page has no valid URL")

// RemixContext is the global the Remix framework uses to ship loader data
const RemixContext = "__remixContext"

// KnownGlobals lists the window globals the extractor knows how to read
var KnownGlobals = []string{RemixContext}

// Page is a read-only view of a loaded document
type Page struct {
	URL     *url.URL
	Doc     *goquery.Document
	Globals map[string]interface{}
}

// Parse builds a Page from raw HTML. Embedded globals assigned in inline
// scripts are recovered on a best-effort basis.
func Parse(rawURL string, html string) (*Page, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	p := &Page{
		URL:     u,
		Doc:     doc,
		Globals: make(map[string]interface{}),
	}
	for _, name := range KnownGlobals {
		if value, ok := scanGlobal(doc, name); ok {
			p.Globals[name] = value
		}
	}

	return p, nil
}

// WithGlobals merges globals captured from a live browser, overriding anything
// recovered from the markup.
func (p *Page) WithGlobals(globals map[string]interface{}) *Page {
	if p.Globals == nil {
		p.Globals = make(map[string]interface{})
	}
	for name, value := range globals {
		if value != nil {
			p.Globals[name] = value
		}
	}
	return p
}

// Hostname returns the lowercase host without port
func (p *Page) Hostname() string {
	if p == nil || p.URL == nil {
		return ""
	}
	return strings.ToLower(p.URL.Hostname())
}

// Path returns the URL path, "/" when empty
func (p *Page) Path() string {
	if p == nil || p.URL == nil || p.URL.Path == "" {
		return "/"
	}
	return p.URL.Path
}

// Title returns the document title
func (p *Page) Title() string {
	if p == nil || p.Doc == nil {
		return ""
	}
	title := p.Doc.Find("head > title").First()
	if title.Length() == 0 {
		title = p.Doc.Find("title").First()
	}
	return strings.TrimSpace(title.Text())
}

// Global returns an embedded global object, nil when absent
func (p *Page) Global(name string) interface{} {
	if p == nil || p.Globals == nil {
		return nil
	}
	return p.Globals[name]
}

// Valid reports whether the page has the location and document the
// classifier needs.
func (p *Page) Valid() bool {
	return p != nil && p.URL != nil && p.URL.Host != "" && p.Doc != nil
}

// ParseURL validates an absolute URL, returning ErrNoURL when it has no host
func ParseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrNoURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrNoURL, rawURL)
	}
	return u, nil
}

// scanGlobal looks for `window.<name> = {...}` in inline scripts and decodes
// the first JSON value that follows the assignment.
func scanGlobal(doc *goquery.Document, name string) (interface{}, bool) {
	assign := regexp.MustCompile(`(?:window\.)?` + regexp.QuoteMeta(name) + `\s*=\s*`)

	var found interface{}
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if src, ok := s.Attr("src"); ok && src != "" {
			return true
		}
		text := s.Text()
		loc := assign.FindStringIndex(text)
		if loc == nil {
			return true
		}

		dec := json.NewDecoder(strings.NewReader(text[loc[1]:]))
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return true
		}
		found = value
		return false
	})

	return found, found != nil
}
