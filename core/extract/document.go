// Package extract mines reference site HTML for author links and for
// ordered "series -> books" lists.
//
// Both operations are heuristic. Pages are weakly structured, so every
// lookup is a fallback chain and absent structures yield empty results
// rather than errors.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/shiggsy365/bookstack/core/normalize"
)

// DefaultSiteURL is the reference site used when none is configured.
const DefaultSiteURL = "https://www.bookseriesinorder.com"

// Extractor holds the reference site used for same-site checks and for
// absolutizing root-relative links.
type Extractor struct {
	site *url.URL
}

// New creates an Extractor for siteURL, falling back to DefaultSiteURL
// when siteURL is empty or has no host.
func New(siteURL string) *Extractor {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || u.Host == "" {
		u, _ = url.Parse(DefaultSiteURL)
	}
	return &Extractor{site: u}
}

// SiteURL returns the reference site base URL without a trailing slash.
func (e *Extractor) SiteURL() string {
	return strings.TrimSuffix(e.site.String(), "/")
}

// ParseHTML decodes body using the charset declared in contentType or in
// the document itself, then parses it.
func ParseHTML(body []byte, contentType string) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// contentContainer finds the main content region, in priority order.
func contentContainer(doc *goquery.Document) *goquery.Selection {
	for _, find := range []func() *goquery.Selection{
		func() *goquery.Selection { return doc.Find("div.entry-content") },
		func() *goquery.Selection { return doc.Find("main") },
		func() *goquery.Selection { return doc.Find("article") },
		func() *goquery.Selection { return doc.Find("div").FilterFunction(classContains("content")) },
		func() *goquery.Selection { return doc.Find("body") },
	} {
		if sel := find(); sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

// classContains matches elements whose class attribute mentions any of
// words, case-insensitively.
func classContains(words ...string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		if !ok {
			return false
		}
		return containsAny(class, words)
	}
}

// firstOf returns the first element matched by the selectors, tried in
// order.
func firstOf(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

// text is the whitespace-collapsed inner text of s.
func text(s *goquery.Selection) string {
	return normalize.Collapse(s.Text())
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
