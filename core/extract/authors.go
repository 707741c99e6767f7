package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shiggsy365/bookstack/core"
)

// Strategy names, reported alongside author hits.
const (
	StrategyArticles = "articles"
	StrategyHeadings = "headings"
	StrategyLinks    = "links"
)

// authorStrategy mines a search results page one way. It returns nil when
// the page does not have the structure it looks for, and a non-nil slice,
// possibly empty, when it claimed the page.
type authorStrategy struct {
	name string
	run  func(e *Extractor, doc *goquery.Document) []core.AuthorHit
}

var authorStrategies = []authorStrategy{
	{StrategyArticles, (*Extractor).fromArticles},
	{StrategyHeadings, (*Extractor).fromHeadings},
	{StrategyLinks, (*Extractor).fromLinks},
}

// Authors extracts author links from a search results page. Strategies
// run in order and the first one that claims the page wins; its name is
// returned with the hits. A page with article-like containers is always
// claimed by the article strategy, even when none of them yields an author.
// An unclaimed page returns a nil slice and "".
func (e *Extractor) Authors(doc *goquery.Document) ([]core.AuthorHit, string) {
	for _, s := range authorStrategies {
		if hits := s.run(e, doc); hits != nil {
			return hits, s.name
		}
	}
	return nil, ""
}

// fromArticles reads article elements, or post/result divs when the page
// has no articles. It returns nil only when neither exists.
func (e *Extractor) fromArticles(doc *goquery.Document) []core.AuthorHit {
	containers := doc.Find("article")
	if containers.Length() == 0 {
		containers = doc.Find("div").FilterFunction(classContains("post", "search-result", "result"))
	}
	if containers.Length() == 0 {
		return nil
	}

	hits := []core.AuthorHit{}
	containers.Each(func(_ int, c *goquery.Selection) {
		heading := firstOf(c, "h2.entry-title", "h2", "h3.entry-title", "h3", "h1")
		if heading == nil {
			return
		}
		link := heading.Find("a").First()
		if link.Length() == 0 {
			link = c.Find("a[href]").First()
		}
		if link.Length() == 0 {
			return
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || href == "#" {
			return
		}
		if strings.HasPrefix(href, "/") {
			if u, ok := e.absolutize(href); ok {
				href = u.String()
			}
		}
		hits = append(hits, core.AuthorHit{
			Name:        text(link),
			URL:         href,
			Description: articleDescription(c),
		})
	})
	return hits
}

func articleDescription(c *goquery.Selection) string {
	excerpt := c.Find("div.entry-summary").First()
	if excerpt.Length() == 0 {
		excerpt = c.Find("div").FilterFunction(classContains("summary")).First()
	}
	if excerpt.Length() == 0 {
		excerpt = c.Find("div").FilterFunction(classContains("excerpt")).First()
	}
	if excerpt.Length() == 0 {
		return text(c.Find("p").First())
	}
	return text(excerpt.Find("p").First())
}

// fromHeadings reads h2/h3 headings that wrap a link to an author page.
func (e *Extractor) fromHeadings(doc *goquery.Document) []core.AuthorHit {
	var hits []core.AuthorHit
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		link := h.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || href == "#" {
			return
		}
		u, ok := e.absolutize(href)
		if !ok || !e.sameSite(u) || isIndexPage(u) || hasPathFragment(u, tagOrCategory) {
			return
		}
		name := text(link)
		if name == "" {
			return
		}

		var desc string
		if next := h.Next(); next.Is("p, div") {
			desc = truncate(text(next), maxDescriptionLen)
		}
		hits = append(hits, core.AuthorHit{Name: name, URL: u.String(), Description: desc})
	})
	return hits
}

// fromLinks collects every same-site link that could be an author page.
func (e *Extractor) fromLinks(doc *goquery.Document) []core.AuthorHit {
	var hits []core.AuthorHit
	seen := seenSet{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		name := text(a)
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if name == "" || href == "" {
			return
		}
		u, ok := e.absolutize(href)
		if !ok || !e.sameSite(u) || isIndexPage(u) || hasPathFragment(u, SkipPathFragments) {
			return
		}
		if containsAny(name, JunkLinkPhrases) {
			return
		}
		if !seen.add(normalizeURL(u)) {
			return
		}

		var desc string
		if next := a.Next(); next.Is("p") {
			desc = truncate(text(next), maxDescriptionLen)
		}
		hits = append(hits, core.AuthorHit{Name: name, URL: u.String(), Description: desc})
	})
	return hits
}
