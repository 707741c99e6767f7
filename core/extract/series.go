package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/shiggsy365/bookstack/core"
)

// Series extracts the author name and the ordered series groups from an
// author page. Groups without books are dropped.
func (e *Extractor) Series(doc *goquery.Document) core.AuthorPage {
	page := core.AuthorPage{
		Author: authorName(doc),
		Series: []core.SeriesGroup{},
	}

	content := contentContainer(doc)
	if content == nil {
		return page
	}

	var groups []core.SeriesGroup
	current := -1
	content.Find("*").Each(func(_ int, el *goquery.Selection) {
		switch goquery.NodeName(el) {
		case "h2", "h3", "h4":
			name := text(el)
			if containsAny(name, SkipHeaders) {
				current = -1
				return
			}
			if name != "" {
				groups = append(groups, core.SeriesGroup{Name: name, Books: []core.BookRef{}})
				current = len(groups) - 1
			}
		case "table":
			if current >= 0 {
				groups[current].Books = append(groups[current].Books, tableBooks(el)...)
			}
		case "ul", "ol":
			if current >= 0 {
				groups[current].Books = append(groups[current].Books, listBooks(el)...)
			}
		case "p":
			if current >= 0 {
				if book, ok := paragraphBook(el); ok {
					groups[current].Books = append(groups[current].Books, book)
				}
			}
		}
	})

	for _, g := range groups {
		if len(g.Books) > 0 {
			page.Series = append(page.Series, g)
		}
	}
	return page
}

func authorName(doc *goquery.Document) string {
	name := text(doc.Find("h1.entry-title").First())
	if name == "" {
		name = text(doc.Find("h1").First())
	}
	return CleanAuthorName(name)
}

func tableBooks(table *goquery.Selection) []core.BookRef {
	var books []core.BookRef
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		title := text(cells.First())
		if title == "" || HeaderKeywords[strings.ToLower(title)] {
			return
		}

		var purchase string
		cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			href := cell.Find("a[href]").First().AttrOr("href", "")
			if isRetailer(href) {
				purchase = href
				return false
			}
			return true
		})
		books = append(books, core.BookRef{Title: title, PurchaseLink: purchase})
	})
	return books
}

func listBooks(list *goquery.Selection) []core.BookRef {
	var books []core.BookRef
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		title := text(li)
		if containsAny(title, CommentMarkers) {
			return
		}
		if utf8.RuneCountInString(title) < minListItemBook || !digitOrParen.MatchString(title) {
			return
		}
		books = append(books, core.BookRef{Title: title, PurchaseLink: purchaseLink(li)})
	})
	return books
}

func paragraphBook(p *goquery.Selection) (core.BookRef, bool) {
	title := text(p)
	if utf8.RuneCountInString(title) > maxParagraphBook {
		return core.BookRef{}, false
	}
	if numberedRun.MatchString(title) || containsAny(title, ReadingOrderPhrases) {
		return core.BookRef{}, false
	}
	if !strings.Contains(title, "(") {
		return core.BookRef{}, false
	}
	return core.BookRef{Title: title, PurchaseLink: purchaseLink(p)}, true
}

// purchaseLink returns the first link of s when it points at a retailer.
func purchaseLink(s *goquery.Selection) string {
	href := s.Find("a[href]").First().AttrOr("href", "")
	if isRetailer(href) {
		return href
	}
	return ""
}
