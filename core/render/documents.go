package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shiggsy365/bookstack/core"
)

// ReadingList builds the document for an author page. When checks is
// non-nil every book is annotated with its library status.
func ReadingList(page core.AuthorPage, sourceURL string, checks map[string]core.MatchResult) core.Document {
	title := page.Author
	if title == "" {
		title = "Reading list"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(page.Series) == 0 {
		b.WriteString("No series found.\n")
	}
	for _, s := range page.Series {
		fmt.Fprintf(&b, "## %s\n\n", s.Name)
		for i, book := range s.Books {
			fmt.Fprintf(&b, "%d. %s\n", i+1, bookLine(book, checks))
		}
		b.WriteString("\n")
	}

	var data any = page
	if checks != nil {
		data = struct {
			core.AuthorPage
			Library map[string]core.MatchResult `json:"library"`
		}{page, checks}
	}

	return core.Document{
		Meta:     newMeta(title, sourceURL),
		Markdown: b.String(),
		Data:     data,
	}
}

func bookLine(book core.BookRef, checks map[string]core.MatchResult) string {
	line := book.Title
	if checks != nil {
		if r := checks[book.Title]; r.InLibrary {
			line = fmt.Sprintf("[x] %s (in library: %s, score %d)", line, r.MatchedTitle, r.Score)
		} else {
			line = "[ ] " + line
		}
	}
	if book.PurchaseLink != "" {
		line += fmt.Sprintf(" [buy](%s)", book.PurchaseLink)
	}
	return line
}

// CatalogPage builds the document for a catalog feed page. Descriptions
// are converted from their sanitized HTML through n.
func CatalogPage(page core.FeedPage, sourceURL string, n core.Normalizer) core.Document {
	title := "Catalog"
	if page.Type == "acquisition" {
		title = "Catalog books"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, e := range page.Entries {
		fmt.Fprintf(&b, "## %s\n\n", strings.Join(strings.Fields(e.Title), " "))
		if e.Author != "" {
			fmt.Fprintf(&b, "*%s*\n\n", e.Author)
		}
		if e.SeriesName != "" {
			if e.SeriesIndex != "" {
				fmt.Fprintf(&b, "Series: %s #%s\n\n", e.SeriesName, e.SeriesIndex)
			} else {
				fmt.Fprintf(&b, "Series: %s\n\n", e.SeriesName)
			}
		}
		if desc := description(e, n); desc != "" {
			b.WriteString(desc + "\n\n")
		}
		for _, l := range e.Links {
			label := l.Rel
			if label == "" {
				label = "link"
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", label, l.Href)
		}
		b.WriteString("\n")
	}

	return core.Document{
		Meta:     newMeta(title, sourceURL),
		Markdown: b.String(),
		Data:     page,
	}
}

func description(e core.FeedEntry, n core.Normalizer) string {
	if n != nil && e.DescriptionHTML != "" {
		if md, err := n.Normalize(e.DescriptionHTML); err == nil && md != "" {
			return md
		}
	}
	return e.Description
}

func newMeta(title, sourceURL string) core.DocumentMeta {
	return core.DocumentMeta{
		Title:       title,
		SourceURL:   sourceURL,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
