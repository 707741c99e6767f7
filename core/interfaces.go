// Package core defines the data model and pipeline interfaces for bookstack.
// The parsing, extraction and matching stages are pure functions over these
// value types; fetching and rendering sit behind small interfaces.
package core

import "context"

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Header      map[string][]string
	Body        []byte
}

// Link is a single feed link. Href is always absolute or proxy-relative.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
}

// FeedEntry is one normalized catalog item.
type FeedEntry struct {
	Title           string `json:"title"`
	ID              string `json:"id"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html,omitempty"`
	SeriesName      string `json:"series_name,omitempty"`
	SeriesIndex     string `json:"series_index,omitempty"`
	Author          string `json:"author,omitempty"`
	Links           []Link `json:"links"`
}

// FeedPage is a parsed catalog page together with its kind
// ("acquisition" or "navigation").
type FeedPage struct {
	Entries []FeedEntry `json:"entries"`
	Type    string      `json:"type"`
}

// BookRef is a book named on a reference page.
type BookRef struct {
	Title        string `json:"title"`
	PurchaseLink string `json:"amazon_link"`
}

// SeriesGroup is an ordered list of books attributed to a named series.
type SeriesGroup struct {
	Name  string    `json:"name"`
	Books []BookRef `json:"books"`
}

// AuthorPage is the extracted content of an author's series page.
type AuthorPage struct {
	Author string        `json:"author"`
	Series []SeriesGroup `json:"series"`
}

// AuthorHit is an author link found on a reference site search page.
type AuthorHit struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// MatchResult reports whether a queried title exists in the catalog.
// Only InLibrary is populated when no qualifying match was found.
type MatchResult struct {
	QueryTitle   string `json:"-"`
	InLibrary    bool   `json:"in_library"`
	Score        int    `json:"match_score,omitempty"`
	MatchedTitle string `json:"opds_title,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
}

// DocumentMeta describes a rendered document.
type DocumentMeta struct {
	Title       string `json:"title"`
	SourceURL   string `json:"source_url"`
	GeneratedAt string `json:"generated_at"` // ISO8601
}

// Document is the renderer input: Markdown is the canonical body, Data the
// structured value it was built from.
type Document struct {
	Meta     DocumentMeta
	Markdown string
	Data     any
}

// Fetcher retrieves a raw document from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Normalizer converts an HTML fragment into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer converts a Document into a final output format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
