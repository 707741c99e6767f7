// Package opds parses Atom/OPDS catalog feeds into normalized entries.
//
// Series metadata comes in two competing conventions: EPUB-style collection
// metas (belongs-to-collection + group-position refining it) and a
// schema.org Series element. Collection metas win when both are present.
package opds

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/normalize"
)

const (
	// UnknownTitle replaces a missing or empty entry title.
	UnknownTitle = "Unknown Title"

	propCollection    = "belongs-to-collection"
	propGroupPosition = "group-position"
)

// ErrMalformedFeed is returned when the feed bytes are not well-formed XML.
var ErrMalformedFeed = errors.New("malformed feed")

// ContainerTitles are navigation containers that are not catalog items.
// They are matched against the title text exactly as it appears in the
// feed, and that text is what the entry carries.
var ContainerTitles = map[string]bool{
	"Libraries":     true,
	"Shelves":       true,
	"Magic Shelves": true,
}

type feedXML struct {
	Entries []entryXML `xml:"http://www.w3.org/2005/Atom entry"`
}

type entryXML struct {
	Title   *textXML    `xml:"http://www.w3.org/2005/Atom title"`
	ID      *textXML    `xml:"http://www.w3.org/2005/Atom id"`
	Summary *textXML    `xml:"http://www.w3.org/2005/Atom summary"`
	Content *textXML    `xml:"http://www.w3.org/2005/Atom content"`
	Metas   []metaXML   `xml:"http://www.w3.org/2005/Atom meta"`
	Series  []seriesXML `xml:"http://schema.org/ Series"`
	Authors []authorXML `xml:"http://www.w3.org/2005/Atom author"`
	Links   []linkXML   `xml:"http://www.w3.org/2005/Atom link"`
}

type textXML struct {
	Text string `xml:",chardata"`
}

type metaXML struct {
	Property string `xml:"property,attr"`
	ID       string `xml:"id,attr"`
	Refines  string `xml:"refines,attr"`
	Text     string `xml:",chardata"`
}

type seriesXML struct {
	Name     string `xml:"name,attr"`
	Position string `xml:"position,attr"`
}

type authorXML struct {
	Name *textXML `xml:"http://www.w3.org/2005/Atom name"`
}

type linkXML struct {
	Href string  `xml:"href,attr"`
	Rel  string  `xml:"rel,attr"`
	Type *string `xml:"type,attr"`
}

// Parse converts raw feed XML into entries in document order. Relative link
// targets are resolved against baseURL.
func Parse(data []byte, baseURL string) ([]core.FeedEntry, error) {
	feed, err := decode(data)
	if err != nil {
		return nil, err
	}

	entries := make([]core.FeedEntry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		var rawTitle string
		if e.Title != nil {
			rawTitle = e.Title.Text
		}
		if ContainerTitles[rawTitle] {
			continue
		}
		title := rawTitle
		if strings.TrimSpace(title) == "" {
			title = UnknownTitle
		}

		entry := core.FeedEntry{
			Title:  title,
			ID:     textOf(e.ID),
			Author: firstAuthor(e.Authors),
			Links:  make([]core.Link, 0, len(e.Links)),
		}

		raw := rawDescription(e)
		entry.Description = normalize.Text(raw)
		entry.DescriptionHTML = normalize.SafeHTML(raw)
		entry.SeriesName, entry.SeriesIndex = resolveSeries(e)

		for _, l := range e.Links {
			link := core.Link{
				Href: ResolveHref(l.Href, l.Rel, baseURL),
				Rel:  l.Rel,
			}
			if l.Type != nil {
				link.Type = *l.Type
			}
			entry.Links = append(entry.Links, link)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// Kind reports "acquisition" when any entry links to a downloadable
// resource, otherwise "navigation".
func Kind(entries []core.FeedEntry) string {
	for _, e := range entries {
		for _, l := range e.Links {
			if strings.Contains(l.Rel, "acquisition") {
				return "acquisition"
			}
		}
	}
	return "navigation"
}

// decode unmarshals the root element and rejects anything but whitespace,
// comments and processing instructions after it.
func decode(data []byte) (*feedXML, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var feed feedXML
	if err := dec.Decode(&feed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedFeed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("%w: junk after document element <%s>", ErrMalformedFeed, t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text after document element", ErrMalformedFeed)
			}
		}
	}
	return &feed, nil
}

func textOf(t *textXML) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(t.Text)
}

func rawDescription(e entryXML) string {
	switch {
	case e.Summary != nil:
		return e.Summary.Text
	case e.Content != nil:
		return e.Content.Text
	default:
		return ""
	}
}

func firstAuthor(authors []authorXML) string {
	for _, a := range authors {
		if name := textOf(a.Name); name != "" {
			return name
		}
	}
	return ""
}

// resolveSeries picks the first named collection and the group-position
// that refines that collection's id. A position refining any other
// collection is ignored. The schema.org element is only consulted when no
// collection name was found.
func resolveSeries(e entryXML) (name, index string) {
	var collectionID string
	for _, m := range e.Metas {
		if m.Property == propCollection && strings.TrimSpace(m.Text) != "" {
			name = strings.TrimSpace(m.Text)
			collectionID = m.ID
			break
		}
	}

	if name != "" {
		if collectionID == "" {
			return name, ""
		}
		for _, m := range e.Metas {
			if m.Property == propGroupPosition && m.Refines == "#"+collectionID {
				return name, strings.TrimSpace(m.Text)
			}
		}
		return name, ""
	}

	if len(e.Series) > 0 {
		s := e.Series[0]
		if n := strings.TrimSpace(s.Name); n != "" {
			return n, strings.TrimSpace(s.Position)
		}
	}
	return "", ""
}
