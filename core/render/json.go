// JSON rendering of documents.
// Emits the document's structured data together with its metadata and the
// heading outline of its Markdown body.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shiggsy365/bookstack/core"
)

// JSONRenderer produces structured JSON output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Heading is one Markdown heading of the rendered document.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type jsonDocument struct {
	Metadata core.DocumentMeta `json:"metadata"`
	Data     any               `json:"data"`
	Outline  []Heading         `json:"outline"`
}

// Render marshals the document data and metadata.
func (r *JSONRenderer) Render(doc core.Document) ([]byte, error) {
	out := jsonDocument{
		Metadata: doc.Meta,
		Data:     doc.Data,
		Outline:  extractHeadings(doc.Markdown),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

func extractHeadings(md string) []Heading {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}
