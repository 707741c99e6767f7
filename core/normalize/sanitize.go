package normalize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// descriptionPolicy allows the formatting markup catalogs put in summaries
// (paragraphs, emphasis, lists, links) and drops scripts, styles and handlers.
var descriptionPolicy = bluemonday.UGCPolicy()

// SafeHTML sanitizes a raw HTML description so it can be embedded in a page.
func SafeHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return strings.TrimSpace(descriptionPolicy.Sanitize(raw))
}
