package normalize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRegex     = regexp.MustCompile(`<[^>]+>`)
	bracketStrip = strings.NewReplacer("<", "", ">", "")
)

// Text unescapes HTML entities, strips tag markup and collapses whitespace.
// Tags are removed in a single pass from each '<' to the next '>', without
// regard to nesting or attribute quoting; unmatched brackets are dropped.
// The result is a fixed point: Text(Text(s)) == Text(s).
//
// Passes repeat until one leaves the string unchanged. A pass that changes
// it has stripped markup or decoded entity text, neither of which it can
// put back, so the loop ends.
func Text(raw string) string {
	s := raw
	for {
		next := textPass(s)
		if next == s {
			return next
		}
		s = next
	}
}

func textPass(s string) string {
	if s == "" {
		return ""
	}
	s = unescapeAll(s)
	s = tagRegex.ReplaceAllString(s, "")
	s = bracketStrip.Replace(s)
	return Collapse(s)
}

// unescapeAll decodes entities until none are left, so double-escaped
// markup ("&amp;lt;b&amp;gt;") is treated like the markup it encodes.
func unescapeAll(s string) string {
	for strings.Contains(s, "&") {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// Collapse folds whitespace runs (including non-breaking spaces) into single
// spaces and trims the result. Unlike Text it leaves markup and entities alone.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
