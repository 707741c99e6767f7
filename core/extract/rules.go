package extract

import (
	"regexp"
	"strings"
)

// SkipHeaders are section headings that never name a series. A heading
// containing one of them closes the current series.
var SkipHeaders = []string{
	"about the author", "author bio", "biography", "share this", "related", "tags",
	"leave a reply", "responses to", "comments", "chronological order", "similar authors",
	"also read", "recommended", "you may also like",
}

// SkipPathFragments mark reference site paths that are not author pages.
var SkipPathFragments = []string{
	"/characters/", "/authors/", "/book-release-calendar/",
	"/about/", "/contact/", "/privacy-policy/", "/tag/", "/category/",
	"/page/",
}

// JunkLinkPhrases mark promotional link texts.
var JunkLinkPhrases = []string{
	"book notification", "click here", "check out this great series",
	"privacy policy", "cookie policy", "terms of service",
	"click", "notification",
}

// ReadingOrderPhrases mark instructional paragraphs between book lines.
var ReadingOrderPhrases = []string{
	"then read", "read in", "in order", "order to read",
}

// CommentMarkers mark list items that are comment metadata, not books.
var CommentMarkers = []string{
	"months ago", "weeks ago", "days ago", "year ago", "years ago",
}

// HeaderKeywords are table header cells.
var HeaderKeywords = map[string]bool{
	"title": true,
	"book":  true,
	"year":  true,
	"date":  true,
}

// RetailerDomains identify purchase links.
var RetailerDomains = []string{"amazon.com", "amzn.to"}

const (
	maxParagraphBook  = 200
	minListItemBook   = 10
	maxDescriptionLen = 200
)

var (
	numberedRun   = regexp.MustCompile(`\d+:.*\d+:.*\d+:`)
	digitOrParen  = regexp.MustCompile(`[\d()]`)
	authorSuffix  = regexp.MustCompile(`(?i)\s*[-–:|]?\s*(book series in order|books in order|series in order|book series|in order)\s*$`)
	tagOrCategory = []string{"/tag/", "/category/"}
)

// containsAny reports whether the lower-cased s contains any of phrases.
func containsAny(s string, phrases []string) bool {
	lower := strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isRetailer(href string) bool {
	for _, d := range RetailerDomains {
		if strings.Contains(href, d) {
			return true
		}
	}
	return false
}

// CleanAuthorName strips trailing boilerplate like "Book Series in Order".
func CleanAuthorName(name string) string {
	return strings.TrimSpace(authorSuffix.ReplaceAllString(name, ""))
}
