// Package match decides whether externally named books already exist in
// the catalog, using a banded fuzzy title score.
package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/normalize"
)

// Score bands.
const (
	ScoreExact  = 100
	ScoreSubset = 85
	ScoreFiller = 80

	// Threshold is the minimum score for a title to count as in the library.
	Threshold = 70
)

// FillerWords are ignored by the filler band.
var FillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
}

const tokenCutset = ",.;:!?/ "

var parenthesized = regexp.MustCompile(`\([^)]*\)`)

// CheckLibrary matches every title against the catalog entries. Each
// result keeps the best scoring entry at or above Threshold; ties keep
// the earlier entry.
func CheckLibrary(titles []string, entries []core.FeedEntry) map[string]core.MatchResult {
	results := make(map[string]core.MatchResult, len(titles))
	for _, title := range titles {
		results[title] = Best(title, entries)
	}
	return results
}

// Best returns the match result for a single title.
func Best(title string, entries []core.FeedEntry) core.MatchResult {
	query := normalizeTitle(title)

	best := -1
	bestScore := 0
	for i, e := range entries {
		s := score(query, normalizeTitle(e.Title))
		if s > bestScore {
			best, bestScore = i, s
		}
	}

	if best < 0 || bestScore < Threshold {
		return core.MatchResult{QueryTitle: title}
	}
	return core.MatchResult{
		QueryTitle:   title,
		InLibrary:    true,
		Score:        bestScore,
		MatchedTitle: entries[best].Title,
		DownloadURL:  AcquisitionURL(entries[best]),
	}
}

// Score compares two raw titles.
func Score(query, entry string) int {
	return score(normalizeTitle(query), normalizeTitle(entry))
}

// AcquisitionURL returns the first link whose rel mentions acquisition.
func AcquisitionURL(e core.FeedEntry) string {
	for _, l := range e.Links {
		if strings.Contains(l.Rel, "acquisition") {
			return l.Href
		}
	}
	return ""
}

func score(a, b string) int {
	if a == b {
		return ScoreExact
	}

	wa, wb := tokens(a), tokens(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	common := intersect(wa, wb)
	if common == min(len(wa), len(wb)) {
		return ScoreSubset
	}

	fa, fb := withoutFiller(wa), withoutFiller(wb)
	if fc := intersect(fa, fb); fc >= 1 && fc == min(len(fa), len(fb)) {
		return ScoreFiller
	}

	if common == 0 {
		return 0
	}
	return 100 * common / max(len(wa), len(wb))
}

// normalizeTitle composes the title, drops parenthesized spans and
// lower-cases it.
func normalizeTitle(s string) string {
	s = norm.NFC.String(s)
	s = parenthesized.ReplaceAllString(s, "")
	return strings.ToLower(normalize.Collapse(s))
}

func tokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		if t := strings.Trim(f, tokenCutset); t != "" {
			set[t] = true
		}
	}
	return set
}

func withoutFiller(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for w := range set {
		if !FillerWords[w] {
			out[w] = true
		}
	}
	return out
}

func intersect(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
