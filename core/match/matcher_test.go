package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiggsy365/bookstack/core"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		entry string
		want  int
	}{
		{"exact", "Dune", "Dune", 100},
		{"case and spacing", "  the   HOBBIT ", "The Hobbit", 100},
		{"parenthesized spans ignored", "Dune (Dune Chronicles, #1)", "Dune", 100},
		{"composed and decomposed", "Caf\u00e9", "Cafe\u0301", 100},
		{"subset", "The Visitor", "Running Blind / The Visitor", 85},
		{"superset", "Running Blind / The Visitor", "The Visitor", 85},
		{"punctuation trimmed", "Dune: Messiah!", "Dune Messiah", 85},
		{"filler words", "The Hobbit", "Hobbit, An", 80},
		{"partial overlap", "The Way of Kings", "The Way of Shadows", 75},
		{"ratio floors", "Dune Messiah", "Children of Dune", 33},
		{"no shared words", "Foundation", "Dune", 0},
		{"empty query", "", "Dune", 0},
		{"only parentheses", "(2001)", "(2001)", 100},
		{"parenthesized span removed in place", "Dune(2001)x", "Dunex", 100},
		{"parenthesized span between words", "Dune (2001) Messiah", "Dune Messiah", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.query, tt.entry))
		})
	}
}

func entry(title string, links ...core.Link) core.FeedEntry {
	return core.FeedEntry{Title: title, Links: links}
}

func TestCheckLibrary(t *testing.T) {
	catalog := []core.FeedEntry{
		entry("Dune",
			core.Link{Href: "https://x.test/cover.jpg", Rel: "http://opds-spec.org/image"},
			core.Link{Href: "https://x.test/dl/1", Rel: "http://opds-spec.org/acquisition"},
			core.Link{Href: "https://x.test/dl/1b", Rel: "http://opds-spec.org/acquisition/open-access"},
		),
		entry("Running Blind / The Visitor"),
		entry("The Way of Shadows"),
	}

	results := CheckLibrary([]string{"Dune", "The Visitor", "Foundation", "The Way of Kings", "Red Rising"}, catalog)
	require.Len(t, results, 5)

	assert.Equal(t, core.MatchResult{
		QueryTitle:   "Dune",
		InLibrary:    true,
		Score:        100,
		MatchedTitle: "Dune",
		DownloadURL:  "https://x.test/dl/1",
	}, results["Dune"])

	visitor := results["The Visitor"]
	assert.True(t, visitor.InLibrary)
	assert.Equal(t, 85, visitor.Score)
	assert.Equal(t, "Running Blind / The Visitor", visitor.MatchedTitle)
	assert.Empty(t, visitor.DownloadURL)

	assert.Equal(t, core.MatchResult{QueryTitle: "Foundation"}, results["Foundation"])
	assert.Equal(t, 75, results["The Way of Kings"].Score)
	assert.False(t, results["Red Rising"].InLibrary)
}

func TestBestKeepsFirstOnTie(t *testing.T) {
	catalog := []core.FeedEntry{
		entry("Dune (Hardcover)", core.Link{Href: "first", Rel: "http://opds-spec.org/acquisition"}),
		entry("Dune", core.Link{Href: "second", Rel: "http://opds-spec.org/acquisition"}),
	}
	got := Best("Dune", catalog)
	assert.Equal(t, "Dune (Hardcover)", got.MatchedTitle)
	assert.Equal(t, "first", got.DownloadURL)
}

func TestBestBelowThreshold(t *testing.T) {
	// 2 of 3 words: 66.
	got := Best("Red Rising Saga", []core.FeedEntry{entry("Red Rising Trilogy")})
	assert.False(t, got.InLibrary)
	assert.Zero(t, got.Score)
	assert.Empty(t, got.MatchedTitle)
}

func TestCheckLibraryEmptyCatalog(t *testing.T) {
	results := CheckLibrary([]string{"Dune", "Emma"}, nil)
	require.Len(t, results, 2)
	for title, r := range results {
		assert.False(t, r.InLibrary, title)
	}
}
