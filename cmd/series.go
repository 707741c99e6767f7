package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/output"
	"github.com/shiggsy365/bookstack/core/render"
	"github.com/shiggsy365/bookstack/service"
)

var (
	seriesFormat formatFlags
	flagCheck    bool
)

var seriesCmd = &cobra.Command{
	Use:   "series <author-url>",
	Short: "Build an author's reading list",
	Long: `Series extracts an author's series and books in reading order. With --check
every title is looked up in the catalog and marked as owned or missing.

Examples:
  bookstack series https://www.bookseriesinorder.com/lee-child/
  bookstack series https://www.bookseriesinorder.com/lee-child/ --check --pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runSeries,
}

func init() {
	seriesFormat.register(seriesCmd)
	seriesCmd.Flags().BoolVar(&flagCheck, "check", false, "Mark which books are already in the catalog")
	rootCmd.AddCommand(seriesCmd)
}

func runSeries(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	if err := seriesFormat.validate(); err != nil {
		return err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", rawURL)
	}

	lib := service.New(cfg)
	page, err := lib.AuthorSeries(cmd.Context(), rawURL)
	if err != nil {
		return err
	}

	var checks map[string]core.MatchResult
	if flagCheck {
		checks = lib.CheckLibrary(cmd.Context(), titles(page), page.Author)
	}

	doc := render.ReadingList(page, rawURL, checks)
	return seriesFormat.emit(cmd, doc, output.AuthorFilename(rawURL))
}

func titles(page core.AuthorPage) []string {
	var out []string
	for _, s := range page.Series {
		for _, b := range s.Books {
			out = append(out, b.Title)
		}
	}
	return out
}
