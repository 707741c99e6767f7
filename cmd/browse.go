package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/core/normalize"
	"github.com/shiggsy365/bookstack/core/output"
	"github.com/shiggsy365/bookstack/core/render"
	"github.com/shiggsy365/bookstack/service"
)

var browseFormat formatFlags

var browseCmd = &cobra.Command{
	Use:   "browse [url]",
	Short: "List one catalog page",
	Long: `Browse fetches a catalog page (the catalog root when no URL is given) and
prints its entries. Relative paths are resolved against the catalog URL.

Examples:
  bookstack browse
  bookstack browse /api/v1/opds/recent --json --output_dir ./out`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browseFormat.validate(); err != nil {
			return err
		}
		var target string
		if len(args) == 1 {
			target = args[0]
		}

		page, fetched, err := service.New(cfg).Browse(cmd.Context(), target)
		if err != nil {
			return err
		}
		doc := render.CatalogPage(*page, fetched, normalize.New())
		return browseFormat.emit(cmd, doc, output.FlatFilename(fetched))
	},
}

func init() {
	browseFormat.register(browseCmd)
	rootCmd.AddCommand(browseCmd)
}
