package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/service"
)

var flagAuthor string

var checkCmd = &cobra.Command{
	Use:   "check --author <name> <title>...",
	Short: "Check whether titles are in the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagAuthor == "" {
			return errors.New("--author is required")
		}
		results := service.New(cfg).CheckLibrary(cmd.Context(), args, flagAuthor)
		for _, title := range args {
			r, ok := results[title]
			switch {
			case !ok:
				fmt.Fprintf(cmd.OutOrStdout(), "?   %s (catalog unavailable)\n", title)
			case r.InLibrary:
				fmt.Fprintf(cmd.OutOrStdout(), "✓   %s -> %s (%d)\n", title, r.MatchedTitle, r.Score)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "✗   %s\n", title)
			}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagAuthor, "author", "", "Author to search the catalog for")
	rootCmd.AddCommand(checkCmd)
}
