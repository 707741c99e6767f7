package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/service"
)

var authorsCmd = &cobra.Command{
	Use:   "authors <query>",
	Short: "Search the reading-order site for authors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hits, err := service.New(cfg).SearchAuthors(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no authors found")
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Name, h.URL)
			if h.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\t%s\n", h.Description)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorsCmd)
}
