// Package cmd implements the bookstack CLI using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/internal/config"
	"github.com/shiggsy365/bookstack/internal/logger"
)

var (
	flagConfig string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookstack",
	Short: "Browse an OPDS library, plan series reading and send books to a Kindle",
	Long: `bookstack fronts a Booklore OPDS catalog, the Ephemera release search and
bookseriesinorder.com reading lists.

Usage:
  bookstack serve
  bookstack series <author-url> --markdown --check`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		return logger.Setup(cfg.Log.Level, cfg.Log.JSON)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (default: $"+config.PathEnv+")")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
