package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/server"
	"github.com/shiggsy365/bookstack/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(cfg.Server.ListenAddr, service.New(cfg)).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
