package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"backuprestore/internal/server"
)

func newServeCommand(logger *slog.Logger) *cobra.Command {
	addr := server.DefaultAddr

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			srv := &server.Server{
				Backup:  app.backup,
				Restore: app.restore,
				Logger:  logger,
			}
			return srv.Serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address")
	return cmd
}
