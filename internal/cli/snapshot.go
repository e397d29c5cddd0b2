package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSnapshotCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect stored snapshots",
	}
	cmd.AddCommand(newSnapshotListCommand(logger), newSnapshotShowCommand(logger))
	return cmd
}

func newSnapshotListCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			snapshots, err := app.restore.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SNAPSHOT ID\tCREATED\tSERVICES\tDESCRIPTION")
			for _, meta := range snapshots {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					meta.SnapshotID, humanize.Time(meta.CreatedAt), len(meta.Services), meta.Description)
			}
			return w.Flush()
		},
	}
}

func newSnapshotShowCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Print a snapshot's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			meta, err := app.restore.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			return writeOut(cmd, out)
		},
	}
}
