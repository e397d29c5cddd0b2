package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"backuprestore/internal/backup"
)

func backupOptions(description string, tar bool, args []string) backup.Options {
	opts := backup.Options{Description: description, Tar: tar}
	if len(args) == 1 {
		opts.Services = []string{args[0]}
	}
	return opts
}

// newBackupCommand handles both full snapshots and single-object exports:
//
//	backup                     snapshot every configured service
//	backup keycloak            snapshot only the keycloak service
//	backup keycloak clients    print the clients export to stdout
func newBackupCommand(logger *slog.Logger) *cobra.Command {
	var (
		description string
		tar         bool
	)

	cmd := &cobra.Command{
		Use:   "backup [service] [object]",
		Short: "Create a snapshot, or export a single object to stdout",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				data, err := app.backup.ExportObject(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return writeOut(cmd, data)
			}

			opts := backupOptions(description, tar, args)
			meta, err := app.backup.Backup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			logger.Info("snapshot created", "snapshot_id", meta.SnapshotID)
			out, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			return writeOut(cmd, out)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Free-form description stored in the snapshot metadata")
	cmd.Flags().BoolVar(&tar, "tar", false, "Archive each service's export as a single tar.gz object")
	return cmd
}
