package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newRestoreCommand handles snapshot replay and single-object imports:
//
//	restore <snapshot-id>                       replay a full snapshot
//	restore <service> <object> [file]           import one object from a
//	                                            file, or stdin when the
//	                                            file is omitted or "-"
func newRestoreCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot-id> | <service> <object> [file]",
		Short: "Restore a snapshot, or import a single object",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := app.restore.Restore(cmd.Context(), args[0]); err != nil {
					return err
				}
				logger.Info("snapshot restored", "snapshot_id", args[0])
				return nil
			}

			path := ""
			if len(args) == 3 {
				path = args[2]
			}
			data, err := readIn(cmd, path)
			if err != nil {
				return err
			}
			if err := app.restore.ImportObject(cmd.Context(), args[0], args[1], data); err != nil {
				return err
			}
			logger.Info("import completed", "service", args[0], "object", args[1])
			return nil
		},
	}
}
