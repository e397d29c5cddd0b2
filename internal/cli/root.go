// Package cli assembles the cobra command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"backuprestore/internal/backup"
	"backuprestore/internal/config"
	"backuprestore/internal/logging"
	"backuprestore/internal/restore"
	"backuprestore/internal/service"
	"backuprestore/internal/service/keycloak"
	"backuprestore/internal/storage"
)

const defaultLogLevel = "info"

// NewRoot builds the root command. levelVar is adjusted by the
// --log-level persistent flag before any subcommand runs.
func NewRoot(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	logLevel := defaultLogLevel

	root := &cobra.Command{
		Use:           "backup-restore",
		Short:         "Backup and restore service state (Keycloak) to local or S3 storage",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		return nil
	}

	root.AddCommand(
		newBackupCommand(logger),
		newRestoreCommand(logger),
		newSnapshotCommand(logger),
		newServeCommand(logger),
		newImageCommand(logger),
	)
	return root
}

// app bundles the wired managers for the backup/restore commands.
type app struct {
	services map[string]service.Service
	backup   *backup.Manager
	restore  *restore.Manager
}

// newApp loads configuration, instantiates the registered services and the
// archive storage backend, and wires the managers.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	store, err := config.Load(config.Dir(), logger)
	if err != nil {
		return nil, err
	}

	registry := service.NewRegistry()
	registry.Register(keycloak.Name, keycloak.New)
	services := registry.Load(store, logger)

	archiveCfg, err := storage.ParseConfig(store.Service("archive"))
	if err != nil {
		return nil, err
	}
	client, err := storage.New(ctx, archiveCfg)
	if err != nil {
		return nil, err
	}

	return &app{
		services: services,
		backup:   &backup.Manager{Services: services, Store: client, Logger: logger},
		restore:  &restore.Manager{Services: services, Store: client, Logger: logger},
	}, nil
}

func writeOut(cmd *cobra.Command, data []byte) error {
	if _, err := cmd.OutOrStdout().Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func readIn(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return readAll(cmd)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func readAll(cmd *cobra.Command) ([]byte, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}
