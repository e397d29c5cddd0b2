package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"backuprestore/internal/cli"
	"backuprestore/internal/logging"
)

func main() {
	// Missing .env is fine; the environment wins over it either way.
	_ = godotenv.Load()

	mode := logging.ModeCLI
	if os.Getenv("LOG_FORMAT") == "json" {
		mode = logging.ModeJSON
	}
	levelVar := new(slog.LevelVar)
	logger := logging.New(mode, os.Stderr, levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRoot(logger, levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
