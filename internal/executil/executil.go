// Package executil runs external commands for the image build driver.
//
// Everything the driver does ends up as a docker invocation, so the runner
// is an interface: the real implementation inherits stdio, the dry-run one
// only logs, and tests substitute a recording fake.
package executil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"backuprestore/internal/logging"
)

// Runner executes a single external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Exec runs commands with inherited stdout/stderr so interactive sessions
// (docker run -it) and build progress work unchanged.
type Exec struct {
	Logger *slog.Logger
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	full := name + " " + Quote(args)
	logging.Ensure(e.Logger).Info("running command", "cmd", full)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				return fmt.Errorf("command failed (exit=%d): %s: %w", status.ExitStatus(), full, err)
			}
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("command canceled: %s", full)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("command timed out: %s", full)
		}
		return fmt.Errorf("failed to run command: %s: %w", full, err)
	}
	return nil
}

// DryRun logs the command that would run without executing it.
type DryRun struct {
	Logger *slog.Logger
}

func (d *DryRun) Run(_ context.Context, name string, args ...string) error {
	logging.Ensure(d.Logger).Info("dry run", "cmd", name+" "+Quote(args))
	return nil
}

// Quote returns a printable, shell-safe representation of args.
func Quote(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
