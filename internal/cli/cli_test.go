package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"backuprestore/internal/imagebuild"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(testLogger(), nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImageDryRunNeedsNoDocker(t *testing.T) {
	t.Setenv("REGISTRY", "registry.example.com")
	t.Setenv("IMAGE_NAME", "backup_restore")
	t.Setenv("IMAGE_TAG", "latest")

	for _, sub := range []string{"build", "tag", "push", "run", "clean", "release"} {
		if _, err := runCommand(t, "image", sub, "--dry-run"); err != nil {
			t.Errorf("image %s --dry-run: %v", sub, err)
		}
	}
}

func TestImageEmptyRegistryFails(t *testing.T) {
	t.Setenv("REGISTRY", "")

	_, err := runCommand(t, "image", "tag", "--dry-run")
	var cfgErr *imagebuild.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want ConfigError", err)
	}
}

func TestSnapshotListEmptyStore(t *testing.T) {
	cfgDir := t.TempDir()
	archiveDir := t.TempDir()
	cfg := `{"type": "local", "local": {"base_dir": ` + quoteJSON(archiveDir) + `}}`
	if err := os.WriteFile(filepath.Join(cfgDir, "archive.json"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_DIR", cfgDir)

	out, err := runCommand(t, "snapshot", "list")
	if err != nil {
		t.Fatalf("snapshot list: %v", err)
	}
	if !strings.Contains(out, "SNAPSHOT ID") {
		t.Fatalf("missing header in output %q", out)
	}
}

func TestBadLogLevelRejected(t *testing.T) {
	_, err := runCommand(t, "--log-level", "verbose", "snapshot", "list")
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Fatalf("got %v, want log level error", err)
	}
}

func TestBackupOptionsSubset(t *testing.T) {
	opts := backupOptions("nightly", true, []string{"keycloak"})
	if opts.Description != "nightly" || !opts.Tar {
		t.Fatalf("unexpected options %+v", opts)
	}
	if len(opts.Services) != 1 || opts.Services[0] != "keycloak" {
		t.Fatalf("unexpected services %v", opts.Services)
	}
	if got := backupOptions("", false, nil); got.Services != nil {
		t.Fatalf("empty args should mean all services, got %v", got.Services)
	}
}

func quoteJSON(s string) string {
	return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
}
