package imagebuild

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"backuprestore/internal/executil"
	"backuprestore/internal/logging"
)

var refAllowed = regexp.MustCompile(`^[a-z0-9][a-z0-9_./:-]{0,255}$`)

// Driver sequences docker invocations for the image lifecycle. It performs
// no retries and no rollback: a failed push after a successful build/tag
// leaves both images in place.
type Driver struct {
	Config Config
	Runner executil.Runner
	Logger *slog.Logger

	// SkipFSChecks disables local Dockerfile/context stat checks, used by
	// dry runs and tests.
	SkipFSChecks bool
}

// Build runs docker build with the resolved Dockerfile and the local tag.
// Docker failures propagate verbatim; they are not interpreted or retried.
func (d *Driver) Build(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	ref := d.Config.LocalRef()
	if !validRef(ref) {
		return fmt.Errorf("invalid image ref %q (must be lowercase, no spaces)", ref)
	}

	df := d.Config.Dockerfile
	if !d.SkipFSChecks {
		if st, err := os.Stat(df); err != nil || st.IsDir() {
			return fmt.Errorf("dockerfile %q not found or not a file", df)
		}
	}

	args := []string{
		"build",
		"-t", ref,
		"-f", df,
		"--build-arg", "user_no=" + d.Config.UserNo,
		".",
	}
	d.logger().Info("building image", "ref", ref, "dockerfile", df)
	return d.Runner.Run(ctx, "docker", args...)
}

// Tag maps the local tag onto the fully-qualified registry reference. It
// assumes Build already produced the local image; docker reports the error
// if it did not.
func (d *Driver) Tag(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	local, full := d.Config.LocalRef(), d.Config.FullRef()
	d.logger().Info("tagging image", "local", local, "full", full)
	return d.Runner.Run(ctx, "docker", "tag", local, full)
}

// Push pushes the fully-qualified reference. Auth and network failures
// surface as the docker exit status.
func (d *Driver) Push(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	full := d.Config.FullRef()
	d.logger().Info("pushing image", "ref", full)
	return d.Runner.Run(ctx, "docker", "push", full)
}

// Run starts an interactive, auto-removing container from the local tag.
// The session's exit code is the command's exit code.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	return d.Runner.Run(ctx, "docker", "run", "--rm", "-it", d.Config.LocalRef())
}

// Clean removes both the local and the fully-qualified tags. Removal
// failures are suppressed so cleaning an already-clean state succeeds.
func (d *Driver) Clean(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	for _, ref := range []string{d.Config.LocalRef(), d.Config.FullRef()} {
		if err := d.Runner.Run(ctx, "docker", "rmi", ref); err != nil {
			d.logger().Debug("ignoring rmi failure", "ref", ref, "error", err)
		}
	}
	return nil
}

// Release is the default flow: build, tag, push, in that order, stopping at
// the first failure.
func (d *Driver) Release(ctx context.Context) error {
	if err := d.Build(ctx); err != nil {
		return err
	}
	if err := d.Tag(ctx); err != nil {
		return err
	}
	return d.Push(ctx)
}

func (d *Driver) logger() *slog.Logger {
	return logging.Ensure(d.Logger)
}

func validRef(ref string) bool {
	if strings.ToLower(ref) != ref || strings.ContainsAny(ref, " \t\n") {
		return false
	}
	return refAllowed.MatchString(ref)
}
