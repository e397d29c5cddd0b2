package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"backuprestore/internal/executil"
	"backuprestore/internal/imagebuild"
)

// newImageCommand exposes the docker image lifecycle. Configuration comes
// from the environment (IMAGE_NAME, IMAGE_TAG, REGISTRY, DOCKERFILE,
// USER_NO), with ENV_-prefixed variables taking precedence.
func newImageCommand(logger *slog.Logger) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "image",
		Short: "Build, tag, push and clean the container image",
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Log the docker commands without running them")

	driver := func() *imagebuild.Driver {
		d := &imagebuild.Driver{
			Config: imagebuild.FromEnv(),
			Runner: &executil.Exec{Logger: logger},
			Logger: logger,
		}
		if dryRun {
			d.Runner = &executil.DryRun{Logger: logger}
			d.SkipFSChecks = true
		}
		return d
	}

	sub := func(use, short string, run func(*imagebuild.Driver, context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(driver(), cmd.Context())
			},
		}
	}

	cmd.AddCommand(
		sub("build", "Build the image from the Dockerfile", (*imagebuild.Driver).Build),
		sub("tag", "Tag the local image with the registry ref", (*imagebuild.Driver).Tag),
		sub("push", "Push the registry ref", (*imagebuild.Driver).Push),
		sub("run", "Run the image interactively", (*imagebuild.Driver).Run),
		sub("clean", "Remove local and registry-tagged images", (*imagebuild.Driver).Clean),
		sub("release", "Build, tag and push in one step", (*imagebuild.Driver).Release),
	)
	return cmd
}
