package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Links patches migrated meetings with privacy-enhanced embed URLs
// built from the legacy video links. Safe to re-run; patching the same
// URL twice is harmless.
func (r *Runner) Links(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	settings := config.Settings()
	settings.DryRun = cmd.Bool("dry-run")

	pipe, err := r.buildPipeline(config, settings)
	if err != nil {
		return err
	}
	defer pipe.close()

	result, err := pipe.engine.LinkVideos(ctx, r.logProgress())
	if err != nil {
		return err
	}

	r.writePlain("Video links updated: %d, skipped: %d, failed: %d\n", result.Updated, result.Skipped, result.Failed)
	return nil
}
