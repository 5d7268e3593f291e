package main

import (
	"context"

	"github.com/HaoWang-SSCA/migrate/internal/formatter"
	"github.com/HaoWang-SSCA/migrate/internal/progress"
	"github.com/urfave/cli/v3"
)

// Status prints the current ledger state. It reads only the progress
// file; no database or storage connection is made.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	settings := config.Settings()
	settings.DryRun = cmd.Bool("dry-run")

	ledger := progress.Load(progressPath(settings), settings.DryRun, r.logger)

	r.writePlainHeader("Migration Status")
	r.writePlain("%s", formatter.StatusText(ledger.Run()))
	return nil
}
