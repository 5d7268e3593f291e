package main

import (
	"context"
	"fmt"

	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/source"
	"github.com/HaoWang-SSCA/migrate/internal/speakers"
	"github.com/HaoWang-SSCA/migrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpeakersAnalyze reads every speaker value from the source and prints
// name frequencies plus likely duplicate pairs. Useful for building the
// mappings file before a run.
func (r *Runner) SpeakersAnalyze(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Source.Driver, config.Source.DSN)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}
	defer db.Close()

	reader := source.NewReader(db, r.logger)

	sunday, special, err := reader.Counts(ctx)
	if err != nil {
		return err
	}

	raw, err := reader.Speakers(ctx)
	if err != nil {
		return err
	}

	report := speakers.Analyze(raw)

	r.writePlainHeader("Speaker Analysis")
	r.writePlain("Scanned %d sunday and %d special messages\n\n", sunday, special)

	for _, name := range report.Names {
		r.writePlain("%4d  %s\n", name.Count, name.Name)
	}

	if len(report.Duplicates) > 0 {
		r.writePlain("\nLikely duplicates:\n")
		for _, pair := range report.Duplicates {
			r.writePlain("  %q / %q\n", pair.A, pair.B)
		}
	}

	return nil
}

// SpeakersApply rewrites migrated meetings whose speaker has a canonical
// form in the mappings file.
func (r *Runner) SpeakersApply(ctx context.Context, cmd *cli.Command) error {
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

	result, err := pipe.engine.NormalizeSpeakers(ctx, r.logProgress())
	if err != nil {
		return err
	}

	r.writePlain("Speakers updated: %d, skipped: %d, failed: %d\n", result.Updated, result.Skipped, result.Failed)
	return nil
}

// logProgress returns a channel whose updates are drained to the logger.
func (r *Runner) logProgress() chan<- tasks.ProgressUpdate {
	ch := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range ch {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()
	return ch
}
