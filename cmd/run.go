package main

import (
	"context"
	"fmt"

	"github.com/HaoWang-SSCA/migrate/internal/formatter"
	"github.com/HaoWang-SSCA/migrate/internal/tasks"
	"github.com/HaoWang-SSCA/migrate/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// Run executes the full migration pipeline.
//
// A run that finishes with failed records still exits zero; the ledger
// and the failure report carry the details, and re-running retries them.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	settings := config.Settings()
	if cmd.Bool("dry-run") {
		settings.DryRun = true
	}
	if v := cmd.Int("batch-size"); v > 0 {
		settings.BatchSize = v
	}
	if v := cmd.Int("max-retries"); v > 0 {
		settings.MaxRetries = v
	}

	pipe, err := r.buildPipeline(config, settings)
	if err != nil {
		return err
	}
	defer pipe.close()

	if cmd.Bool("tui") {
		model := ui.NewModel(ctx, pipe.engine, config, settings.DryRun)
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	}

	if settings.DryRun {
		r.logger.Info("starting migration (dry run)")
	} else {
		r.logger.Info("starting migration")
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		for update := range progressCh {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
		close(done)
	}()

	result, runErr := pipe.engine.Run(ctx, progressCh)
	close(progressCh)
	<-done

	if runErr != nil {
		return runErr
	}

	r.writePlain("%s", formatter.SummaryText(result))

	if report := cmd.String("report"); report != "" && len(result.FailedRecords) > 0 {
		path, err := formatter.WriteFailureReport(result.FailedRecords, report)
		if err != nil {
			return err
		}
		r.writePlain("\nFailure report written to %s\n", path)
	}

	return nil
}
