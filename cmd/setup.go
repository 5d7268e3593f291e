package main

import (
	"context"
	"fmt"
	"os"

	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/target"
	"github.com/urfave/cli/v3"
)

// Setup initializes the target database and runs schema migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing target database", "driver", config.Target.Driver)

	db, err := shared.NewDatabase(config.Target.Driver, config.Target.DSN)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTargetUnavailable, err)
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	count, err := target.NewStore(db, r.logger).Count(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("setup complete", "meetings", count)
	r.writePlain("Target schema ready (%d meetings)\n", count)
	return nil
}

// InitConfig writes a config file from the embedded template.
func (r *Runner) InitConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", shared.ErrInvalidInput, path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("Config file created at %s. Fill in the connection settings before running.\n", path)
	return nil
}
