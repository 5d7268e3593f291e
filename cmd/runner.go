package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/assets"
	"github.com/HaoWang-SSCA/migrate/internal/progress"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/source"
	"github.com/HaoWang-SSCA/migrate/internal/speakers"
	"github.com/HaoWang-SSCA/migrate/internal/storage"
	"github.com/HaoWang-SSCA/migrate/internal/target"
	"github.com/HaoWang-SSCA/migrate/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	newStore   func(shared.StorageConfig) (storage.ObjectStore, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	NewStore   func(shared.StorageConfig) (storage.ObjectStore, error)
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.NewStore == nil {
		opts.NewStore = func(cfg shared.StorageConfig) (storage.ObjectStore, error) {
			return storage.NewMinioStore(cfg)
		}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		newStore:   opts.NewStore,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, statusCommand, setupCommand, speakersCommand, linksCommand, initConfigCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective config for a command invocation. A
// config injected through RunnerOpts wins so tests never touch disk.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (run 'migrate init-config' first)", shared.ErrMissingConfig, err)
	}
	return config, nil
}

// pipeline bundles a fully wired engine with the connections it owns.
type pipeline struct {
	engine   *tasks.Engine
	ledger   *progress.Ledger
	sourceDB *sql.DB
	targetDB *sql.DB
}

func (p *pipeline) close() {
	if p.sourceDB != nil {
		p.sourceDB.Close()
	}
	if p.targetDB != nil {
		p.targetDB.Close()
	}
}

// progressPath returns the ledger location for the given mode. Dry runs
// get their own file so they can never pollute a real run's ledger.
func progressPath(settings shared.MigrationConfig) string {
	if settings.DryRun {
		return settings.ProgressFile + ".dryrun"
	}
	return settings.ProgressFile
}

// buildPipeline wires the engine from configuration: both databases,
// the object store, the asset service, the speaker normalizer, and the
// progress ledger.
func (r *Runner) buildPipeline(config *shared.Config, settings shared.MigrationConfig) (*pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ledger := progress.Load(progressPath(settings), settings.DryRun, r.logger)

	sourceDB, err := shared.NewDatabase(config.Source.Driver, config.Source.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}

	targetDB, err := shared.NewDatabase(config.Target.Driver, config.Target.DSN)
	if err != nil {
		sourceDB.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrTargetUnavailable, err)
	}

	store, err := r.newStore(config.Storage)
	if err != nil {
		sourceDB.Close()
		targetDB.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	names, err := speakers.LoadNormalizer(config.Speakers.MappingsFile)
	if err != nil {
		sourceDB.Close()
		targetDB.Close()
		return nil, err
	}
	if names.Enabled() {
		r.logger.Info("speaker mappings loaded", "count", names.MappingCount())
	}

	client := r.httpClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(settings.DownloadTimeoutMinutes) * time.Minute}
	}
	assetSvc := assets.NewService(config.Website, store, client, settings.DownloadsPerSecond, r.logger)

	engine := tasks.NewEngine(
		source.NewReader(sourceDB, r.logger),
		target.NewStore(targetDB, r.logger),
		assetSvc,
		ledger,
		names,
		settings,
		r.logger,
	)

	return &pipeline{
		engine:   engine,
		ledger:   ledger,
		sourceDB: sourceDB,
		targetDB: targetDB,
	}, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
