// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand executes the full migration pipeline.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full migration pipeline",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log what would happen without writing anything",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show live progress in an interactive terminal UI",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Records between progress file saves (overrides config)",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Retry bound for failed audio transfers (overrides config)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write failed records to this CSV file",
			},
		},
		Action: r.Run,
	}
}

// statusCommand reports ledger state without touching any external system.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show migration progress from the ledger",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Inspect the dry-run ledger instead",
			},
		},
		Action: r.Status,
	}
}

// setupCommand prepares the target database schema.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the target database and run migrations",
		Flags: []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// speakersCommand handles speaker name diagnostics and cleanup.
func speakersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "speakers",
		Usage: "Speaker name analysis and normalization",
		Commands: []*cli.Command{
			{
				Name:   "analyze",
				Usage:  "List speaker name frequencies and likely duplicates",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpeakersAnalyze,
			},
			{
				Name:  "apply",
				Usage: "Rewrite migrated meetings using the speaker mappings file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Log what would change without writing anything",
					},
				},
				Action: r.SpeakersApply,
			},
		},
	}
}

// linksCommand attaches embeddable video links to migrated meetings.
func linksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "Patch migrated meetings with embeddable video links",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log what would change without writing anything",
			},
		},
		Action: r.Links,
	}
}

// initConfigCommand writes a config file from the embedded template.
func initConfigCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init-config",
		Usage:  "Create config.toml from the embedded template",
		Flags:  []cli.Flag{configFlag()},
		Action: r.InitConfig,
	}
}
