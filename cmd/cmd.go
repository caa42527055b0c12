// submodule cmd contains command definitions
package main

import (
	"os"

	"github.com/urfave/cli/v3"
)

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("MELODYFORGE_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		&cli.Int64Flag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "User ID requests are made as",
			Value:   1,
			Sources: cli.EnvVars("MELODYFORGE_USER"),
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Display name stored with a new profile",
			Value: os.Getenv("USER"),
		},
	}
}

// outputFlags select how a response is printed.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
		&cli.BoolFlag{
			Name:    "markdown",
			Aliases: []string{"md"},
			Usage:   "Output Markdown",
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.RollbackDatabase,
			},
		},
	}
}

func startCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "Create your profile and show the welcome message",
		Flags:  outputFlags(),
		Action: r.Start,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search for tracks by free text",
		ArgsUsage: "<query>",
		Flags:     outputFlags(),
		Action:    r.Search,
	}
}

func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "top",
		Usage:  "Show the global top chart",
		Flags:  outputFlags(),
		Action: r.Top,
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artist",
		Usage:     "Show an artist's top tracks",
		ArgsUsage: "<name>",
		Flags:     outputFlags(),
		Action:    r.Artist,
	}
}

func similarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "similar",
		Usage: "Show tracks similar to a seed track",
		Flags: append(outputFlags(),
			&cli.StringFlag{Name: "artist", Usage: "Seed artist", Required: true},
			&cli.StringFlag{Name: "title", Usage: "Seed title", Required: true},
		),
		Action: r.Similar,
	}
}

func selectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "select",
		Aliases:   []string{"sel"},
		Usage:     "Run the action behind a token (download or similar)",
		ArgsUsage: "<token>",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory downloaded tracks are copied to",
				Value:   ".",
			},
		),
		Action: r.Select,
	}
}

func mixCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "mix",
		Usage:  "Build a personal mix from your recent downloads",
		Flags:  outputFlags(),
		Action: r.Mix,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or export your download history",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: text, csv or json",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Export file path",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records to export (0 for all)",
			},
		),
		Action: r.History,
	}
}

func modeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "mode",
		Usage:     "Switch between basic and extended results",
		ArgsUsage: "<basic|extended>",
		Flags:     outputFlags(),
		Action:    r.Mode,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the engine over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive search & download.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory downloaded tracks are copied to",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file (the screen is owned by the TUI)",
				Value: "./tmp/mforge-tui.log",
			},
		},
		Action: r.TUI,
	}
}
