package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/provtrack/internal"
	"github.com/starford/provtrack/internal/export"
	pkgconfig "github.com/starford/provtrack/pkg/config"
)

// openSession loads the configuration named by the root flags and builds a
// session over it. The caller closes the session.
func openSession(cmd *cli.Command) (*internal.Session, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("dry-run") {
		cfg.Recording.DryRun = true
	}

	s, err := internal.NewSession(internal.WithConfig(cfg), internal.WithStdout(cmd.Root().Writer))
	if err != nil {
		return nil, fmt.Errorf("app init error: %w", err)
	}
	return s, nil
}

// withSession wraps an action so that it runs against an open session.
func withSession(fn func(ctx context.Context, cmd *cli.Command, s *internal.Session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s)
	}
}

func newApp() *cli.Command {
	formatFlag := func(def string) *cli.StringFlag {
		return &cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json, xml, narrated or html",
			Value:   def,
		}
	}
	mediumFlag := func(def string) *cli.StringFlag {
		return &cli.StringFlag{
			Name:    "medium",
			Aliases: []string{"m"},
			Usage:   "Where the output goes: stdout, file or viewer",
			Value:   def,
		}
	}
	fieldFlag := func() *cli.StringSliceFlag {
		return &cli.StringSliceFlag{
			Name:  "field",
			Usage: "Extra record field as key=value (repeatable)",
		}
	}
	transientFlag := func() *cli.BoolFlag {
		return &cli.BoolFlag{
			Name:  "transient",
			Usage: "Do not store the record",
		}
	}

	return &cli.Command{
		Name:                      "provtrack",
		Usage:                     "Record and query the provenance of data files",
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("PROVTRACK_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build records without inspecting or storing anything",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register existing source files",
				ArgsUsage: "<file>...",
				Flags:     []cli.Flag{transientFlag(), fieldFlag()},
				Action:    withSession(runAdd),
			},
			{
				Name:      "log",
				Usage:     "Record files produced by a transformation",
				ArgsUsage: "<new-file>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transformation", Aliases: []string{"t"}, Usage: "Name of the transformation", Required: true},
					&cli.StringSliceFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Input file (repeatable)"},
					&cli.StringFlag{Name: "code", Usage: "Code that performed the transformation"},
					&cli.StringFlag{Name: "logtext", Usage: "Output captured while transforming"},
					&cli.StringFlag{Name: "script", Usage: "Path of the script that performed the transformation"},
					transientFlag(),
					fieldFlag(),
				},
				Action: withSession(runLog),
			},
			{
				Name:      "record",
				Usage:     "Run a command and record its output file",
				ArgsUsage: "-- <command> [args...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "Output file, when the command has no -out argument"},
					&cli.StringSliceFlag{Name: "in", Usage: "Input file, replacing any -in argument (repeatable)"},
					transientFlag(),
					fieldFlag(),
				},
				Action: withSession(runRecord),
			},
			{
				Name:      "show",
				Usage:     "Show the provenance of a file",
				ArgsUsage: "<file>",
				Flags:     []cli.Flag{formatFlag(export.FormatNarrative), mediumFlag(export.MediumStdout)},
				Action:    withSession(runShow),
			},
			{
				Name:      "subject",
				Usage:     "List the files recorded for a participant",
				ArgsUsage: "<subject>",
				Flags:     []cli.Flag{formatFlag(export.FormatNarrative), mediumFlag(export.MediumStdout)},
				Action:    withSession(runSubject),
			},
			{
				Name:      "export",
				Usage:     "Export provenance for files, or for every known file",
				ArgsUsage: "[file]...",
				Flags: []cli.Flag{
					formatFlag(export.FormatHTML),
					mediumFlag(export.MediumFile),
					&cli.BoolFlag{Name: "all", Usage: "Export every stored record"},
				},
				Action: withSession(runExport),
			},
			{
				Name:   "mcp",
				Usage:  "Serve provenance tools over MCP on stdin/stdout",
				Action: withSession(runMCP),
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
