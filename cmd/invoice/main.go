package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/pavlix/invoice/internal"
	"github.com/pavlix/invoice/internal/apperr"
	"github.com/pavlix/invoice/internal/record"
	pkgconfig "github.com/pavlix/invoice/pkg/config"
)

var version = "dev"

// action is a subcommand body running against an opened application.
type action func(ctx context.Context, cmd *cli.Command, app *internal.App) error

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".invoice", "config.yaml")
}

func openApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithYear(int(cmd.Int("year"))),
		internal.WithRoot(cmd.String("user-data")),
		internal.WithDebug(cmd.Bool("debug")),
	}
	return internal.New(opts...)
}

func with(fn action) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, app)
	}
}

func recordCommands(kind record.Kind, plural, suffix string) []*cli.Command {
	listName := "list"
	if suffix != "" {
		listName = "list-" + plural
	}
	return []*cli.Command{
		{
			Name:  listName,
			Usage: "List " + plural,
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.List(kind)
			}),
		},
		{
			Name:      "edit" + suffix,
			Usage:     "Edit a " + string(kind) + " in the external editor",
			ArgsUsage: "[selector]",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Edit(ctx, kind, cmd.Args().First())
			}),
		},
		{
			Name:      "show" + suffix,
			Usage:     "View a " + string(kind) + " in the external viewer",
			ArgsUsage: "[selector]",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Show(ctx, kind, cmd.Args().First())
			}),
		},
		{
			Name:      "delete" + suffix,
			Usage:     "Delete a " + string(kind),
			ArgsUsage: "[selector]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip the sanity check"},
			},
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Delete(kind, cmd.Args().First(), cmd.Bool("force"))
			}),
		},
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing argument: %s", name)
	}
	return v, nil
}

func commands() []*cli.Command {
	cmds := []*cli.Command{
		{
			Name:      "new",
			Usage:     "Create and edit a new invoice",
			ArgsUsage: "<company>",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				company, err := requireArg(cmd, "company")
				if err != nil {
					return err
				}
				return app.NewInvoice(ctx, company)
			}),
		},
		{
			Name:      "pdf",
			Usage:     "Generate and view a PDF invoice",
			ArgsUsage: "[selector]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "generate", Aliases: []string{"g"}, Usage: "Regenerate the PDF from the template"},
			},
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.PDF(ctx, cmd.Args().First(), cmd.Bool("generate"))
			}),
		},
		{
			Name:      "new-company",
			Usage:     "Create and edit a new company",
			ArgsUsage: "<name>",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				name, err := requireArg(cmd, "name")
				if err != nil {
					return err
				}
				return app.NewCompany(ctx, name)
			}),
		},
		{
			Name:  "export",
			Usage: "Dump the invoices of all years as YAML",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Export(ctx)
			}),
		},
		{
			Name:  "watch",
			Usage: "Print record changes of the selected year",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.Watch(ctx)
			}),
		},
		{
			Name:  "mcp",
			Usage: "Serve the archive over MCP on stdin/stdout",
			Action: with(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				return app.ServeMCP(version)
			}),
		},
	}
	cmds = append(cmds, recordCommands(record.KindInvoice, "invoices", "")...)
	return append(cmds, recordCommands(record.KindCompany, "companies", "-company")...)
}

func main() {
	cmd := &cli.Command{
		Name:     "invoice",
		Usage:    "Plain-text invoice archive",
		Version:  version,
		Commands: commands(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "~/.invoice/config.yaml",
				Value:       defaultConfigPath(),
				Sources:     cli.EnvVars("INVOICE_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:        "year",
				Aliases:     []string{"y"},
				Usage:       "Archive year",
				DefaultText: "current year",
			},
			&cli.StringFlag{
				Name:    "user-data",
				Aliases: []string{"d"},
				Usage:   "Archive root, overrides archive.root from the config",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Enable debug logging",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrSanityCheck) {
			fmt.Fprintf(os.Stderr, "Error: %v. Use '--force' to suppress this check.\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		slog.Debug("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
