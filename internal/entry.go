// Package internal provides the application wiring behind the invoice CLI.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/pavlix/invoice/internal/archive"
)

// Runner starts an external program in dir and waits for it to exit.
type Runner func(ctx context.Context, dir, name string, args ...string) error

// execRunner attaches the program to the current terminal.
func execRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// App is an opened archive plus the configuration and collaborators the
// subcommands need.
type App struct {
	cfg     *Config
	logger  *slog.Logger
	archive *archive.Archive
	stdout  io.Writer
	run     Runner
}

// New builds the application from options.
func New(opts ...Option) (*App, error) {
	app := &application{
		stdout: os.Stdout,
		stderr: os.Stderr,
		run:    execRunner,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	level := cfg.App.LogLevel
	if app.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(app.stderr, handlerOpts)
	if cfg.App.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(app.stderr, handlerOpts)
	}
	logger := slog.New(handler)

	root := app.root
	if root == "" {
		var err error
		if root, err = cfg.Archive.RootPath(); err != nil {
			return nil, err
		}
	}
	year := app.year
	if year == 0 {
		year = app.now().Year()
	}

	logger.Debug("Configuration loaded",
		slog.String("root", root),
		slog.Int("year", year),
		slog.String("issuer", cfg.Archive.Issuer),
		slog.String("log_level", level.String()))

	a, err := archive.Open(root, year, archive.WithLogger(logger), archive.WithClock(app.now))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		archive: a,
		stdout:  app.stdout,
		run:     app.run,
	}, nil
}

// Archive returns the opened archive.
func (a *App) Archive() *archive.Archive { return a.archive }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }
