package internal

import (
	"io"
	"time"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	year   int
	root   string
	debug  bool
	stdout io.Writer
	stderr io.Writer
	run    Runner
	now    func() time.Time
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithYear selects the archive year. Defaults to the current year.
func WithYear(year int) Option {
	return func(a *application) {
		a.year = year
	}
}

// WithRoot overrides the configured archive root.
func WithRoot(root string) Option {
	return func(a *application) {
		a.root = root
	}
}

// WithDebug forces debug logging regardless of the configured level.
func WithDebug(debug bool) Option {
	return func(a *application) {
		a.debug = debug
	}
}

// WithOutput redirects command output and logs.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithRunner replaces the function used to start external programs.
func WithRunner(run Runner) Option {
	return func(a *application) {
		a.run = run
	}
}

// WithClock overrides the clock used for the default year and new invoices.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
