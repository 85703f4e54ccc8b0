package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Archive   ArchiveConfig     `yaml:"archive"`
	Tools     ToolsConfig       `yaml:"tools"`
	Templates TemplatesConfig   `yaml:"templates"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	return c.Tools.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// ArchiveConfig locates the archive and names the issuing company.
type ArchiveConfig struct {
	Root   string `yaml:"root"`
	Issuer string `yaml:"issuer"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Issuer, validation.Required),
	)
}

// RootPath returns Root with a leading "~" expanded to the home directory.
func (c *ArchiveConfig) RootPath() (string, error) {
	return expandHome(c.Root)
}

// ToolsConfig names the external programs the CLI runs.
type ToolsConfig struct {
	Editor    string `yaml:"editor"`
	Viewer    string `yaml:"viewer"`
	TeX       string `yaml:"tex"`
	PDFViewer string `yaml:"pdf_viewer"`
}

// Validate validates the tools configuration.
func (c *ToolsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Editor, validation.Required),
		validation.Field(&c.Viewer, validation.Required),
		validation.Field(&c.TeX, validation.Required),
		validation.Field(&c.PDFViewer, validation.Required),
	)
}

// TemplatesConfig locates document templates.
type TemplatesConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Archive: ArchiveConfig{
			Root:   "~/.invoice",
			Issuer: "my-company",
		},
		Tools: ToolsConfig{
			Editor:    envOr("EDITOR", "vim"),
			Viewer:    envOr("PAGER", "less"),
			TeX:       "pdflatex",
			PDFViewer: "xdg-open",
		},
		Templates: TemplatesConfig{
			Path: "templates",
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
