package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/provtrack/internal/store"
	pkgconfig "github.com/starford/provtrack/pkg/config"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	Recording RecordingConfig   `yaml:"recording"`
	Report    ReportConfig      `yaml:"report"`
	Export    ExportConfig      `yaml:"export"`
	Watch     WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// StoreConfig selects the durable store.
//
// Driver is either "document" (one JSON file) or "sqlite". An empty Path
// resolves to ~/provenance.json or ~/provenance.db depending on Driver.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = store.DriverDocument
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverDocument, store.DriverSQLite)),
	)
}

// ResolvedPath returns the store path with the driver default applied and
// "~" expanded.
func (c *StoreConfig) ResolvedPath() (string, error) {
	p := c.Path
	if p == "" {
		p = "~/provenance.json"
		if c.Driver == store.DriverSQLite {
			p = "~/provenance.db"
		}
	}
	return pkgconfig.ExpandHome(p)
}

// RecordingConfig holds options applied to every recording call.
type RecordingConfig struct {
	DryRun bool `yaml:"dry_run"`
}

// ReportConfig configures the HTML report opened by the viewer medium.
type ReportConfig struct {
	Path   string   `yaml:"path"`
	Viewer []string `yaml:"viewer"`
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Viewer, validation.Required),
	)
}

// ExportConfig holds the directory used by the file medium.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// WatchConfig toggles reloading the store when another process writes it.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Store: StoreConfig{
			Driver: store.DriverDocument,
		},
		Report: ReportConfig{
			Path:   "provenance.html",
			Viewer: []string{"xdg-open"},
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}
