package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/provtrack/internal/store"
	pkgconfig "github.com/starford/provtrack/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Store.Driver != store.DriverDocument {
		t.Errorf("driver = %q, want %q", cfg.Store.Driver, store.DriverDocument)
	}
}

func TestStoreConfig_EmptyDriverDefaultsDocument(t *testing.T) {
	cfg := StoreConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to document: %v", err)
	}
	if cfg.Driver != store.DriverDocument {
		t.Errorf("driver = %q, want %q", cfg.Driver, store.DriverDocument)
	}
}

func TestStoreConfig_InvalidDriver(t *testing.T) {
	cfg := StoreConfig{Driver: "mongo"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestStoreConfig_ResolvedPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		cfg  StoreConfig
		want string
	}{
		{StoreConfig{Driver: store.DriverDocument}, filepath.Join(home, "provenance.json")},
		{StoreConfig{Driver: store.DriverSQLite}, filepath.Join(home, "provenance.db")},
		{StoreConfig{Driver: store.DriverSQLite, Path: "/tmp/p.db"}, "/tmp/p.db"},
	}
	for _, tt := range tests {
		got, err := tt.cfg.ResolvedPath()
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("ResolvedPath(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestReportConfig_EmptyViewer(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Report.Viewer = nil
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty viewer should fail")
	}
	if !strings.Contains(err.Error(), "report") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_LoadFromYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
store:
  driver: sqlite
  path: /data/prov.db
recording:
  dry_run: true
watch:
  enabled: false
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != store.DriverSQLite || cfg.Store.Path != "/data/prov.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if !cfg.Recording.DryRun {
		t.Error("dry_run should be true")
	}
	if cfg.Watch.Enabled {
		t.Error("watch should be disabled")
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %s, want DEBUG", cfg.App.LogLevel)
	}
	if cfg.Report.Path != "provenance.html" {
		t.Errorf("report path = %q, want default", cfg.Report.Path)
	}
}
