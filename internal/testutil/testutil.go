// Package testutil provides shared test helpers for setting up stores and data files.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/store"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestRepository creates a repository over a temporary document store that is
// closed when the test ends.
func TestRepository(t *testing.T, registry *files.Registry) *store.Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provenance.json")
	b, err := store.Open(store.DriverDocument, path)
	if err != nil {
		t.Fatal(err)
	}
	repo := store.NewRepository(b, registry, Logger())
	t.Cleanup(func() { repo.Close() })
	return repo
}

// TestFile writes content to name under dir and returns its absolute path.
func TestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}
