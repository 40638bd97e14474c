// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/provtrack/internal/export"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/listener"
	"github.com/starford/provtrack/internal/mcpserver"
	"github.com/starford/provtrack/internal/recorder"
	"github.com/starford/provtrack/internal/store"
)

// Session wires the store, the format registry, the recorder and the
// exporter for one process.
type Session struct {
	Config     *Config
	Logger     *slog.Logger
	Listener   listener.Listener
	Libraries  files.Libraries
	Registry   *files.Registry
	Repository *store.Repository
	Recorder   *recorder.Recorder
	Exporter   *export.Exporter

	storePath string
}

// NewSession builds a session with the given options.
func NewSession(opts ...Option) (*Session, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		// stdout carries exports and MCP framing.
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	storePath, err := cfg.Store.ResolvedPath()
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}

	logger.Debug("Configuration loaded",
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", storePath),
		slog.Bool("dry_run", cfg.Recording.DryRun),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	backend, err := store.Open(cfg.Store.Driver, storePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	l := app.listener
	if l == nil {
		l = listener.NewLog(logger)
	}
	libs := app.libraries
	if libs == nil {
		libs = files.NewLibrarySet()
	}

	s := &Session{
		Config:    cfg,
		Logger:    logger,
		Listener:  l,
		Libraries: libs,
		storePath: storePath,
	}
	s.Registry = files.NewRegistry(libs, l)
	s.Repository = store.NewRepository(backend, s.Registry, logger)
	s.Recorder = recorder.New(s.Repository, s.Registry, l, s, logger)
	s.Exporter = export.NewExporter(s.Registry, export.Config{
		Dir:        cfg.Export.Dir,
		ReportPath: cfg.Report.Path,
		Viewer:     cfg.Report.Viewer,
		Stdout:     app.stdout,
	}, logger)

	return s, nil
}

// Reconfigure applies the configured dry-run setting on top of prev.
func (s *Session) Reconfigure(prev recorder.Options) recorder.Options {
	prev.DryRun = prev.DryRun || s.Config.Recording.DryRun
	return prev
}

// StorePath returns the resolved location of the durable store.
func (s *Session) StorePath() string {
	return s.storePath
}

// Close releases the store.
func (s *Session) Close() error {
	return s.Repository.Close()
}

// Serve runs the MCP server over stdin/stdout, reloading the store when
// another process writes it, until stdin is exhausted, ctx is cancelled or
// a shutdown signal arrives.
func (s *Session) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	logger := s.Logger
	srv := mcpserver.New(s.Repository, s.Registry, s.Recorder, s.Exporter)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	if s.Config.Watch.Enabled {
		g.Go(func() error {
			if err := store.Watch(gCtx, s.Repository, s.storePath, logger, nil); err != nil {
				logger.Warn("store watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		logger.Info("Starting MCP server", slog.String("store", s.storePath))
		if err := srv.Serve(gCtx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("MCP server stopped")
	return nil
}
