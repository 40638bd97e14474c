package internal

import (
	"io"
	"log/slog"

	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/listener"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	stdout    io.Writer
	libraries files.Libraries
	listener  listener.Listener
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger built from the configured level.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithStdout sets where the stdout export medium writes.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLibraries sets the format readers available to the session.
func WithLibraries(libs files.Libraries) Option {
	return func(a *application) {
		a.libraries = libs
	}
}

// WithListener replaces the logging listener.
func WithListener(l listener.Listener) Option {
	return func(a *application) {
		a.listener = l
	}
}
