// Package recorder creates provenance records for files produced by
// transformations and stores them in the repository.
package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/listener"
	"github.com/starford/provtrack/internal/record"
)

// Options are the effective recording options for one call.
type Options struct {
	DryRun bool
}

// Configurator resolves the effective options for a call from the options
// used by the previous one.
type Configurator interface {
	Reconfigure(prev Options) Options
}

// ConfiguratorFunc adapts a function to the Configurator interface.
type ConfiguratorFunc func(prev Options) Options

func (f ConfiguratorFunc) Reconfigure(prev Options) Options { return f(prev) }

// Repository is the part of the store the recorder needs.
type Repository interface {
	KnowsByPath(path string) (bool, error)
	ByPath(path string) (record.Record, error)
	Add(ctx context.Context, rec record.Record) error
	AddAll(ctx context.Context, recs []record.Record) error
}

// Recorder validates, builds and persists provenance records.
type Recorder struct {
	repo     Repository
	registry *files.Registry
	listener listener.Listener
	config   Configurator
	logger   *slog.Logger

	mu   sync.Mutex // guards opts
	opts Options
}

// New returns a Recorder. A nil configurator keeps the default options.
func New(repo Repository, registry *files.Registry, l listener.Listener, config Configurator, logger *slog.Logger) *Recorder {
	if l == nil {
		l = listener.Nop{}
	}
	if registry == nil {
		registry = files.NewRegistry(nil, l)
	}
	if config == nil {
		config = ConfiguratorFunc(func(prev Options) Options { return prev })
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		repo:     repo,
		registry: registry,
		listener: l,
		config:   config,
		logger:   logger,
	}
}

func (r *Recorder) reconfigure() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = r.config.Reconfigure(r.opts)
	return r.opts
}
