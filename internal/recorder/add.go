package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// AddOptions control how a source file is registered.
type AddOptions struct {
	Transient bool
	Custom    record.Record
}

// Add registers an existing file that was not produced by a recorded
// transformation, such as raw acquisition data. The file is inspected and
// stored unless it is transient or recording is a dry run.
func (r *Recorder) Add(ctx context.Context, path string, opts AddOptions) (*files.Handle, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("recorder: add: %w: path is required", apperr.ErrMalformed)
	}

	effective := r.reconfigure()
	transient := opts.Transient || effective.DryRun

	h := r.registry.LocatedAt(path)
	rec := h.Record()
	rec[record.FieldTransient] = transient
	rec.Merge(opts.Custom.Clone())

	if transient {
		return h, nil
	}
	if err := mustExist(path); err != nil {
		return nil, fmt.Errorf("recorder: add: %w", err)
	}
	if _, err := h.Inspect(ctx); err != nil {
		return nil, fmt.Errorf("recorder: add: %w", err)
	}
	rec.Merge(opts.Custom.Clone())
	if err := r.repo.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("recorder: add: %w", err)
	}
	r.logger.Info("recorder: file added", slog.String("location", h.Location().String()))
	return h, nil
}
