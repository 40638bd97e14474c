package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// LogRequest describes one transformation and the files it produced.
type LogRequest struct {
	New            []string
	Transformation string
	Parents        []string
	Code           string
	Logtext        string
	Script         string
	Transient      bool
	// Custom fields are applied last and win over inherited and inspected
	// values.
	Custom record.Record
}

// Validate validates the request.
func (req *LogRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.New, validation.Required, validation.Each(validation.Required)),
		validation.Field(&req.Transformation, validation.Required),
		validation.Field(&req.Parents, validation.Each(validation.Required)),
	)
}

// Log records the outputs of a transformation. Parents must already be known
// to the repository. Unless the outputs are transient, parents and outputs
// must exist on disk and every output is inspected before anything is
// stored. The call is all-or-nothing: on error nothing has been persisted,
// and the outputs are written to the store in a single batch.
//
// Under dry-run every output is transient and nothing is inspected or
// stored; the handles are still returned.
func (r *Recorder) Log(ctx context.Context, req LogRequest) ([]*files.Handle, error) {
	req.New = trimAll(req.New)
	req.Parents = trimAll(req.Parents)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("recorder: log: %w: %v", apperr.ErrMalformed, err)
	}

	opts := r.reconfigure()
	transient := req.Transient || opts.DryRun

	parents := make([]string, len(req.Parents))
	inherited := record.Record{}
	for i, p := range req.Parents {
		known, err := r.repo.KnowsByPath(p)
		if err != nil {
			return nil, fmt.Errorf("recorder: log: %w", err)
		}
		if !known {
			r.listener.UnknownFile(p)
			return nil, fmt.Errorf("recorder: log: %s: %w", p, apperr.ErrUnknownParent)
		}
		parent, err := r.repo.ByPath(p)
		if err != nil {
			return nil, fmt.Errorf("recorder: log: %w", err)
		}
		for _, f := range record.InheritedFields {
			if parent.Has(f) && !inherited.Has(f) {
				inherited[f] = parent[f]
			}
		}
		parents[i] = record.NewLocation(p).String()
	}

	if !transient {
		for _, p := range append(append([]string(nil), req.Parents...), req.New...) {
			if err := mustExist(p); err != nil {
				return nil, fmt.Errorf("recorder: log: %w", err)
			}
		}
	}

	handles := make([]*files.Handle, len(req.New))
	for i, p := range req.New {
		rec := record.New(record.NewLocation(p))
		rec.Merge(inherited.Clone())
		rec[record.FieldTransformation] = req.Transformation
		rec[record.FieldParents] = append([]string(nil), parents...)
		rec[record.FieldTransient] = transient
		setIfPresent(rec, record.FieldCode, req.Code)
		setIfPresent(rec, record.FieldLogtext, req.Logtext)
		setIfPresent(rec, record.FieldScript, req.Script)
		rec.Merge(req.Custom.Clone())
		handles[i] = r.registry.FromProvenance(rec)
	}

	if transient {
		r.logger.Debug("recorder: transient outputs not stored",
			slog.String("transformation", req.Transformation),
			slog.Bool("dry_run", opts.DryRun))
		return handles, nil
	}

	for _, h := range handles {
		rec, err := h.Inspect(ctx)
		if err != nil {
			return nil, fmt.Errorf("recorder: log: inspect %s: %w", h.Location(), err)
		}
		rec.Merge(req.Custom.Clone())
	}
	recs := make([]record.Record, len(handles))
	for i, h := range handles {
		recs[i] = h.Record()
	}
	if err := r.repo.AddAll(ctx, recs); err != nil {
		return nil, fmt.Errorf("recorder: log: %w", err)
	}
	for _, h := range handles {
		r.logger.Info("recorder: provenance logged",
			slog.String("location", h.Location().String()),
			slog.String("transformation", req.Transformation))
	}
	return handles, nil
}

// LogOne records a transformation with a single output.
func (r *Recorder) LogOne(ctx context.Context, newPath string, req LogRequest) (*files.Handle, error) {
	req.New = []string{newPath}
	handles, err := r.Log(ctx, req)
	if err != nil {
		return nil, err
	}
	return handles[0], nil
}

func mustExist(path string) error {
	local, ok := record.NewLocation(path).Path()
	if !ok {
		return fmt.Errorf("%s: %w", path, apperr.ErrMissingFile)
	}
	if _, err := os.Stat(local); err != nil {
		return fmt.Errorf("%s: %w", path, apperr.ErrMissingFile)
	}
	return nil
}

func setIfPresent(rec record.Record, key, value string) {
	if value != "" {
		rec[key] = value
	}
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
