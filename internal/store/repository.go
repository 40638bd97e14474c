package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// Repository is the cached, keyed collection of provenance records. Records
// are loaded from the backend on first access and every Add is flushed before
// it returns. Records are never deleted.
type Repository struct {
	backend  Backend
	registry *files.Registry
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	loaded  bool
	records []record.Record // write order
	byPath  map[record.Location]int
}

// NewRepository returns a repository over backend. registry builds the
// handles returned by ByLocation.
func NewRepository(backend Backend, registry *files.Registry, logger *slog.Logger) *Repository {
	if registry == nil {
		registry = files.NewRegistry(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		backend:  backend,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Add stores rec under its location, replacing any record already there. The
// store assigns _id on first write and keeps it on overwrite; added is set
// when absent.
func (r *Repository) Add(ctx context.Context, rec record.Record) error {
	return r.AddAll(ctx, []record.Record{rec})
}

// AddAll stores recs as Add does, in one backend write: on error none of them
// has been stored. A location given twice keeps the later record.
func (r *Repository) AddAll(ctx context.Context, recs []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	locs := make([]record.Location, len(recs))
	for i, rec := range recs {
		locs[i] = record.NewLocation(rec.Location().String())
		if locs[i] == "" {
			return fmt.Errorf("store: add: %w: record has no location", apperr.ErrMalformed)
		}
	}
	if err := r.ensureLoaded(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	last := make(map[record.Location]int, len(recs))
	for i, loc := range locs {
		last[loc] = i
	}

	changed := make([]record.Record, 0, len(last))
	for i, rec := range recs {
		loc := locs[i]
		if last[loc] != i {
			continue
		}
		stored := rec.Clone()
		stored[record.FieldLocation] = loc.String()
		if !stored.Has(record.FieldID) {
			if j, ok := r.byPath[loc]; ok {
				if id, ok := r.records[j][record.FieldID]; ok {
					stored[record.FieldID] = id
				}
			}
		}
		if !stored.Has(record.FieldID) {
			stored[record.FieldID] = uuid.NewString()
		}
		if !stored.Has(record.FieldAdded) {
			stored[record.FieldAdded] = r.now()
		}
		changed = append(changed, stored)
	}

	all := make([]record.Record, 0, len(r.records)+len(changed))
	for _, rec := range r.records {
		if _, replaced := last[rec.Location()]; !replaced {
			all = append(all, rec)
		}
	}
	all = append(all, changed...)

	if err := r.backend.Save(changed, all); err != nil {
		return fmt.Errorf("store: add %s: %w", locs[0], err)
	}
	r.setLocked(all)
	for _, rec := range changed {
		r.logger.Debug("store: record added", slog.String("location", rec.Location().String()))
	}
	return nil
}

// KnowsByPath reports whether a record exists for path.
func (r *Repository) KnowsByPath(path string) (bool, error) {
	if err := r.ensureLoaded(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPath[record.NewLocation(path)]
	return ok, nil
}

// ByPath returns a copy of the record stored for path.
func (r *Repository) ByPath(path string) (record.Record, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	loc := record.NewLocation(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byPath[loc]
	if !ok {
		return nil, fmt.Errorf("store: by path %s: %w", loc, apperr.ErrNotFound)
	}
	return r.records[i].Clone(), nil
}

// BySubject returns copies of the records for subject in write order. A
// rewritten record sorts after every record written before the rewrite.
func (r *Repository) BySubject(subject string) ([]record.Record, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []record.Record{}
	for _, rec := range r.records {
		if s, ok := rec.String(record.FieldSubject); ok && s == subject {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// ByLocation returns a handle seeded with the record stored for path.
func (r *Repository) ByLocation(path string) (*files.Handle, error) {
	rec, err := r.ByPath(path)
	if err != nil {
		return nil, err
	}
	return r.registry.FromProvenance(rec), nil
}

// All returns copies of every record in write order.
func (r *Repository) All() ([]record.Record, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]record.Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Handles returns a handle for every record in write order.
func (r *Repository) Handles() ([]*files.Handle, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	out := make([]*files.Handle, len(all))
	for i, rec := range all {
		out[i] = r.registry.FromProvenance(rec)
	}
	return out, nil
}

// Reload discards the cache and reads the backend again.
func (r *Repository) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Close releases the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

func (r *Repository) ensureLoaded() error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	return r.loadLocked()
}

func (r *Repository) loadLocked() error {
	recs, err := r.backend.Load()
	if err != nil {
		return err
	}
	// Keep the last occurrence of a location if the backend holds duplicates.
	last := make(map[record.Location]int, len(recs))
	for i, rec := range recs {
		last[rec.Location()] = i
	}
	dedup := make([]record.Record, 0, len(last))
	for i, rec := range recs {
		if last[rec.Location()] == i {
			dedup = append(dedup, rec)
		}
	}
	r.setLocked(dedup)
	r.loaded = true
	r.logger.Debug("store: loaded", slog.Int("records", len(dedup)))
	return nil
}

func (r *Repository) setLocked(all []record.Record) {
	r.records = all
	r.byPath = make(map[record.Location]int, len(all))
	for i, rec := range all {
		r.byPath[rec.Location()] = i
	}
}
