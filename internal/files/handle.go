package files

import (
	"context"
	"fmt"
	"os"

	"github.com/starford/provtrack/internal/checksum"
	"github.com/starford/provtrack/internal/record"
)

// Handle pairs a location with its provenance record and the reader able to
// inspect it. Handles are never persisted.
type Handle struct {
	loc    record.Location
	kind   string
	reader Reader
	rec    record.Record
}

func newHandle(loc record.Location, kind string, reader Reader, rec record.Record) *Handle {
	return &Handle{loc: loc, kind: kind, reader: reader, rec: rec}
}

// Location returns the canonical location.
func (h *Handle) Location() record.Location { return h.loc }

// Kind returns the handler kind, KindGeneric when no specific reader applies.
func (h *Handle) Kind() string { return h.kind }

// Record returns the provenance record, seeding it with the location on first
// use.
func (h *Handle) Record() record.Record {
	if h.rec == nil {
		h.rec = record.New(h.loc)
	}
	return h.rec
}

// Inspect reads basic file attributes (size, MD5 hash, modification time as
// created) and the format-specific attributes, merges them into the handle's
// record and returns it. Non-local URLs are left untouched.
func (h *Handle) Inspect(ctx context.Context) (record.Record, error) {
	rec := h.Record()
	path, ok := h.loc.Path()
	if !ok {
		return rec, nil
	}

	attrs, err := inspectGeneric(path)
	if err != nil {
		return nil, err
	}
	rec.Merge(attrs)

	if h.reader != nil {
		specific, err := h.reader.Inspect(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("files: inspect %s: %w", h.kind, err)
		}
		rec.Merge(specific)
	}
	return rec, nil
}

func inspectGeneric(path string) (record.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("files: stat %s: %w", path, err)
	}
	hash, err := checksum.File(path)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return record.Record{
		record.FieldSize:    info.Size(),
		record.FieldHash:    hash,
		record.FieldCreated: info.ModTime(),
	}, nil
}
