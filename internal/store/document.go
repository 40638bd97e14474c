package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/fsutil"
	"github.com/starford/provtrack/internal/record"
)

// Document stores all records as one JSON array in a single file.
type Document struct {
	path string
}

// NewDocument returns a document backend for the file at path. The file is
// created on the first Save.
func NewDocument(path string) *Document {
	return &Document{path: path}
}

func (d *Document) Load() ([]record.Record, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", d.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w: %v", d.path, apperr.ErrMalformed, err)
	}

	out := make([]record.Record, 0, len(raw))
	for _, m := range raw {
		rec, err := record.Decode(m)
		if err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", d.path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Document) Save(_ []record.Record, all []record.Record) error {
	docs := make([]map[string]any, len(all))
	for i, rec := range all {
		docs[i] = record.Encode(rec)
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := fsutil.WriteAtomic(d.path, data, 0o644); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

func (d *Document) Close() error { return nil }
