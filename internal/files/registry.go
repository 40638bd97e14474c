// Package files maps file locations to handles that know how to inspect the
// file they point at.
package files

import (
	"strings"
	"sync"

	"github.com/starford/provtrack/internal/listener"
	"github.com/starford/provtrack/internal/record"
)

// Handler kinds.
const (
	KindGeneric   = "generic"
	KindNeuroscan = "neuroscan"
	KindDicom     = "dicom"
	KindParrec    = "parrec"
	KindFif       = "fif"
)

// Format describes how files with one extension are handled. Dependency is
// empty for built-in formats; Reader may be nil when the reader is supplied by
// Libraries.
type Format struct {
	Kind       string
	Dependency string
	Reader     Reader
}

// DefaultFormats returns the built-in extension table.
func DefaultFormats() map[string]Format {
	return map[string]Format{
		".cnt": {Kind: KindNeuroscan, Reader: Neuroscan{}},
		".dcm": {Kind: KindDicom, Dependency: "dicom"},
		".par": {Kind: KindParrec, Dependency: "nibabel"},
		".fif": {Kind: KindFif, Dependency: "mne"},
	}
}

// Registry builds handles for locations based on their extension.
type Registry struct {
	mu       sync.RWMutex
	formats  map[string]Format
	libs     Libraries
	listener listener.Listener
}

// NewRegistry returns a registry seeded with DefaultFormats.
func NewRegistry(libs Libraries, l listener.Listener) *Registry {
	if libs == nil {
		libs = NewLibrarySet()
	}
	if l == nil {
		l = listener.Nop{}
	}
	return &Registry{formats: DefaultFormats(), libs: libs, listener: l}
}

// Register adds or replaces the format for ext (case-insensitive).
func (r *Registry) Register(ext string, f Format) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[ext] = f
}

// LocatedAt returns a handle for the file at path. A format whose dependency
// is unavailable is reported to the listener and handled generically.
func (r *Registry) LocatedAt(path string) *Handle {
	loc := record.NewLocation(path)
	return r.build(loc, path, nil)
}

// FromProvenance returns a handle seeded with an existing record. The file is
// not inspected again.
func (r *Registry) FromProvenance(rec record.Record) *Handle {
	loc := rec.Location()
	return r.build(loc, loc.String(), rec)
}

func (r *Registry) build(loc record.Location, given string, rec record.Record) *Handle {
	r.mu.RLock()
	f, ok := r.formats[loc.Ext()]
	r.mu.RUnlock()
	if !ok {
		return newHandle(loc, KindGeneric, nil, rec)
	}

	reader := f.Reader
	if f.Dependency != "" {
		if !r.libs.HasDependency(f.Dependency) {
			r.listener.MissingDependencyForImage(f.Dependency, given)
			return newHandle(loc, KindGeneric, nil, rec)
		}
		if reader == nil {
			if src, ok := r.libs.(ReaderSource); ok {
				reader, _ = src.Reader(f.Dependency)
			}
		}
	}
	return newHandle(loc, f.Kind, reader, rec)
}
