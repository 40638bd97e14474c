package files

import (
	"context"
	"sync"

	"github.com/starford/provtrack/internal/record"
)

// Reader extracts format-specific attributes from the file at path.
type Reader interface {
	Inspect(ctx context.Context, path string) (record.Record, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (record.Record, error)

func (f ReaderFunc) Inspect(ctx context.Context, path string) (record.Record, error) {
	return f(ctx, path)
}

// Libraries reports which optional format dependencies are available.
type Libraries interface {
	HasDependency(name string) bool
}

// ReaderSource is implemented by Libraries that also supply the reader for a
// dependency.
type ReaderSource interface {
	Reader(dependency string) (Reader, bool)
}

// LibrarySet holds external readers keyed by dependency name. A dependency is
// available exactly when a reader has been registered for it.
type LibrarySet struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

// NewLibrarySet returns an empty set: every optional dependency is missing.
func NewLibrarySet() *LibrarySet {
	return &LibrarySet{readers: make(map[string]Reader)}
}

// Register makes dependency available, served by r.
func (s *LibrarySet) Register(dependency string, r Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers[dependency] = r
}

func (s *LibrarySet) HasDependency(name string) bool {
	_, ok := s.Reader(name)
	return ok
}

func (s *LibrarySet) Reader(dependency string) (Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readers[dependency]
	return r, ok
}
