// Package store keeps provenance records in a durable backend and serves
// lookups by location and subject from an in-memory cache.
package store

import (
	"fmt"

	"github.com/starford/provtrack/internal/record"
)

// Backend drivers.
const (
	DriverDocument = "document"
	DriverSQLite   = "sqlite"
)

// Backend is the durable side of a Repository.
type Backend interface {
	// Load returns every stored record in write order. A store that does
	// not exist yet holds no records.
	Load() ([]record.Record, error)
	// Save durably persists changed in one write: either every record in
	// changed is stored or none is. all is the full collection in write
	// order, ending with changed.
	Save(changed []record.Record, all []record.Record) error
	// Close releases the backend.
	Close() error
}

// Open returns the backend for driver at path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverDocument, "":
		return NewDocument(path), nil
	case DriverSQLite:
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}
