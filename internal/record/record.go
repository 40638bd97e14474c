// Package record defines the provenance record, its recognised fields, and the
// canonical Location key shared by every store and serializer.
package record

import (
	"maps"
	"reflect"
	"time"
)

// Recognised field names.
const (
	FieldLocation          = "location"
	FieldAcquired          = "acquired"
	FieldCreated           = "created"
	FieldAdded             = "added"
	FieldDuration          = "duration"
	FieldSubject           = "subject"
	FieldProtocol          = "protocol"
	FieldModality          = "modality"
	FieldDimensions        = "dimensions"
	FieldSamplingFrequency = "sampling-frequency"
	FieldTransformation    = "transformation"
	FieldParents           = "parents"
	FieldTransient         = "transient"
	FieldCode              = "code"
	FieldLogtext           = "logtext"
	FieldScript            = "script"
	FieldSize              = "size"
	FieldHash              = "hash"
	FieldArgs              = "args"
	FieldKwargs            = "kwargs"

	// FieldID is the opaque identifier assigned by a store. It never leaves
	// the store through a serializer.
	FieldID = "_id"
)

// InheritedFields are copied from a parent onto a derived record when the
// derived record does not set them itself.
var InheritedFields = []string{FieldAcquired, FieldSubject, FieldProtocol}

// Record is a provenance record: named attributes describing one file.
type Record map[string]any

// New returns a record holding only its location.
func New(loc Location) Record {
	return Record{FieldLocation: loc.String()}
}

// Location returns the canonical location stored in the record.
func (r Record) Location() Location {
	switch v := r[FieldLocation].(type) {
	case Location:
		return v
	case string:
		return Location(v)
	}
	return ""
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key when it is a string.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case Location:
		return string(v), true
	}
	return "", false
}

// Time returns the value at key when it is a timestamp.
func (r Record) Time(key string) (time.Time, bool) {
	t, ok := r[key].(time.Time)
	return t, ok
}

// Duration returns the value at key when it is a duration.
func (r Record) Duration(key string) (time.Duration, bool) {
	d, ok := r[key].(time.Duration)
	return d, ok
}

// Int returns the value at key converted to int64 when it is numeric.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), true
	}
	return 0, false
}

// Bool returns the value at key when it is a boolean.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Parents returns the ordered parent locations.
func (r Record) Parents() []string {
	switch v := r[FieldParents].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Merge copies every field of other into r, overwriting existing keys.
func (r Record) Merge(other Record) {
	maps.Copy(r, other)
}

// Clone returns a deep copy of r; sequences and mappings are not shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case Record:
		return x.Clone()
	}
	return v
}
