package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/starford/provtrack/internal/apperr"
)

// TimeFields hold timestamps in their structured-text form.
var TimeFields = []string{FieldAcquired, FieldCreated, FieldAdded}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Encode converts r into values that marshal to plain JSON: timestamps become
// RFC 3339 strings, durations become float seconds and unrecognised kinds are
// rendered through their display form.
func Encode(r Record) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = EncodeValue(v)
	}
	return out
}

// EncodeValue applies the Encode coercion to a single value.
func EncodeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.Seconds()
	case string, bool, json.Number:
		return x
	case Location:
		return string(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = EncodeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = EncodeValue(e)
		}
		return out
	case Record:
		return Encode(x)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = EncodeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = EncodeValue(iter.Value().Interface())
			}
			return out
		}
	}
	return fmt.Sprint(v)
}

// Marshal renders r as a JSON object after Encode.
func Marshal(r Record) ([]byte, error) {
	return json.Marshal(Encode(r))
}

// Unmarshal parses a JSON object produced by Marshal.
func Unmarshal(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("record: unmarshal: %w: %v", apperr.ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("record: unmarshal: %w: not an object", apperr.ErrMalformed)
	}
	return Decode(raw)
}

// Decode reverses Encode for the recognised fields: timestamps are parsed,
// the duration is restored and integral numbers become int64.
func Decode(m map[string]any) (Record, error) {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = decodeValue(v)
	}

	for _, f := range TimeFields {
		v, ok := r[f]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("record: decode %s: %w: expected timestamp string", f, apperr.ErrMalformed)
		}
		t, err := ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("record: decode %s: %w", f, err)
		}
		r[f] = t
	}

	if v, ok := r[FieldDuration]; ok && v != nil {
		secs, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("record: decode %s: %w: expected seconds", FieldDuration, apperr.ErrMalformed)
		}
		r[FieldDuration] = time.Duration(math.Round(secs * float64(time.Second)))
	}

	if v, ok := r[FieldParents]; ok && v != nil {
		seq, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("record: decode %s: %w: expected sequence", FieldParents, apperr.ErrMalformed)
		}
		parents := make([]string, 0, len(seq))
		for _, p := range seq {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("record: decode %s: %w: expected strings", FieldParents, apperr.ErrMalformed)
			}
			parents = append(parents, s)
		}
		r[FieldParents] = parents
	}
	return r, nil
}

// ParseTime accepts RFC 3339 timestamps and zone-less ISO 8601 timestamps,
// the latter interpreted in local time.
func ParseTime(s string) (time.Time, error) {
	for i, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", apperr.ErrMalformed, s)
}

func decodeValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i, e := range x {
			x[i] = decodeValue(e)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = decodeValue(e)
		}
		return x
	}
	return v
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Equal reports whether a and b hold the same values once both are rendered
// to their structured-text form. Numbers compare by value regardless of Go
// kind.
func Equal(a, b Record) bool {
	return reflect.DeepEqual(canonical(Encode(a)), canonical(Encode(b)))
}

func canonical(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonical(e)
		}
		return out
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}
