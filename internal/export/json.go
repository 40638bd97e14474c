package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// JSON renders records as structured text that Deserialize reads back.
type JSON struct {
	registry *files.Registry
}

// NewJSON returns a JSON format. registry builds the handles returned by
// Deserialize.
func NewJSON(registry *files.Registry) *JSON {
	if registry == nil {
		registry = files.NewRegistry(nil, nil)
	}
	return &JSON{registry: registry}
}

func (f *JSON) SerializeSingle(h *files.Handle) (string, error) {
	return f.marshal(jsonDoc(h))
}

func (f *JSON) SerializeList(hs []*files.Handle) (string, error) {
	docs := make([]map[string]any, len(hs))
	for i, h := range hs {
		docs[i] = jsonDoc(h)
	}
	return f.marshal(docs)
}

// Deserialize reads a single record written by SerializeSingle.
func (f *JSON) Deserialize(s string) (*files.Handle, error) {
	rec, err := record.Unmarshal([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("export: json: %w", err)
	}
	return f.registry.FromProvenance(rec), nil
}

// DeserializeList reads a list written by SerializeList.
func (f *JSON) DeserializeList(s string) ([]*files.Handle, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("export: json: %w: %v", apperr.ErrMalformed, err)
	}
	out := make([]*files.Handle, 0, len(raw))
	for _, m := range raw {
		rec, err := record.Decode(m)
		if err != nil {
			return nil, fmt.Errorf("export: json: %w", err)
		}
		out = append(out, f.registry.FromProvenance(rec))
	}
	return out, nil
}

func (f *JSON) marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: json: %w", err)
	}
	return string(data), nil
}

// jsonDoc is the exported form of a record; the store identifier stays
// private to the store.
func jsonDoc(h *files.Handle) map[string]any {
	doc := record.Encode(h.Record())
	delete(doc, record.FieldID)
	return doc
}
