// Package export renders provenance records into external formats: JSON,
// a W3C PROV XML document, a short narrative and an HTML report.
package export

import "github.com/starford/provtrack/internal/files"

// Format serializes one or several handles.
type Format interface {
	SerializeSingle(h *files.Handle) (string, error)
	SerializeList(hs []*files.Handle) (string, error)
}

// Format names accepted by the Exporter.
const (
	FormatJSON      = "json"
	FormatXML       = "xml"
	FormatNarrative = "narrated"
	FormatHTML      = "html"
)
