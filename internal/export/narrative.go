package export

import (
	"fmt"
	"strings"

	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

const narrativeDate = "January 2, 2006"

// Narrative describes records in plain sentences. Fragments for absent
// fields are left out.
type Narrative struct{}

func (Narrative) SerializeSingle(h *files.Handle) (string, error) {
	return narrate(h.Record()), nil
}

// SerializeList writes one paragraph per record.
func (Narrative) SerializeList(hs []*files.Handle) (string, error) {
	paragraphs := make([]string, len(hs))
	for i, h := range hs {
		paragraphs[i] = narrate(h.Record())
	}
	return strings.Join(paragraphs, "\n"), nil
}

func narrate(rec record.Record) string {
	var b strings.Builder
	if rec.Has(record.FieldModality) {
		fmt.Fprintf(&b, "This is a %v image. ", rec[record.FieldModality])
	}
	if acquired, ok := rec.Time(record.FieldAcquired); ok {
		fmt.Fprintf(&b, "It was recorded %s. ", acquired.Format(narrativeDate))
	}
	if rec.Has(record.FieldSubject) {
		fmt.Fprintf(&b, "The participant's name is %v. ", rec[record.FieldSubject])
	}
	if size, ok := rec.Int(record.FieldSize); ok {
		fmt.Fprintf(&b, "It is %dKB in size. ", size/1024)
	}
	return b.String()
}
