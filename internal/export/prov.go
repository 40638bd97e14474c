package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/starford/provtrack/internal/checksum"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// XML namespaces of the PROV document.
const (
	NamespacePROV = "http://www.w3.org/ns/prov#"
	NamespaceNFO  = "http://www.semanticdesktop.org/ontologies/2007/03/22/nfo#"
)

type provDocument struct {
	XMLName   xml.Name     `xml:"prov:document"`
	XMLNSProv string       `xml:"xmlns:prov,attr"`
	XMLNSNfo  string       `xml:"xmlns:nfo,attr"`
	Entities  []provEntity `xml:"prov:entity"`
	Hashes    []nfoHash    `xml:"nfo:FileHash"`
}

type provEntity struct {
	ID           string `xml:"id,attr"`
	FileURL      string `xml:"nfo:fileUrl"`
	FileSize     string `xml:"nfo:fileSize"`
	LastModified string `xml:"nfo:fileLastModified"`
	HasHash      string `xml:"nfo:hasHash"`
}

type nfoHash struct {
	ID        string `xml:"id,attr"`
	Algorithm string `xml:"nfo:hashAlgorithm"`
	Value     string `xml:"nfo:hashValue"`
}

// PROV renders records as a W3C PROV XML document with NFO file properties.
// It has no reader.
type PROV struct{}

func (PROV) SerializeSingle(h *files.Handle) (string, error) {
	return PROV{}.SerializeList([]*files.Handle{h})
}

func (PROV) SerializeList(hs []*files.Handle) (string, error) {
	doc := provDocument{XMLNSProv: NamespacePROV, XMLNSNfo: NamespaceNFO}
	for i, h := range hs {
		rec := h.Record()
		id := "niprov:file" + strconv.Itoa(i)
		hashID := id + ".hash"

		entity := provEntity{
			ID:      id,
			FileURL: h.Location().URL(),
			HasHash: hashID,
		}
		if size, ok := rec.Int(record.FieldSize); ok {
			entity.FileSize = strconv.FormatInt(size, 10)
		}
		if created, ok := rec.Time(record.FieldCreated); ok {
			entity.LastModified = created.Format(time.RFC3339Nano)
		}
		hash, _ := rec.String(record.FieldHash)

		doc.Entities = append(doc.Entities, entity)
		doc.Hashes = append(doc.Hashes, nfoHash{ID: hashID, Algorithm: checksum.Algorithm, Value: hash})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: prov: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}
