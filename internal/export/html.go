package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

const (
	htmlTime       = "2006-01-02 15:04:05"
	maxPathLen     = 42
	keptPathSuffix = 40
	missing        = "?"
)

// expectedFields are always shown, as "?" when absent.
var expectedFields = []string{record.FieldAcquired, record.FieldSubject, record.FieldProtocol}

// reportFields are the fields listed, in order, for a single record.
var reportFields = []string{
	record.FieldLocation,
	record.FieldParents,
	record.FieldTransformation,
	record.FieldAcquired,
	record.FieldSubject,
	record.FieldProtocol,
	record.FieldModality,
	record.FieldCode,
	record.FieldLogtext,
	record.FieldScript,
	record.FieldSize,
	record.FieldHash,
}

const reportHeader = `<html>
<head>
<style>
html {font-family:arial;}
td {padding: 10px;}
tr:hover {background-color:lavender;}
dt {color: dark-grey; font-style: italic; background-color:lavender; padding: 10px;}
dd {padding: 10px;}
</style>
<title>Provenance</title>
</head>
<h1>Provenance</h1>
`

var listTemplate = template.Must(template.New("list").Parse(reportHeader + `
<table>
<thead>
<tr>
<th>Acquired</th>
<th>Subject</th>
<th>Protocol</th>
<th>Path</th>
</tr>
</thead>
<tbody>
{{range .}}<tr><td>{{.Acquired}}</td><td>{{.Subject}}</td><td>{{.Protocol}}</td><td>{{.Path}}</td></tr>
{{end}}</tbody></table>
</html>
`))

var singleTemplate = template.Must(template.New("single").Parse(reportHeader + `<dl>
{{range .}}<dt>{{.Name}}</dt><dd>{{.Value}}</dd>
{{end}}</dl>
</html>
`))

type reportRow struct {
	Acquired string
	Subject  string
	Protocol string
	Path     string
}

type reportEntry struct {
	Name  string
	Value string
}

// HTML renders a browsable report: a table for several records and a
// definition list for one.
type HTML struct{}

func (HTML) SerializeSingle(h *files.Handle) (string, error) {
	rec := h.Record()
	var entries []reportEntry
	for _, f := range reportFields {
		switch {
		case rec.Has(f):
			entries = append(entries, reportEntry{Name: f, Value: display(rec[f])})
		case isExpected(f):
			entries = append(entries, reportEntry{Name: f, Value: missing})
		}
	}
	return render(singleTemplate, entries)
}

func (HTML) SerializeList(hs []*files.Handle) (string, error) {
	rows := make([]reportRow, len(hs))
	for i, h := range hs {
		rec := h.Record()
		rows[i] = reportRow{
			Acquired: field(rec, record.FieldAcquired),
			Subject:  field(rec, record.FieldSubject),
			Protocol: field(rec, record.FieldProtocol),
			Path:     abbreviate(h.Location().String()),
		}
	}
	return render(listTemplate, rows)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("export: html: %w", err)
	}
	return buf.String(), nil
}

func field(rec record.Record, key string) string {
	if !rec.Has(key) {
		return missing
	}
	return display(rec[key])
}

func display(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format(htmlTime)
	case time.Duration:
		return x.String()
	case []string:
		return strings.Join(x, ", ")
	case string:
		return x
	}
	return fmt.Sprint(record.EncodeValue(v))
}

// abbreviate keeps the tail of long paths, counted in characters.
func abbreviate(path string) string {
	r := []rune(path)
	if len(r) > maxPathLen {
		return ".." + string(r[len(r)-keptPathSuffix:])
	}
	return path
}

func isExpected(f string) bool {
	for _, e := range expectedFields {
		if e == f {
			return true
		}
	}
	return false
}
