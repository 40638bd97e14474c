package listener

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogWritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.MissingDependencyForImage("dicom", "/data/x.dcm")
	l.UnknownFile("/data/raw.cnt")
	l.InterpretedRecording("/data/out.nii", "smooth", []string{"/a", "/b"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["dependency"] != "dicom" || entry["path"] != "/data/x.dcm" {
		t.Errorf("missing dependency entry = %v", entry)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}

	if err := json.Unmarshal([]byte(lines[2]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["parents"] != "/a, /b" {
		t.Errorf("parents = %v, want %q", entry["parents"], "/a, /b")
	}
}

func TestImplementations(t *testing.T) {
	var _ Listener = Nop{}
	var _ Listener = (*Log)(nil)
}
