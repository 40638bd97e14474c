package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/fsutil"
)

// Mediums accepted by the Exporter.
const (
	MediumDirect = "direct"
	MediumStdout = "stdout"
	MediumFile   = "file"
	MediumViewer = "viewer"
)

var extensions = map[string]string{
	FormatJSON:      "json",
	FormatXML:       "xml",
	FormatNarrative: "txt",
	FormatHTML:      "html",
}

// Config configures an Exporter.
type Config struct {
	// Dir receives provenance.<ext> for the file medium.
	Dir string
	// ReportPath is where the HTML report is written for the viewer medium.
	ReportPath string
	// Viewer is the command the report is opened with.
	Viewer []string
	Stdout io.Writer
}

// Exporter serializes handles in a named format and delivers the result to
// a medium.
type Exporter struct {
	formats map[string]Format
	cfg     Config
	viewer  *Viewer
	logger  *slog.Logger
}

// NewExporter returns an exporter with the built-in formats.
func NewExporter(registry *files.Registry, cfg Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	return &Exporter{
		formats: map[string]Format{
			FormatJSON:      NewJSON(registry),
			FormatXML:       PROV{},
			FormatNarrative: Narrative{},
			FormatHTML:      HTML{},
		},
		cfg:    cfg,
		viewer: NewViewer(cfg.Viewer, logger),
		logger: logger,
	}
}

// Export renders a single handle. See ExportList for the result.
func (e *Exporter) Export(ctx context.Context, h *files.Handle, format, medium string) (string, error) {
	return e.export(ctx, format, medium, func(f Format) (string, error) {
		return f.SerializeSingle(h)
	})
}

// ExportList renders several handles. The result is the rendered text for
// the direct and stdout mediums and the path written for file and viewer.
func (e *Exporter) ExportList(ctx context.Context, hs []*files.Handle, format, medium string) (string, error) {
	return e.export(ctx, format, medium, func(f Format) (string, error) {
		return f.SerializeList(hs)
	})
}

func (e *Exporter) export(ctx context.Context, format, medium string, serialize func(Format) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, ok := e.formats[format]
	if !ok {
		return "", fmt.Errorf("export: %w: unknown format %q", apperr.ErrMalformed, format)
	}
	if medium == MediumViewer && format != FormatHTML {
		return "", fmt.Errorf("export: %w: the viewer only shows %s", apperr.ErrMalformed, FormatHTML)
	}

	text, err := serialize(f)
	if err != nil {
		return "", err
	}

	switch medium {
	case MediumDirect, "":
		return text, nil
	case MediumStdout:
		if _, err := io.WriteString(e.cfg.Stdout, text+"\n"); err != nil {
			return "", fmt.Errorf("export: stdout: %w", err)
		}
		return text, nil
	case MediumFile:
		path := filepath.Join(e.cfg.Dir, "provenance."+extensions[format])
		if err := writeFile(path, text); err != nil {
			return "", err
		}
		e.logger.Info("export: written", slog.String("path", path), slog.String("format", format))
		return path, nil
	case MediumViewer:
		if err := writeFile(e.cfg.ReportPath, text); err != nil {
			return "", err
		}
		if err := e.viewer.Open(e.cfg.ReportPath); err != nil {
			return "", err
		}
		return e.cfg.ReportPath, nil
	}
	return "", fmt.Errorf("export: %w: unknown medium %q", apperr.ErrMalformed, medium)
}

func writeFile(path, text string) error {
	if err := fsutil.WriteAtomic(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
