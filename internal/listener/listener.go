// Package listener defines the notification sink used by the recorder and the
// format registry, and a default implementation that writes to slog.
package listener

import (
	"log/slog"
	"strings"
)

// Listener receives user-facing notifications.
type Listener interface {
	// InterpretedRecording is called when a command line has been interpreted
	// into an output file, transformation and parents.
	InterpretedRecording(new string, transformation string, parents []string)
	// MissingDependencyForImage is called when a file's format needs a reader
	// that is not available; the file is then handled generically.
	MissingDependencyForImage(dependency, path string)
	// UnknownFile is called when a referenced file has no provenance.
	UnknownFile(path string)
}

// Log reports notifications through a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Listener writing to logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) InterpretedRecording(new string, transformation string, parents []string) {
	l.logger.Info("recording interpreted",
		slog.String("new", new),
		slog.String("transformation", transformation),
		slog.String("parents", strings.Join(parents, ", ")),
	)
}

func (l *Log) MissingDependencyForImage(dependency, path string) {
	l.logger.Warn("missing dependency for image, falling back to generic file",
		slog.String("dependency", dependency),
		slog.String("path", path),
	)
}

func (l *Log) UnknownFile(path string) {
	l.logger.Warn("unknown file, no provenance recorded", slog.String("path", path))
}

// Nop discards every notification.
type Nop struct{}

func (Nop) InterpretedRecording(string, string, []string) {}
func (Nop) MissingDependencyForImage(string, string)      {}
func (Nop) UnknownFile(string)                            {}
