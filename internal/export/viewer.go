package export

import (
	"fmt"
	"log/slog"
	"os/exec"
)

// execCmd allows mocking exec.Command for testing
var execCmd = exec.Command

// Viewer opens written reports in an external program.
type Viewer struct {
	argv   []string
	logger *slog.Logger
}

// NewViewer returns a viewer running argv with the report path appended.
func NewViewer(argv []string, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{argv: argv, logger: logger}
}

// Open starts the viewer on path and returns without waiting for it.
func (v *Viewer) Open(path string) error {
	if len(v.argv) == 0 {
		return fmt.Errorf("export: viewer: no command configured")
	}
	args := append(append([]string(nil), v.argv[1:]...), path)
	cmd := execCmd(v.argv[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("export: start viewer: %w", err)
	}
	v.logger.Info("export: viewer started",
		slog.String("viewer", v.argv[0]),
		slog.String("path", path))

	go func() {
		if err := cmd.Wait(); err != nil {
			v.logger.Warn("export: viewer exited", slog.String("error", err.Error()))
		}
	}()
	return nil
}
