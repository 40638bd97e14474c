package recorder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/record"
)

// execCmd allows mocking exec.CommandContext for testing
var execCmd = exec.CommandContext

// RecordRequest describes a command to run and record.
type RecordRequest struct {
	Command []string
	// New overrides the output parsed from "-out <path>".
	New string
	// Parents overrides the inputs parsed from "-in <path>" when non-nil.
	Parents   []string
	Transient bool
	Custom    record.Record
}

// Record runs a command and logs its output file as derived from its inputs.
// The transformation is the program name and the code the full command line;
// the combined output of the command becomes the logtext.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*files.Handle, error) {
	if len(req.Command) == 0 {
		return nil, fmt.Errorf("recorder: record: %w: command is required", apperr.ErrMalformed)
	}

	transformation := req.Command[0]
	code := strings.Join(req.Command, " ")
	newPath, parents := interpret(req.Command)
	if req.Parents != nil {
		parents = req.Parents
	}
	if req.New != "" {
		newPath = req.New
	}
	if newPath == "" {
		return nil, fmt.Errorf("recorder: record: %w: cannot determine output of %q", apperr.ErrMalformed, code)
	}
	r.listener.InterpretedRecording(newPath, transformation, parents)

	out, err := execCmd(ctx, req.Command[0], req.Command[1:]...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("recorder: record: run %s: %w", transformation, err)
	}

	return r.LogOne(ctx, newPath, LogRequest{
		Transformation: transformation,
		Parents:        parents,
		Code:           code,
		Logtext:        string(out),
		Transient:      req.Transient,
		Custom:         req.Custom,
	})
}

// interpret picks the output and input files out of a command line. The last
// "-out" wins; "-in" replaces any earlier input.
func interpret(argv []string) (newPath string, parents []string) {
	for i := 0; i < len(argv)-1; i++ {
		switch argv[i] {
		case "-out":
			newPath = argv[i+1]
		case "-in":
			parents = []string{argv[i+1]}
		}
	}
	return newPath, parents
}
