package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/listener/listenertest"
	"github.com/starford/provtrack/internal/record"
	"github.com/starford/provtrack/internal/store"
	"github.com/starford/provtrack/internal/testutil"
)

type env struct {
	dir    string
	repo   *store.Repository
	events *listenertest.Memory
	rec    *Recorder
	seen   []Options
	dryRun bool
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{dir: t.TempDir(), events: &listenertest.Memory{}}
	registry := files.NewRegistry(nil, e.events)
	e.repo = testutil.TestRepository(t, registry)
	config := ConfiguratorFunc(func(prev Options) Options {
		e.seen = append(e.seen, prev)
		return Options{DryRun: prev.DryRun || e.dryRun}
	})
	e.rec = New(e.repo, registry, e.events, config, testutil.Logger())
	return e
}

func (e *env) file(t *testing.T, name string) string {
	t.Helper()
	return testutil.TestFile(t, e.dir, name, "content of "+name)
}

func (e *env) parent(t *testing.T, name string, fields record.Record) string {
	t.Helper()
	p := e.file(t, name)
	rec := record.New(record.NewLocation(p))
	rec.Merge(fields)
	require.NoError(t, e.repo.Add(context.Background(), rec))
	return p
}

func (e *env) stored(t *testing.T) []record.Record {
	t.Helper()
	all, err := e.repo.All()
	require.NoError(t, err)
	return all
}

func TestLogInheritsFromParent(t *testing.T) {
	e := newEnv(t)
	acquired := time.Date(2015, 3, 9, 13, 7, 3, 0, time.UTC)
	parent := e.parent(t, "raw.cnt", record.Record{
		record.FieldAcquired: acquired,
		record.FieldSubject:  "JB",
		record.FieldProtocol: "T3",
	})
	child := e.file(t, "filtered.txt")

	h, err := e.rec.LogOne(context.Background(), child, LogRequest{
		Transformation: "bandpass",
		Parents:        []string{parent},
		Code:           "abc",
		Logtext:        "def",
		Script:         "/p/test.py",
	})
	require.NoError(t, err)
	require.Equal(t, record.NewLocation(child), h.Location())

	got, err := e.repo.ByPath(child)
	require.NoError(t, err)
	require.Equal(t, "JB", got[record.FieldSubject])
	require.Equal(t, "T3", got[record.FieldProtocol])
	ts, ok := got.Time(record.FieldAcquired)
	require.True(t, ok)
	require.True(t, ts.Equal(acquired))
	require.Equal(t, "bandpass", got[record.FieldTransformation])
	require.Equal(t, []string{parent}, got.Parents())
	require.Equal(t, false, got[record.FieldTransient])
	require.Equal(t, "abc", got[record.FieldCode])
	require.Equal(t, "def", got[record.FieldLogtext])
	require.Equal(t, "/p/test.py", got[record.FieldScript])
	require.True(t, got.Has(record.FieldHash), "output was not inspected")
	require.True(t, got.Has(record.FieldSize))
}

func TestLogParentMissingBasicFields(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", record.Record{record.FieldAcquired: time.Now()})

	h, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "trans",
		Parents:        []string{parent},
	})
	require.NoError(t, err)
	require.False(t, h.Record().Has(record.FieldSubject))
	require.True(t, h.Record().Has(record.FieldAcquired))
}

func TestLogFirstParentWins(t *testing.T) {
	e := newEnv(t)
	first := e.parent(t, "a.txt", record.Record{record.FieldSubject: "JB"})
	second := e.parent(t, "b.txt", record.Record{record.FieldSubject: "XX", record.FieldProtocol: "T1"})

	h, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "merge",
		Parents:        []string{first, second},
	})
	require.NoError(t, err)
	require.Equal(t, "JB", h.Record()[record.FieldSubject])
	require.Equal(t, "T1", h.Record()[record.FieldProtocol])
}

func TestLogUnknownParent(t *testing.T) {
	e := newEnv(t)
	unknown := e.file(t, "unknown.txt")

	_, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "trans",
		Parents:        []string{unknown},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrUnknownParent))
	require.Empty(t, e.stored(t))

	events := e.events.Events()
	require.Len(t, events, 1)
	require.Equal(t, listenertest.KindUnknownFile, events[0].Kind)
	require.Equal(t, unknown, events[0].Path)
}

func TestLogUnknownParentUnderDryRun(t *testing.T) {
	e := newEnv(t)
	e.dryRun = true

	_, err := e.rec.LogOne(context.Background(), "/nowhere/out.txt", LogRequest{
		Transformation: "trans",
		Parents:        []string{"/nowhere/in.txt"},
	})
	require.True(t, errors.Is(err, apperr.ErrUnknownParent))
	require.Len(t, e.events.Events(), 1)
}

func TestLogMissingFile(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", nil)

	_, err := e.rec.Log(context.Background(), LogRequest{
		New:            []string{e.file(t, "present.txt"), filepath.Join(e.dir, "absent.txt")},
		Transformation: "trans",
		Parents:        []string{parent},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrMissingFile))
	require.Len(t, e.stored(t), 1, "only the parent may be stored")
}

func TestLogMissingParentFile(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", nil)
	require.NoError(t, os.Remove(parent))

	_, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "trans",
		Parents:        []string{parent},
	})
	require.True(t, errors.Is(err, apperr.ErrMissingFile))
}

func TestLogTransient(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", record.Record{record.FieldSubject: "JB"})
	out := filepath.Join(e.dir, "tmp", "never-written.txt")

	h, err := e.rec.LogOne(context.Background(), out, LogRequest{
		Transformation: "Something cool",
		Parents:        []string{parent},
		Transient:      true,
	})
	require.NoError(t, err)

	rec := h.Record()
	require.Equal(t, true, rec[record.FieldTransient])
	require.Equal(t, "Something cool", rec[record.FieldTransformation])
	require.Equal(t, "JB", rec[record.FieldSubject])
	require.False(t, rec.Has(record.FieldHash), "transient output was inspected")

	known, err := e.repo.KnowsByPath(out)
	require.NoError(t, err)
	require.False(t, known)
}

func TestLogDryRun(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", nil)
	e.dryRun = true

	handles, err := e.rec.Log(context.Background(), LogRequest{
		New:            []string{e.file(t, "f2.txt"), e.file(t, "f3.txt")},
		Transformation: "Something cool",
		Parents:        []string{parent},
	})
	require.NoError(t, err)
	require.Len(t, handles, 2)
	for _, h := range handles {
		require.Equal(t, true, h.Record()[record.FieldTransient])
		require.False(t, h.Record().Has(record.FieldHash))
	}
	require.Len(t, e.stored(t), 1)
}

func TestLogPassesPreviousOptionsToConfigurator(t *testing.T) {
	e := newEnv(t)
	e.dryRun = true
	req := LogRequest{Transformation: "bla", Transient: true}

	_, err := e.rec.LogOne(context.Background(), "/p/f1", req)
	require.NoError(t, err)
	_, err = e.rec.LogOne(context.Background(), "/p/f2", req)
	require.NoError(t, err)

	require.Equal(t, []Options{{}, {DryRun: true}}, e.seen)
	require.Empty(t, e.stored(t))
}

func TestLogMultipleOutputs(t *testing.T) {
	e := newEnv(t)
	p1 := e.parent(t, "p1.txt", nil)
	p2 := e.parent(t, "p2.txt", nil)
	f2, f3 := e.file(t, "f2.txt"), e.file(t, "f3.txt")

	handles, err := e.rec.Log(context.Background(), LogRequest{
		New:            []string{f2, f3},
		Transformation: "split",
		Parents:        []string{p1, p2},
	})
	require.NoError(t, err)
	require.Len(t, handles, 2)
	require.Equal(t, record.NewLocation(f2), handles[0].Location())
	require.Equal(t, record.NewLocation(f3), handles[1].Location())
	for _, h := range handles {
		require.Equal(t, []string{p1, p2}, h.Record().Parents())
	}

	all := e.stored(t)
	require.Len(t, all, 4)
	require.Equal(t, f2, all[2].Location().String())
	require.Equal(t, f3, all[3].Location().String())
}

func TestLogCanonicalisesParents(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "sub/p1.txt", nil)
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, parent)
	require.NoError(t, err)

	h, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "trans",
		Parents:        []string{rel},
	})
	require.NoError(t, err)
	require.Equal(t, []string{parent}, h.Record().Parents())
}

func TestLogCustomFieldsWin(t *testing.T) {
	e := newEnv(t)
	parent := e.parent(t, "raw.txt", record.Record{record.FieldSubject: "JB"})

	h, err := e.rec.LogOne(context.Background(), e.file(t, "out.txt"), LogRequest{
		Transformation: "trans",
		Parents:        []string{parent},
		Custom: record.Record{
			"akey":              "avalue",
			record.FieldSubject: "override",
			record.FieldSize:    int64(1),
		},
	})
	require.NoError(t, err)

	got, err := e.repo.ByPath(h.Location().String())
	require.NoError(t, err)
	require.Equal(t, "avalue", got["akey"])
	require.Equal(t, "override", got[record.FieldSubject])
	require.Equal(t, int64(1), got[record.FieldSize])
}

func TestLogValidation(t *testing.T) {
	e := newEnv(t)
	for name, req := range map[string]LogRequest{
		"no transformation": {New: []string{"/a"}},
		"no outputs":        {Transformation: "t"},
		"blank output":      {New: []string{"  "}, Transformation: "t"},
		"blank parent":      {New: []string{"/a"}, Transformation: "t", Parents: []string{""}},
	} {
		_, err := e.rec.Log(context.Background(), req)
		require.True(t, errors.Is(err, apperr.ErrMalformed), name)
	}
}

func TestAddSourceFile(t *testing.T) {
	e := newEnv(t)
	p := e.file(t, "raw.txt")

	h, err := e.rec.Add(context.Background(), p, AddOptions{Custom: record.Record{record.FieldSubject: "JB"}})
	require.NoError(t, err)
	require.Equal(t, record.NewLocation(p), h.Location())

	got, err := e.repo.ByPath(p)
	require.NoError(t, err)
	require.Equal(t, "JB", got[record.FieldSubject])
	require.True(t, got.Has(record.FieldHash))
}

func TestAddMissingAndTransient(t *testing.T) {
	e := newEnv(t)
	missing := filepath.Join(e.dir, "missing.txt")

	_, err := e.rec.Add(context.Background(), missing, AddOptions{})
	require.True(t, errors.Is(err, apperr.ErrMissingFile))

	h, err := e.rec.Add(context.Background(), missing, AddOptions{Transient: true})
	require.NoError(t, err)
	require.Equal(t, true, h.Record()[record.FieldTransient])
	require.Empty(t, e.stored(t))
}

func TestConcurrentCallsShareOptions(t *testing.T) {
	e := newEnv(t)
	raw := e.parent(t, "raw.txt", record.Record{record.FieldSubject: "JB"})

	const n = 8
	paths := make([]string, n)
	for i := range paths {
		paths[i] = e.file(t, fmt.Sprintf("out%d.txt", i))
	}

	start := make(chan struct{})
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			var err error
			if i%2 == 0 {
				_, err = e.rec.Add(context.Background(), p, AddOptions{})
			} else {
				_, err = e.rec.LogOne(context.Background(), p, LogRequest{Transformation: "t", Parents: []string{raw}})
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, e.stored(t), n+1)
	require.Len(t, e.seen, n)
}

func TestInterpret(t *testing.T) {
	newPath, parents := interpret([]string{"mcflirt", "-in", "/a.nii", "-out", "/b.nii"})
	require.Equal(t, "/b.nii", newPath)
	require.Equal(t, []string{"/a.nii"}, parents)

	newPath, parents = interpret([]string{"tool", "-out"})
	require.Empty(t, newPath)
	require.Nil(t, parents)
}

func TestRecordRunsAndLogsCommand(t *testing.T) {
	execCmd = fakeExecCmd
	defer func() { execCmd = exec.CommandContext }()

	e := newEnv(t)
	parent := e.parent(t, "raw.txt", record.Record{record.FieldSubject: "JB"})
	out := e.file(t, "smoothed.txt")

	h, err := e.rec.Record(context.Background(), RecordRequest{
		Command: []string{"smooth", "-in", parent, "-out", out},
	})
	require.NoError(t, err)

	got, err := e.repo.ByPath(h.Location().String())
	require.NoError(t, err)
	require.Equal(t, "smooth", got[record.FieldTransformation])
	require.Equal(t, fmt.Sprintf("smooth -in %s -out %s", parent, out), got[record.FieldCode])
	require.Equal(t, "smoothing done\n", got[record.FieldLogtext])
	require.Equal(t, "JB", got[record.FieldSubject])

	events := e.events.Events()
	require.Len(t, events, 1)
	require.Equal(t, listenertest.KindInterpretedRecording, events[0].Kind)
	require.Equal(t, out, events[0].Path)
	require.Equal(t, "smooth", events[0].Transformation)
	require.Equal(t, []string{parent}, events[0].Parents)
}

func TestRecordOverrides(t *testing.T) {
	execCmd = fakeExecCmd
	defer func() { execCmd = exec.CommandContext }()

	e := newEnv(t)
	parent := e.parent(t, "raw.txt", nil)

	h, err := e.rec.Record(context.Background(), RecordRequest{
		Command:   []string{"convert", "input", "output"},
		New:       "/tmp/override.txt",
		Parents:   []string{parent},
		Transient: true,
	})
	require.NoError(t, err)
	require.Equal(t, record.Location("/tmp/override.txt"), h.Location())
	require.Equal(t, []string{parent}, h.Record().Parents())
}

func TestRecordWithoutOutput(t *testing.T) {
	e := newEnv(t)
	_, err := e.rec.Record(context.Background(), RecordRequest{Command: []string{"ls"}})
	require.True(t, errors.Is(err, apperr.ErrMalformed))
}

// fakeExecCmd re-runs the test binary as the command.
func fakeExecCmd(ctx context.Context, command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is the fake command runner
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Print("smoothing done\n")
	os.Exit(0)
}
