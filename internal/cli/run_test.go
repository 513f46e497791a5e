package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aretw0/shastarun/internal/testutils"
	"github.com/aretw0/shastarun/pkg/adapters/file"
	"github.com/aretw0/shastarun/pkg/conf"
	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/aretw0/shastarun/pkg/observability"
	"github.com/aretw0/shastarun/pkg/pagemem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workerEnv = "SHASTARUN_CLI_TEST_WORKER"

// TestMain lets the test binary act as the worker.
func TestMain(m *testing.M) {
	switch os.Getenv(workerEnv) {
	case "":
		os.Exit(m.Run())
	case "ok":
		_ = os.WriteFile("worker.out", []byte(strings.Join(os.Args[1:], " ")), 0o644)
		os.Exit(0)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

type env struct {
	dir      string
	settings string
	input    string
	output   string
	mount    string
	ledger   string
}

func newEnv(t *testing.T, worker string) *env {
	t.Helper()
	t.Setenv(workerEnv, worker)

	dir := t.TempDir()
	exe, err := os.Executable()
	require.NoError(t, err)
	confDir, err := filepath.Abs(filepath.Join("testdata", "conf"))
	require.NoError(t, err)

	e := &env{
		dir:      dir,
		settings: filepath.Join(dir, "shastarun.yaml"),
		input:    testutils.WriteSequenceFile(t, dir),
		output:   filepath.Join(dir, "output"),
		mount:    testutils.SetupPageMemory(t).MountPoint,
		ledger:   filepath.Join(dir, "runs"),
	}

	yaml := fmt.Sprintf(`confDir: %s
outputDir: %s
worker:
  executable: %s
pageMemory:
  mountPoint: %s
ledger:
  path: %s
log:
  level: error
`, confDir, e.output, exe, e.mount, e.ledger)
	require.NoError(t, os.WriteFile(e.settings, []byte(yaml), 0o644))
	return e
}

func (e *env) global(stderr *bytes.Buffer) GlobalOptions {
	return GlobalOptions{SettingsPath: e.settings, Stderr: stderr}
}

func (e *env) runDir(t *testing.T) string {
	t.Helper()
	entries, err := os.ReadDir(e.output)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return filepath.Join(e.output, entries[0].Name())
}

func TestExecute_SaveAndCleanup(t *testing.T) {
	e := newEnv(t, "ok")
	var stderr bytes.Buffer

	k := 15
	err := Execute(RunOptions{
		GlobalOptions: e.global(&stderr),
		Input:         e.input,
		Overrides:     conf.Overrides{K: &k},
		Save:          true,
		Cleanup:       true,
	})
	require.NoError(t, err)

	runDir := e.runDir(t)
	assert.FileExists(t, filepath.Join(runDir, conf.FileName))
	assert.FileExists(t, filepath.Join(runDir, pagemem.SnapshotName, "Markers"))
	assert.FileExists(t, filepath.Join(runDir, observability.TextfileName))
	assert.NoDirExists(t, filepath.Join(e.mount, pagemem.DataDirName))

	args, err := os.ReadFile(filepath.Join(runDir, "worker.out"))
	require.NoError(t, err)
	assert.Equal(t, e.input, string(args))

	written, err := conf.Load(filepath.Join(runDir, conf.FileName))
	require.NoError(t, err)
	got, _ := written.Get("Kmers", "k")
	assert.Equal(t, "15", got)

	out := stderr.String()
	assert.Contains(t, out, "Saving page memory... Done")
	assert.Contains(t, out, "Cleaning up page memory... Done")
	assert.Contains(t, out, "Run directory: "+runDir)

	ids, err := file.New(e.ledger).List(t.Context())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	rec, err := file.New(e.ledger).Load(t.Context(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, rec.State)
	assert.True(t, rec.Saved)
	assert.True(t, rec.Cleaned)
}

func TestExecute_OverridesFileLosesToFlags(t *testing.T) {
	e := newEnv(t, "ok")
	path := filepath.Join(e.dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k: 12\nminCoverage: 4\n"), 0o644))

	k := 14
	err := Execute(RunOptions{
		GlobalOptions: e.global(&bytes.Buffer{}),
		Input:         e.input,
		OverridesFile: path,
		Overrides:     conf.Overrides{K: &k},
	})
	require.NoError(t, err)

	written, err := conf.Load(filepath.Join(e.runDir(t), conf.FileName))
	require.NoError(t, err)
	got, _ := written.Get("Kmers", "k")
	assert.Equal(t, "14", got)
	got, _ = written.Get("MarkerGraph", "minCoverage")
	assert.Equal(t, "4", got)

	assert.DirExists(t, filepath.Join(e.mount, pagemem.DataDirName), "no cleanup unless requested")
}

func TestExecute_Errors(t *testing.T) {
	e := newEnv(t, "ok")

	err := Execute(RunOptions{GlobalOptions: e.global(&bytes.Buffer{}), Input: filepath.Join(e.dir, "missing.fa")})
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	assert.Equal(t, 1, ExitCode(err))

	caller := "Modal"
	err = Execute(RunOptions{
		GlobalOptions: e.global(&bytes.Buffer{}),
		Input:         e.input,
		Overrides:     conf.Overrides{ConsensusCaller: &caller},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
	assert.Equal(t, 2, ExitCode(err))
	assert.NoDirExists(t, e.output, "no run directory before the configuration is valid")

	err = Execute(RunOptions{
		GlobalOptions: GlobalOptions{SettingsPath: filepath.Join(e.dir, "nope.yaml")},
		Input:         e.input,
	})
	assert.Error(t, err)

	err = Execute(RunOptions{
		GlobalOptions: GlobalOptions{SettingsPath: e.settings, LogLevel: "loud"},
		Input:         e.input,
	})
	assert.Equal(t, 2, ExitCode(err))
}

func (e *env) rewriteSettings(t *testing.T, old, replacement string) {
	t.Helper()
	data, err := os.ReadFile(e.settings)
	require.NoError(t, err)
	require.Contains(t, string(data), old)
	require.NoError(t, os.WriteFile(e.settings, []byte(strings.Replace(string(data), old, replacement, 1)), 0o644))
}

func TestExecute_MemoryLedger(t *testing.T) {
	e := newEnv(t, "ok")
	e.rewriteSettings(t, "ledger:\n", "ledger:\n  mode: memory\n")

	err := Execute(RunOptions{
		GlobalOptions: e.global(&bytes.Buffer{}),
		Input:         e.input,
		Cleanup:       true,
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(e.runDir(t), conf.FileName))
	assert.NoDirExists(t, e.ledger, "the memory ledger writes nothing to disk")
}

func TestExecute_InvalidUnmountCommand(t *testing.T) {
	e := newEnv(t, "ok")
	e.rewriteSettings(t, "pageMemory:\n", "pageMemory:\n  unmountCommand: 'sudo \"umount'\n")

	err := Execute(RunOptions{GlobalOptions: e.global(&bytes.Buffer{}), Input: e.input})
	assert.ErrorContains(t, err, "invalid unmount command")
	assert.NoDirExists(t, e.output)
}

func TestExecute_Interrupted(t *testing.T) {
	e := newEnv(t, "sleep")

	codes := make(chan int, 1)
	exit = func(code int) { codes <- code }
	defer func() { exit = os.Exit }()

	go func() {
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if entries, _ := os.ReadDir(e.output); len(entries) == 1 {
				time.Sleep(200 * time.Millisecond)
				_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	var stderr bytes.Buffer
	err := Execute(RunOptions{
		GlobalOptions: e.global(&stderr),
		Input:         e.input,
		Save:          true,
		Cleanup:       false,
	})
	require.Error(t, err)
	assert.Equal(t, 130, ExitCode(err))
	assert.NoDirExists(t, filepath.Join(e.mount, pagemem.DataDirName), "teardown finished before Execute returned")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, codes, "the command exits with the returned code, not from the signal handler")

	runDir := e.runDir(t)
	assert.NoDirExists(t, filepath.Join(runDir, pagemem.SnapshotName), "interrupted runs are not saved")
	assert.NoDirExists(t, filepath.Join(e.mount, pagemem.DataDirName), "interrupted runs always clean up")

	ids, err := file.New(e.ledger).List(t.Context())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	rec, err := file.New(e.ledger).Load(t.Context(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StateInterrupted, rec.State)
}

func TestMaintenanceCommands(t *testing.T) {
	e := newEnv(t, "ok")
	runDir := filepath.Join(e.dir, "run_manual")
	require.NoError(t, os.Mkdir(runDir, 0o755))

	var stderr bytes.Buffer
	require.NoError(t, Save(SaveOptions{GlobalOptions: e.global(&stderr), RunDir: runDir}))
	assert.FileExists(t, filepath.Join(runDir, pagemem.SnapshotName, "Markers"))
	assert.Contains(t, stderr.String(), "Saving page memory... Done")

	err := Save(SaveOptions{GlobalOptions: e.global(&stderr), RunDir: filepath.Join(e.dir, "absent")})
	assert.Equal(t, 2, ExitCode(err))

	require.NoError(t, Cleanup(e.global(&stderr)))
	assert.NoDirExists(t, filepath.Join(e.mount, pagemem.DataDirName))
	assert.Contains(t, stderr.String(), "Cleaning up page memory... Done")
}

func TestListRuns(t *testing.T) {
	e := newEnv(t, "ok")
	require.NoError(t, Execute(RunOptions{GlobalOptions: e.global(&bytes.Buffer{}), Input: e.input}))

	var out bytes.Buffer
	require.NoError(t, ListRuns(ListOptions{GlobalOptions: e.global(&bytes.Buffer{})}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], string(domain.StateCompleted))
	assert.Contains(t, lines[1], e.runDir(t))

	out.Reset()
	require.NoError(t, ListRuns(ListOptions{GlobalOptions: e.global(&bytes.Buffer{}), JSON: true}, &out))
	assert.Contains(t, out.String(), `"state":"completed"`)
}
