package joern

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CLITool:
// - A missing installation directory is rejected
// - parse/export are invoked with the expected arguments and environment
// - A non-zero exit surfaces as *ExecError with exit code and stderr
// - Script stderr output counts as failure even with a zero exit and says so
// - The per-invocation timeout kills a hung command
//
// Tests that install executables run serially: a fork in a parallel test can
// briefly hold the script's write descriptor and fail exec with ETXTBSY.

// writeScript installs an executable shell script named name in dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func newTestTool(t *testing.T, dir string, timeout time.Duration) *CLITool {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	tool, err := NewCLITool(CLIToolConfig{Dir: dir, Timeout: timeout}, logger)
	require.NoError(t, err)
	return tool
}

func TestNewCLITool_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewCLITool(CLIToolConfig{Dir: filepath.Join(t.TempDir(), "nope")}, nil)
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, err = NewCLITool(CLIToolConfig{}, nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestCLITool_ParseArguments(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	writeScript(t, dir, "joern-parse", `echo "$@" > `+argsFile+`; echo "$JOERN_HOME" >> `+argsFile)
	tool := newTestTool(t, dir, 0)

	require.NoError(t, tool.Parse(context.Background(), "/src/a.c", "/out/a.bin"))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "/src/a.c --language c --output /out/a.bin", lines[0])
	assert.Equal(t, dir, lines[1])
}

func TestCLITool_ExportFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "joern-export", `echo "partial" ; echo "bad graph" >&2 ; exit 3`)
	tool := newTestTool(t, dir, 0)

	err := tool.Export(context.Background(), "/out/a.bin", ReprPDG, "/out/a")
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Equal(t, "partial", strings.TrimSpace(execErr.Stdout))
	assert.Equal(t, "bad graph", strings.TrimSpace(execErr.Stderr))
	assert.Contains(t, execErr.Error(), "bad graph")
	assert.Contains(t, execErr.Command, "--repr")
}

func TestCLITool_ScriptStderrIsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "joern", `echo "$@" ; echo "warning: node missing" >&2`)
	tool := newTestTool(t, dir, 0)

	err := tool.RunScript(context.Background(), "/s/lineinfo.sc", map[string]string{
		"outFile": "/o/a.json",
		"cpgFile": "/o/a.bin",
	})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 0, execErr.ExitCode)
	assert.ErrorIs(t, err, ErrStderrOutput)
	assert.Contains(t, err.Error(), "wrote to stderr: warning: node missing")
	assert.NotContains(t, err.Error(), "exited with code")
	assert.Equal(t,
		"--script /s/lineinfo.sc --param cpgFile=/o/a.bin --param outFile=/o/a.json",
		strings.TrimSpace(execErr.Stdout))
}

func TestCLITool_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "joern-parse", `exec sleep 5`)
	tool := newTestTool(t, dir, 100*time.Millisecond)

	start := time.Now()
	err := tool.Parse(context.Background(), "a.c", "a.bin")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Contains(t, err.Error(), "exited with code")
}
