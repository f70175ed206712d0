package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeTool installs an executable shell script standing in for
// fds2ascii and returns its path.
func writeFakeTool(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fds2ascii")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestInvokeDeliversScriptAndWorkingDir(t *testing.T) {
	inputDir := t.TempDir()
	// The fake tool echoes its stdin into a file relative to its cwd,
	// mirroring how fds2ascii resolves the output filename.
	tool := writeFakeTool(t, t.TempDir(), `cat > received.txt`)

	iv := NewInvoker(tool, inputDir)
	res, err := iv.Invoke(context.Background(), "line1\nline2\n")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	got, err := os.ReadFile(filepath.Join(inputDir, "received.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(got))
}

func TestInvokeCapturesStreamsAndExitCode(t *testing.T) {
	tool := writeFakeTool(t, t.TempDir(), `echo "prompt echo"
echo "bad input" >&2
exit 3`)

	iv := NewInvoker(tool, t.TempDir())
	res, err := iv.Invoke(context.Background(), "anything\n")
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "prompt echo\n", string(res.Stdout))
	assert.Equal(t, "bad input\n", string(res.Stderr))
}

func TestInvokeMissingExecutable(t *testing.T) {
	iv := NewInvoker(filepath.Join(t.TempDir(), "no-such-tool"), t.TempDir())
	_, err := iv.Invoke(context.Background(), "x\n")
	assert.Error(t, err)
}

func TestToolErrorKeepsRecentStdoutOnly(t *testing.T) {
	var long []byte
	for i := 0; i < 300; i++ {
		long = append(long, []byte("line\n")...)
	}
	e := NewToolError(7, &ExecResult{Stdout: long, Stderr: []byte("boom"), ExitCode: 1})

	assert.Equal(t, 7, e.T)
	assert.Contains(t, e.Error(), "t=7")
	assert.Contains(t, e.Error(), "boom")
	// 80 lines kept, newline-joined.
	assert.Len(t, splitLines(e.StdoutTail), 80)
}

func TestOutputMissingError(t *testing.T) {
	e := NewOutputMissingError(12, "/in/__tmp_job_t12.csv", &ExecResult{Stdout: []byte("ok\n")})
	assert.Contains(t, e.Error(), "t=12")
	assert.Contains(t, e.Error(), "__tmp_job_t12.csv")
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
