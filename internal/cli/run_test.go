package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdsbatch/internal/journal"
)

// fds2asciiStandIn behaves like the real tool for the black-box path:
// it reads the whole answer block from stdin and writes a CSV named on
// the final line, relative to its working directory.
const fds2asciiStandIn = `#!/bin/sh
out=""
while IFS= read -r line; do out="$line"; done
printf 't,val\n0.0,1.0\n' > "$out"
`

func executeFixture(t *testing.T) Invocation {
	t.Helper()
	inputDir := t.TempDir()
	tool := filepath.Join(t.TempDir(), "fds2ascii")
	require.NoError(t, os.WriteFile(tool, []byte(fds2asciiStandIn), 0o755))
	return Invocation{
		ToolPath:   tool,
		InputDir:   inputDir,
		OutputRoot: t.TempDir(),
		CHID:       "run42",
		StartT:     0,
		EndT:       2,
		VarCount:   3,
		Groups:     []int{1, 2},
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	inv := executeFixture(t)
	var out bytes.Buffer

	res, err := Execute(context.Background(), inv, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, res.ExitCode)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 6, res.Summary.Generated)

	for _, rel := range []string{"group_1/0.csv", "group_1/2.csv", "group_2/1.csv"} {
		assert.FileExists(t, filepath.Join(inv.OutputRoot, rel))
	}

	// No temp files survive a committed batch.
	entries, err := os.ReadDir(inv.InputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The run was journaled and finalized.
	ids, err := journal.ListRunIDs(inv.OutputRoot)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	meta, err := journal.LoadRun(inv.OutputRoot, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "succeeded", meta.Status)
	assert.Equal(t, 6, meta.Generated)
}

func TestExecuteIsIdempotent(t *testing.T) {
	inv := executeFixture(t)

	_, err := Execute(context.Background(), inv, nil, &bytes.Buffer{})
	require.NoError(t, err)

	// Second run skips everything; artifacts keep their content.
	marker := filepath.Join(inv.OutputRoot, "group_1", "1.csv")
	require.NoError(t, os.WriteFile(marker, []byte("keep me"), 0o644))

	res, err := Execute(context.Background(), inv, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Summary.Skipped)
	assert.Equal(t, 0, res.Summary.Generated)

	got, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
}

func TestExecuteFailingToolAbortsWithBatchFailure(t *testing.T) {
	inv := executeFixture(t)
	require.NoError(t, os.WriteFile(inv.ToolPath, []byte("#!/bin/sh\necho 'STOP: bad slice' \nexit 2\n"), 0o755))

	res, err := Execute(context.Background(), inv, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, ExitBatchFailure, res.ExitCode)
	assert.Contains(t, err.Error(), "bad slice")
	assert.NoFileExists(t, filepath.Join(inv.OutputRoot, "group_1", "0.csv"))

	// The journal records the failed run.
	ids, err := journal.ListRunIDs(inv.OutputRoot)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	meta, err := journal.LoadRun(inv.OutputRoot, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "failed", meta.Status)
}

func TestExecuteRejectsInvalidInvocationBeforeRunning(t *testing.T) {
	inv := executeFixture(t)
	inv.VarCount = 0

	res, err := Execute(context.Background(), inv, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInvocation, res.ExitCode)

	// Nothing ran, nothing was journaled.
	ids, err := journal.ListRunIDs(inv.OutputRoot)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
