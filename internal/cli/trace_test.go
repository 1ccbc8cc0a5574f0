package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porras/fake-sonic-pi/internal/store"
)

// exportTestRun runs the drums scenario with a fixed ID into a new database.
func exportTestRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "drums.yaml", drumsScenario)
	db := filepath.Join(dir, "runs.db")
	_, err := execute(newTestRunCommand("text", "run-1"), path, "--db", db)
	require.NoError(t, err)
	return db
}

func TestTraceRequiresDB(t *testing.T) {
	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceMissingDatabase(t *testing.T) {
	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "/nonexistent/runs.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestTraceListRuns(t *testing.T) {
	db := exportTestRun(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var runs []store.RunSummary
	decodeResponse(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "drums.yaml", runs[0].Script)
	assert.Equal(t, 8, runs[0].EventCount)
}

func TestTraceShowRun(t *testing.T) {
	db := exportTestRun(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--run", "run-1")
	require.NoError(t, err)

	var result TraceResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Verified)
	assert.Equal(t, 2.0, result.FinalBeat)
	assert.Len(t, result.Events, 8)
}

func TestTraceShowRunText(t *testing.T) {
	db := exportTestRun(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1: drums.yaml, horizon 2, final beat 2")
	assert.Contains(t, out, "Digests verified.")
}

func TestTraceFilterByCommand(t *testing.T) {
	db := exportTestRun(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", db, "--run", "run-1", "--command", "play")
	require.NoError(t, err)

	var result TraceResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Events, 3)
	for _, ev := range result.Events {
		assert.Equal(t, "play", string(ev.Command))
	}
}

func TestTraceUnknownRun(t *testing.T) {
	db := exportTestRun(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestTraceEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs exported.")
}
