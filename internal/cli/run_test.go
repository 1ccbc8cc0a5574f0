package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScriptText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "beat.js", beatScript)

	out, err := execute(newTestRunCommand("text", "cli-run"), path, "--beats", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Run cli-run")
	assert.Contains(t, out, "play")
	assert.Contains(t, out, "Final beat 2, 3 events, 0 signals")
}

func TestRunScriptJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "beat.js", beatScript)

	out, err := execute(newTestRunCommand("json", "cli-run"), path, "--beats", "2")
	require.NoError(t, err)

	var data RunOutput
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cli-run", data.RunID)
	assert.Equal(t, 2.0, data.Beats)
	assert.Equal(t, 2.0, data.FinalBeat)
	require.Len(t, data.Events, 3)
	assert.Equal(t, "play", string(data.Events[2].Command))
	assert.Equal(t, 1, data.Stats.Spawned)
}

func TestRunScenarioUsesOwnHorizon(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drums.yaml", drumsScenario)

	out, err := execute(newTestRunCommand("json", "cli-run"), path)
	require.NoError(t, err)

	var data RunOutput
	decodeResponse(t, out, &data)
	assert.Equal(t, 2.0, data.Beats)
	assert.Len(t, data.Events, 8) // 5 samples, 3 plays
}

func TestRunScenarioBeatsOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drums.yaml", drumsScenario)

	out, err := execute(newTestRunCommand("json", "cli-run"), path, "--beats", "1")
	require.NoError(t, err)

	var data RunOutput
	decodeResponse(t, out, &data)
	assert.Equal(t, 1.0, data.Beats)
	assert.Len(t, data.Events, 5) // samples at 0, 0.5, 1 and plays at 0, 1
}

func TestRunFailedRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "busy.yaml", busyScenario)

	out, err := execute(newTestRunCommand("json", "cli-run"), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_SUSPEND", resp.Error.Code)
}

func TestRunMissingFile(t *testing.T) {
	out, err := execute(newTestRunCommand("text", "cli-run"), "/nonexistent/loops.js")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestRunUnsupportedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "play 60")

	out, err := execute(newTestRunCommand("json", "cli-run"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnsupported, resp.Error.Code)
}

func TestRunScriptSyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.js", "live_loop(")

	out, err := execute(newTestRunCommand("text", "cli-run"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeLoadFailed)
}

func TestRunExportsToDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "beat.js", beatScript)
	db := filepath.Join(dir, "runs.db")

	out, err := execute(newTestRunCommand("text", "cli-run"), path, "--beats", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to "+db)

	listing, err := execute(NewRootCommand(), "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listing, "cli-run")
	assert.Contains(t, listing, "beat.js")
}
