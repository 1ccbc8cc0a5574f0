package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOptions(format string) *TestOptions {
	return &TestOptions{RootOptions: &RootOptions{Format: format, LogFormat: "text"}}
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var data TestResult
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, data.Total)
}

func TestTestCommandPassAndFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drums.yaml", drumsScenario)
	writeFile(t, dir, "wrong.yaml", `name: wrong
description: expects a play that never happens
beats: 1
loops:
  - name: a
    steps: [{command: play, args: [60]}, {sleep: 1}]
assertions:
  - {type: output_at, command: play, args: [61], beats: [0]}
`)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "PASS drums_and_bass")
	assert.Contains(t, out, "FAIL wrong")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drums.yaml", drumsScenario)
	writeFile(t, dir, "busy.yaml", busyScenario)

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir, "--filter", "bu*")
	require.NoError(t, err)

	var data TestResult
	decodeResponse(t, out, &data)
	require.Len(t, data.Scenarios, 1)
	assert.Equal(t, "busy", data.Scenarios[0].Name)
	assert.True(t, data.Scenarios[0].Pass)
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drums.yaml", drumsScenario)
	goldenPath := filepath.Join(dir, "golden", "drums_and_bass.golden")

	// First run creates the golden file.
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"drums_and_bass"`)

	// Second run matches it.
	out, err = execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	var data TestResult
	decodeResponse(t, out, &data)
	require.Len(t, data.Scenarios, 1)
	assert.Equal(t, "match", data.Scenarios[0].Golden)

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale":true}`), 0644))
	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestRunScenario_LoadError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "name: [unclosed")

	res := runScenario(t.Context(), newTestOptions("text"), path)
	assert.False(t, res.Pass)
	assert.Equal(t, "bad.yaml", res.Name)
	assert.Contains(t, res.Errors[0], "failed to load scenario")
}

func TestGoldenFilePath(t *testing.T) {
	got := goldenFilePath(filepath.Join("scenarios", "drums.yaml"), "drums_and_bass")
	assert.Equal(t, filepath.Join("scenarios", "golden", "drums_and_bass.golden"), got)
}
