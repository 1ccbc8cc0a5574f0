package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidFiles(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "drums.yaml", drumsScenario)
	script := writeFile(t, dir, "beat.js", beatScript)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), scenario, script)
	require.NoError(t, err)
	assert.Contains(t, out, "OK   "+scenario+" (scenario drums_and_bass)")
	assert.Contains(t, out, "OK   "+script+" (script beat.js)")
}

func TestValidateInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "typo.yaml", `name: typo
description: misspelled key
beats: 1
loops: [{name: a, steps: [{sleep: 1}]}]
assertion: [{type: final_beat, beat: 1}]
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var data ValidationResult
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, data.Valid)
	require.Len(t, data.Files, 1)
	assert.Equal(t, "scenario", data.Files[0].Kind)
	assert.Equal(t, ErrCodeLoadFailed, data.Files[0].Code)
	assert.Contains(t, data.Files[0].Error, "failed to parse YAML")
}

func TestValidateMixedResults(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "beat.js", beatScript)
	bad := writeFile(t, dir, "broken.js", "live_loop(")
	unknown := writeFile(t, dir, "notes.txt", "")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), good, bad, unknown, "/nonexistent.yaml")
	require.Error(t, err)

	var data ValidationResult
	decodeResponse(t, out, &data)
	require.Len(t, data.Files, 4)
	assert.True(t, data.Files[0].Valid)
	assert.False(t, data.Files[1].Valid)
	assert.Equal(t, ErrCodeLoadFailed, data.Files[1].Code)
	assert.Equal(t, ErrCodeUnsupported, data.Files[2].Code)
	assert.Equal(t, ErrCodeNotFound, data.Files[3].Code)
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
