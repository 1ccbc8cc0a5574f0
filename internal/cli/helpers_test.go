package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/porras/fake-sonic-pi/internal/engine"
)

const drumsScenario = `name: drums_and_bass
description: two loops at different rates
beats: 2
loops:
  - name: drums
    steps:
      - {command: sample, args: [bd_haus]}
      - {sleep: 0.5}
  - name: bass
    steps:
      - {command: play, args: [40]}
      - {sleep: 1}
assertions:
  - {type: output_at, command: sample, args: [bd_haus], beats: [0, 0.5, 1, 1.5]}
  - {type: output_count, command: play, count: 3}
`

const busyScenario = `name: busy
description: never sleeps
beats: 4
loops:
  - name: busy
    steps:
      - {command: play, args: [60]}
assertions:
  - {type: run_error, code: NO_SUSPEND}
`

const beatScript = `live_loop("beat", function* () {
  play(60);
  yield sleep(1);
});
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// newTestRunCommand returns a run command with a fixed run ID.
func newTestRunCommand(format, runID string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format, LogFormat: "text"},
		RunIDs:      engine.NewFixedGenerator(runID),
	})
}

// decodeResponse decodes a CLIResponse, keeping Data raw for a typed decode.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
