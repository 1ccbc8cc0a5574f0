package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// Snapshot is the golden form of a scenario run: everything a script
// observably did, in canonical JSON.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to a map[string]any for canonical JSON
// serialization. Stats are left out: they describe how the engine got there,
// not what the script did.
func (s *Snapshot) toCanonicalMap() map[string]any {
	output := make([]any, len(s.Result.Output))
	for i, ev := range s.Result.Output {
		output[i] = map[string]any{
			"seq":     ev.Seq,
			"beat":    ev.Beat,
			"command": string(ev.Command),
			"args":    ev.Args,
		}
	}

	sigs := make([]any, len(s.Result.Signals))
	for i, sig := range s.Result.Signals {
		entry := map[string]any{
			"beat":  sig.Beat,
			"name":  sig.Name,
			"value": sig.Value,
		}
		if len(sig.Consumers) > 0 {
			entry["consumers"] = sig.Consumers
		}
		sigs[i] = entry
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.Result.RunID,
		"final_beat":    s.Result.FinalBeat,
		"output":        output,
		"signals":       sigs,
	}
	if s.Result.RunError != "" {
		result["run_error"] = s.Result.RunError
	}
	return result
}

// MarshalSnapshot returns the canonical JSON snapshot of a result. The CLI
// writes and compares golden files with it.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: scenarioName, Result: result}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares a result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
