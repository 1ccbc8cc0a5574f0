package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// Scenario describes one scripted run and what it must produce.
//
// The script is given either as a JavaScript file (Script) or as step lists
// (Loops and At). Scenarios are written in YAML or CUE.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Beats is the run horizon.
	Beats float64 `yaml:"beats" json:"beats"`

	// Signals are seeded before the run starts.
	Signals []signals.Seed `yaml:"signals,omitempty" json:"signals,omitempty"`

	// Script is a JavaScript file, relative to the scenario file.
	Script string `yaml:"script,omitempty" json:"script,omitempty"`

	// Loops are live loops declared as step lists.
	Loops []Loop `yaml:"loops,omitempty" json:"loops,omitempty"`

	// At are one-shot blocks declared as step lists.
	At []AtBlock `yaml:"at,omitempty" json:"at,omitempty"`

	// Assertions validate the output, the signals and the run outcome.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`

	// RunID is a fixed run ID for deterministic output.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty" json:"run_id,omitempty"`

	// MaxRounds overrides the engine's per-beat round limit.
	MaxRounds int `yaml:"max_rounds,omitempty" json:"max_rounds,omitempty"`
}

// Loop is a live loop whose body is a list of steps.
type Loop struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// AtBlock runs its steps once at each offset.
type AtBlock struct {
	Offsets []float64 `yaml:"offsets" json:"offsets"`
	Steps   []Step    `yaml:"steps" json:"steps"`
}

// Step is one statement of a step-list body. Exactly one kind is set:
//   - command (+ args): record a command
//   - sleep: sleep n beats
//   - sync: wait for a signal; its value is available to later steps as "$sync"
//   - cue / set (+ value): emit a signal
//   - at (+ steps): one-shot blocks relative to the current beat
//   - live_loop (+ steps): a nested live loop
//   - stop: park the task forever
//
// Args and values may reference "$sync" or "$get:<name>".
type Step struct {
	Command  string    `yaml:"command,omitempty" json:"command,omitempty"`
	Args     []any     `yaml:"args,omitempty" json:"args,omitempty"`
	Sleep    *float64  `yaml:"sleep,omitempty" json:"sleep,omitempty"`
	Sync     string    `yaml:"sync,omitempty" json:"sync,omitempty"`
	Cue      string    `yaml:"cue,omitempty" json:"cue,omitempty"`
	Set      string    `yaml:"set,omitempty" json:"set,omitempty"`
	Value    any       `yaml:"value,omitempty" json:"value,omitempty"`
	At       []float64 `yaml:"at,omitempty" json:"at,omitempty"`
	LiveLoop string    `yaml:"live_loop,omitempty" json:"live_loop,omitempty"`
	Steps    []Step    `yaml:"steps,omitempty" json:"steps,omitempty"`
	Stop     bool      `yaml:"stop,omitempty" json:"stop,omitempty"`
}

// Step kinds, as reported by Step.Kind.
const (
	StepCommand  = "command"
	StepSleep    = "sleep"
	StepSync     = "sync"
	StepCue      = "cue"
	StepSet      = "set"
	StepAt       = "at"
	StepLiveLoop = "live_loop"
	StepStop     = "stop"
)

// Kind returns the step's kind, or an error unless exactly one kind is set.
func (s Step) Kind() (string, error) {
	var kinds []string
	if s.Command != "" {
		kinds = append(kinds, StepCommand)
	}
	if s.Sleep != nil {
		kinds = append(kinds, StepSleep)
	}
	if s.Sync != "" {
		kinds = append(kinds, StepSync)
	}
	if s.Cue != "" {
		kinds = append(kinds, StepCue)
	}
	if s.Set != "" {
		kinds = append(kinds, StepSet)
	}
	if s.At != nil {
		kinds = append(kinds, StepAt)
	}
	if s.LiveLoop != "" {
		kinds = append(kinds, StepLiveLoop)
	}
	if s.Stop {
		kinds = append(kinds, StepStop)
	}
	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("step has no kind")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("step mixes kinds %v", kinds)
	}
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_at": command (with args) was recorded at the given beats
	// - "output_count": command (with args) was recorded exactly Count times
	// - "signal_at": a signal with Name exists at Beat (and has Value, if set)
	// - "final_beat": the run ended on Beat
	// - "run_error": the run failed with error Code
	Type string `yaml:"type" json:"type"`

	// Command and Args select recorded events (output_at, output_count).
	// With no args every invocation of the command matches.
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []any  `yaml:"args,omitempty" json:"args,omitempty"`

	// Beats lists expected beats (output_at). By default each listed beat
	// must occur; with Exact the matching beats must be exactly this list.
	Beats []float64 `yaml:"beats,omitempty" json:"beats,omitempty"`
	Exact bool      `yaml:"exact,omitempty" json:"exact,omitempty"`

	// Count is the expected number of matches (output_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Name, Beat and Value describe a signal (signal_at). Beat is also the
	// expected end beat for final_beat.
	Name  string   `yaml:"name,omitempty" json:"name,omitempty"`
	Beat  *float64 `yaml:"beat,omitempty" json:"beat,omitempty"`
	Value any      `yaml:"value,omitempty" json:"value,omitempty"`

	// Code is the expected error code (run_error), e.g. "NO_SUSPEND".
	Code string `yaml:"code,omitempty" json:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputAt    = "output_at"
	AssertOutputCount = "output_count"
	AssertSignalAt    = "signal_at"
	AssertFinalBeat   = "final_beat"
	AssertRunError    = "run_error"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated as CUE; everything else is parsed as YAML.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields. A relative script path is
// resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if filepath.Ext(path) == ".cue" {
		scenario, err = parseCUE(path, data)
	} else {
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if scenario.Script != "" && !filepath.IsAbs(scenario.Script) {
		scenario.Script = filepath.Join(filepath.Dir(path), scenario.Script)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// parseCUE evaluates a CUE scenario, requires it to be concrete, and decodes
// its JSON export.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}

	var scenario Scenario
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Beats < 0 {
		return fmt.Errorf("beats must be non-negative")
	}

	if s.Script == "" && len(s.Loops) == 0 && len(s.At) == 0 {
		return fmt.Errorf("one of script, loops or at is required")
	}
	if s.Script != "" && (len(s.Loops) > 0 || len(s.At) > 0) {
		return fmt.Errorf("script cannot be combined with loops or at")
	}
	if s.Script != "" {
		if _, err := os.Stat(s.Script); os.IsNotExist(err) {
			return fmt.Errorf("script file not found: %s", s.Script)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, seed := range s.Signals {
		if seed.Name == "" {
			return fmt.Errorf("signals[%d]: name is required", i)
		}
		if !seed.Beat.Finite() {
			return fmt.Errorf("signals[%d]: beat must be a finite non-negative number", i)
		}
	}

	for i, loop := range s.Loops {
		if loop.Name == "" {
			return fmt.Errorf("loops[%d]: name is required", i)
		}
		if err := validateSteps(fmt.Sprintf("loops[%d]", i), loop.Steps); err != nil {
			return err
		}
	}

	for i, block := range s.At {
		if len(block.Offsets) == 0 {
			return fmt.Errorf("at[%d]: offsets are required", i)
		}
		if err := validateSteps(fmt.Sprintf("at[%d]", i), block.Steps); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateSteps(where string, steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("%s: steps list is required and must be non-empty", where)
	}
	for i, step := range steps {
		at := fmt.Sprintf("%s.steps[%d]", where, i)
		kind, err := step.Kind()
		if err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}
		switch kind {
		case StepCommand:
			if _, err := trace.ParseCommand(step.Command); err != nil {
				return fmt.Errorf("%s: %w", at, err)
			}
		case StepAt, StepLiveLoop:
			if err := validateSteps(at, step.Steps); err != nil {
				return err
			}
			continue
		}
		if len(step.Steps) > 0 {
			return fmt.Errorf("%s: steps only apply to at and live_loop", at)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputAt:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for output_at", index)
		}
		if len(a.Beats) == 0 && !a.Exact {
			return fmt.Errorf("assertions[%d]: beats list is required for output_at", index)
		}
	case AssertOutputCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for output_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for output_count", index)
		}
	case AssertSignalAt:
		if a.Name == "" || a.Beat == nil {
			return fmt.Errorf("assertions[%d]: name and beat are required for signal_at", index)
		}
	case AssertFinalBeat:
		if a.Beat == nil {
			return fmt.Errorf("assertions[%d]: beat is required for final_beat", index)
		}
	case AssertRunError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for run_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Command != "" {
		if _, err := trace.ParseCommand(a.Command); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	return nil
}
