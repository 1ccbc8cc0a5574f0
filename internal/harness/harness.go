package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/script"
	"github.com/porras/fake-sonic-pi/internal/testutil"
)

// DefaultRunID is used when a scenario does not fix its own run ID.
const DefaultRunID = "test-run-default"

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger for the engine and the script runtime.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh engine with a fixed run ID, so repeated runs
// produce identical results.
//
// Execution flow:
// 1. Build the definition (script or step lists)
// 2. Run the engine for the scenario's horizon with its seeds
// 3. Collect output, signals and the run error code
// 4. Evaluate assertions
//
// A failing run is not an error: it is reported through Result.RunError and
// checked by run_error assertions. Run returns an error only when the
// scenario cannot be started (for example a script that does not compile).
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	def, err := buildDefinition(ctx, scenario, cfg)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	engineOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	}
	if scenario.MaxRounds > 0 {
		engineOpts = append(engineOpts, engine.WithMaxRoundsPerBeat(scenario.MaxRounds))
	}
	eng := engine.New(def, engineOpts...)

	result := NewResult()
	runErr := eng.Run(ctx, scenario.Beats, scenario.Signals)

	result.RunID = eng.RunID()
	result.FinalBeat = eng.Beat()
	result.Output = eng.Output()
	result.Signals = eng.Signals().Records()
	result.Stats = eng.Stats()
	if runErr != nil {
		result.RunError = engine.ErrorCode(runErr)
		result.RunErrorMessage = runErr.Error()
	}

	evaluate(scenario, result)
	return result, nil
}

// Definition builds the engine definition for a scenario without running
// it, for callers that drive the engine themselves.
func Definition(ctx context.Context, scenario *Scenario, opts ...Option) (engine.Body, error) {
	cfg := &config{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(cfg)
	}
	return buildDefinition(ctx, scenario, cfg)
}

func buildDefinition(ctx context.Context, scenario *Scenario, cfg *config) (engine.Body, error) {
	if scenario.Script != "" {
		s, err := script.Load(scenario.Script, script.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("load script: %w", err)
		}
		return s.Definition(ctx), nil
	}

	return func(c *engine.Context) error {
		for _, loop := range scenario.Loops {
			if err := c.LiveLoop(loop.Name, compileSteps(loop.Steps)); err != nil {
				return fmt.Errorf("loop %q: %w", loop.Name, err)
			}
		}
		for i, block := range scenario.At {
			if err := c.At(block.Offsets, compileSteps(block.Steps)); err != nil {
				return fmt.Errorf("at[%d]: %w", i, err)
			}
		}
		return nil
	}, nil
}

// evaluate checks the run outcome and every assertion.
func evaluate(scenario *Scenario, result *Result) {
	expectsError := false
	for _, assertion := range scenario.Assertions {
		if assertion.Type == AssertRunError {
			expectsError = true
		}
	}
	if result.RunError != "" && !expectsError {
		result.AddError(fmt.Sprintf("run failed: %s", result.RunErrorMessage))
	}

	for i, assertion := range scenario.Assertions {
		if err := checkAssertion(result, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
}
