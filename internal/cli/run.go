package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/harness"
	"github.com/porras/fake-sonic-pi/internal/script"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/store"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// DefaultBeats is the horizon for scripts run without --beats.
const DefaultBeats = 16

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Beats     float64
	Database  string
	MaxRounds int

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunOutput is the data payload of a run.
type RunOutput struct {
	RunID     string           `json:"run_id"`
	File      string           `json:"file"`
	Beats     float64          `json:"beats"`
	FinalBeat float64          `json:"final_beat"`
	Events    []trace.Event    `json:"events"`
	Signals   []signals.Record `json:"signals"`
	Stats     engine.Stats     `json:"stats"`
	Exported  string           `json:"exported,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a script or scenario and print its trace",
		Long: `Run a JavaScript script or a YAML/CUE scenario on the virtual clock.

The trace of recorded commands and the final signal store are printed.
Scenario assertions are not checked here; use "test" for that.

With --db the finished run is exported to a SQLite database, which the
trace command can read back.

Examples:
  fakesonicpi run loops.js --beats 8
  fakesonicpi run scenarios/drums.yaml --db ./runs.db
  fakesonicpi run loops.js --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Beats, "beats", DefaultBeats, "run horizon in beats (scenarios default to their own)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "export the run to this SQLite database")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", engine.DefaultMaxRoundsPerBeat, "scheduler rounds allowed at one beat")

	return cmd
}

// prepared is a definition ready to hand to the engine.
type prepared struct {
	def   engine.Body
	beats float64
	seeds []signals.Seed
}

func prepare(ctx context.Context, opts *RunOptions, path string, beatsSet bool, logger *slog.Logger) (*prepared, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}

	switch classify(path) {
	case KindScript:
		s, err := script.Load(path, script.WithLogger(logger))
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
		}
		return &prepared{def: s.Definition(ctx), beats: opts.Beats}, nil

	case KindScenario:
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
		}
		def, err := harness.Definition(ctx, scenario, harness.WithLogger(logger))
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
		}
		beats := scenario.Beats
		if beatsSet {
			beats = opts.Beats
		}
		return &prepared{def: def, beats: beats, seeds: scenario.Signals}, nil
	}

	return nil, &LoadError{Code: ErrCodeUnsupported, Message: "expected .js, .yaml, .yml or .cue", Path: path}
}

func runFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := prepare(ctx, opts, path, cmd.Flags().Changed("beats"), logger)
	if err != nil {
		return commandError(cmd, opts.Format, err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	eng := engine.New(p.def,
		engine.WithLogger(logger),
		engine.WithRunIDGenerator(runIDs),
		engine.WithMaxRoundsPerBeat(opts.MaxRounds),
	)

	runErr := eng.Run(ctx, p.beats, p.seeds)
	run := store.RunFromEngine(eng, filepath.Base(path), p.beats, runErr)

	out := RunOutput{
		RunID:     run.ID,
		File:      path,
		Beats:     p.beats,
		FinalBeat: float64(run.FinalBeat),
		Events:    run.Events,
		Signals:   run.Signals,
		Stats:     run.Stats,
	}

	// Export failed runs too: the partial trace is what needs inspecting.
	if opts.Database != "" && run.ID != "" {
		if err := exportRun(ctx, opts.Database, run); err != nil {
			return commandError(cmd, opts.Format, err)
		}
		out.Exported = opts.Database
		logger.Info("run exported", "run_id", run.ID, "db", opts.Database)
	}

	return outputRun(cmd, opts.Format, out, run, runErr)
}

func exportRun(ctx context.Context, path string, run store.Run) error {
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, run); err != nil {
		return WrapExitError(ExitCommandError, "failed to export run", err)
	}
	return nil
}

func outputRun(cmd *cobra.Command, format string, out RunOutput, run store.Run, runErr error) error {
	w := cmd.OutOrStdout()

	if format == "json" {
		response := CLIResponse{Status: "ok", Data: out}
		if runErr != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: run.ErrorCode, Message: run.ErrorMessage}
		}
		if err := writeJSON(w, response); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "Run %s: %s for %v beats\n\n", out.RunID, out.File, out.Beats)
		writeEvents(w, run.Events)
		fmt.Fprintln(w)
		writeSignals(w, run.Signals)
		fmt.Fprintf(w, "\nFinal beat %s, %d events, %d signals\n", run.FinalBeat, len(run.Events), len(run.Signals))
		if out.Exported != "" {
			fmt.Fprintf(w, "Exported to %s\n", out.Exported)
		}
		if runErr != nil {
			fmt.Fprintf(w, "Error [%s]: %s\n", run.ErrorCode, run.ErrorMessage)
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// commandError reports a failure that happened before or around a run.
// LoadErrors keep their code; everything else exits with ExitCommandError.
func commandError(cmd *cobra.Command, format string, err error) error {
	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}

	if format == "json" {
		if werr := writeJSON(cmd.OutOrStdout(), CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error()},
		}); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Error [%s]: %v\n", code, err)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}
