package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/store"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Command  string // optional - filter events to one command
}

// TraceResult is the data payload for a single exported run.
type TraceResult struct {
	RunID        string           `json:"run_id"`
	Script       string           `json:"script"`
	Horizon      float64          `json:"horizon"`
	FinalBeat    float64          `json:"final_beat"`
	ErrorCode    string           `json:"error_code,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Events       []trace.Event    `json:"events"`
	Signals      []signals.Record `json:"signals"`
	Verified     bool             `json:"verified"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read exported runs back from a database",
		Long: `Read runs exported with "run --db".

Without --run, lists every exported run with its digests. With --run,
prints the run's recorded commands and final signal store, after checking
that the stored rows still match the digests written with them.

Examples:
  fakesonicpi trace --db ./runs.db
  fakesonicpi trace --db ./runs.db --run 0190a3c4-...
  fakesonicpi trace --db ./runs.db --run 0190a3c4-... --command play --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show")
	cmd.Flags().StringVar(&opts.Command, "command", "", "only show events of this command")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := requireFile(opts.Database); err != nil {
		return commandError(cmd, opts.Format, err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(cmd, opts.Format, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, opts, st, cmd)
	}
	return showRun(ctx, opts, st, cmd)
}

func listRuns(ctx context.Context, opts *TraceOptions, st *store.Store, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return commandError(cmd, opts.Format, WrapExitError(ExitCommandError, "failed to list runs", err))
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs exported.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSCRIPT\tHORIZON\tFINAL\tEVENTS\tSIGNALS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Script, r.Horizon, r.FinalBeat, r.EventCount, r.SignalCount, r.ErrorCode)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, opts *TraceOptions, st *store.Store, cmd *cobra.Command) error {
	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return commandError(cmd, opts.Format, &LoadError{Code: ErrCodeNotFound, Message: "run not found", Path: opts.RunID})
	}
	if err != nil {
		return commandError(cmd, opts.Format, WrapExitError(ExitCommandError, "failed to read run", err))
	}

	if err := st.VerifyRun(ctx, opts.RunID); err != nil {
		var mismatch *store.DigestMismatchError
		if errors.As(err, &mismatch) {
			return commandError(cmd, opts.Format, WrapExitError(ExitFailure, "digest verification failed", err))
		}
		return commandError(cmd, opts.Format, WrapExitError(ExitCommandError, "failed to verify run", err))
	}

	events := run.Events
	if opts.Command != "" {
		events, err = st.ReadEvents(ctx, opts.RunID, opts.Command)
		if err != nil {
			return commandError(cmd, opts.Format, WrapExitError(ExitCommandError, "failed to read events", err))
		}
	}

	result := TraceResult{
		RunID:        run.ID,
		Script:       run.Script,
		Horizon:      float64(run.Horizon),
		FinalBeat:    float64(run.FinalBeat),
		ErrorCode:    run.ErrorCode,
		ErrorMessage: run.ErrorMessage,
		Events:       events,
		Signals:      run.Signals,
		Verified:     true,
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: result})
	}

	fmt.Fprintf(w, "Run %s: %s, horizon %s, final beat %s\n\n", run.ID, run.Script, run.Horizon, run.FinalBeat)
	writeEvents(w, events)
	fmt.Fprintln(w)
	writeSignals(w, run.Signals)
	if run.ErrorCode != "" {
		fmt.Fprintf(w, "\nError [%s]: %s\n", run.ErrorCode, run.ErrorMessage)
	}
	fmt.Fprintln(w, "\nDigests verified.")
	return nil
}
