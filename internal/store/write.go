package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// ErrRunExists is returned by WriteRun when the run ID is already stored
// with different contents.
var ErrRunExists = errors.New("run already exported with different contents")

// Run is a finished run as exported to the database.
type Run struct {
	ID           string
	Script       string
	Horizon      ir.Beat
	FinalBeat    ir.Beat
	ErrorCode    string
	ErrorMessage string
	Stats        engine.Stats
	Events       []trace.Event
	Signals      []signals.Record
}

// RunFromEngine collects a finished engine's results. runErr is the value
// Run returned.
func RunFromEngine(eng *engine.Engine, script string, horizon float64, runErr error) Run {
	run := Run{
		ID:        eng.RunID(),
		Script:    script,
		Horizon:   ir.Beat(horizon),
		FinalBeat: eng.Beat(),
		Stats:     eng.Stats(),
		Events:    eng.Output(),
		Signals:   eng.Signals().Records(),
	}
	if runErr != nil {
		run.ErrorCode = engine.ErrorCode(runErr)
		run.ErrorMessage = runErr.Error()
	}
	return run
}

// WriteRun exports a run in a single transaction.
//
// Writing the same run twice is a no-op. Writing different contents under
// an existing ID returns ErrRunExists; digests decide what "same" means.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	traceDigest, err := trace.Digest(run.Events)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	signalsDigest, err := signals.DigestRecords(run.Signals)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("write run %s: marshal stats: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	var existingTrace, existingSignals string
	err = tx.QueryRowContext(ctx,
		`SELECT trace_digest, signals_digest FROM runs WHERE id = ?`, run.ID,
	).Scan(&existingTrace, &existingSignals)
	switch {
	case err == nil:
		if existingTrace == traceDigest && existingSignals == signalsDigest {
			return nil
		}
		return fmt.Errorf("write run %s: %w", run.ID, ErrRunExists)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write run %s: check existing: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, script, horizon, final_beat, error_code, error_message,
		 event_count, signal_count, trace_digest, signals_digest, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Script,
		float64(run.Horizon),
		float64(run.FinalBeat),
		run.ErrorCode,
		run.ErrorMessage,
		len(run.Events),
		len(run.Signals),
		traceDigest,
		signalsDigest,
		string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for _, ev := range run.Events {
		args, err := marshalArgs(ev.Args)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, ev.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trace_events (run_id, seq, beat, command, args)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, ev.Seq, float64(ev.Beat), string(ev.Command), args)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, ev.Seq, err)
		}
	}

	for i, rec := range run.Signals {
		value, err := marshalValue(rec.Value)
		if err != nil {
			return fmt.Errorf("write run %s: signal %d: %w", run.ID, i, err)
		}
		consumers := rec.Consumers
		if consumers == nil {
			consumers = []string{}
		}
		consumersJSON, err := marshalValue(consumers)
		if err != nil {
			return fmt.Errorf("write run %s: signal %d: %w", run.ID, i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO signals (run_id, position, beat, name, value, consumers)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, float64(rec.Beat), rec.Name, value, consumersJSON)
		if err != nil {
			return fmt.Errorf("write run %s: signal %d: %w", run.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}
