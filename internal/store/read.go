package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID            string  `json:"id"`
	Script        string  `json:"script"`
	Horizon       ir.Beat `json:"horizon"`
	FinalBeat     ir.Beat `json:"final_beat"`
	ErrorCode     string  `json:"error_code,omitempty"`
	EventCount    int     `json:"event_count"`
	SignalCount   int     `json:"signal_count"`
	TraceDigest   string  `json:"trace_digest"`
	SignalsDigest string  `json:"signals_digest"`
}

// ListRuns returns every exported run in export order.
//
// Returns an empty slice (not nil) if the database holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script, horizon, final_beat, error_code,
		       event_count, signal_count, trace_digest, signals_digest
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r                  RunSummary
			horizon, finalBeat float64
		)
		if err := rows.Scan(&r.ID, &r.Script, &horizon, &finalBeat, &r.ErrorCode,
			&r.EventCount, &r.SignalCount, &r.TraceDigest, &r.SignalsDigest); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Horizon = ir.Beat(horizon)
		r.FinalBeat = ir.Beat(finalBeat)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun loads a complete run. Events are ordered by seq and signals by
// their position in the signal store.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	var (
		run                Run
		horizon, finalBeat float64
		statsJSON          string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, script, horizon, final_beat, error_code, error_message, stats
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Script, &horizon, &finalBeat, &run.ErrorCode, &run.ErrorMessage, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	run.Horizon = ir.Beat(horizon)
	run.FinalBeat = ir.Beat(finalBeat)
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("read run %s: stats: %w", id, err)
	}

	run.Events, err = s.ReadEvents(ctx, id, "")
	if err != nil {
		return nil, err
	}
	run.Signals, err = s.readSignals(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ReadEvents returns the recorded events of a run, optionally only those of
// one command. An empty command returns every event.
func (s *Store) ReadEvents(ctx context.Context, runID, command string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, beat, command, args
		FROM trace_events
		WHERE run_id = ? AND (? = '' OR command = ?)
		ORDER BY seq ASC
	`, runID, command, command)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var (
			ev       trace.Event
			beat     float64
			cmd      string
			argsJSON string
		)
		if err := rows.Scan(&ev.Seq, &beat, &cmd, &argsJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Beat = ir.Beat(beat)
		ev.Command = trace.Command(cmd)
		if ev.Args, err = unmarshalArgs(argsJSON); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) readSignals(ctx context.Context, runID string) ([]signals.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT beat, name, value, consumers
		FROM signals
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	records := []signals.Record{}
	for rows.Next() {
		var (
			rec                      signals.Record
			beat                     float64
			valueJSON, consumersJSON string
		)
		if err := rows.Scan(&beat, &rec.Name, &valueJSON, &consumersJSON); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		rec.Beat = ir.Beat(beat)
		if rec.Value, err = unmarshalValue(valueJSON); err != nil {
			return nil, fmt.Errorf("signal %q: %w", rec.Name, err)
		}
		if rec.Consumers, err = unmarshalStrings(consumersJSON); err != nil {
			return nil, fmt.Errorf("signal %q: %w", rec.Name, err)
		}
		if len(rec.Consumers) == 0 {
			rec.Consumers = nil
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return records, nil
}
