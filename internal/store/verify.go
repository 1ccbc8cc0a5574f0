package store

import (
	"context"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// DigestMismatchError reports stored rows that no longer hash to the digest
// recorded with the run.
type DigestMismatchError struct {
	RunID    string
	Table    string
	Stored   string
	Computed string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("run %s: %s digest mismatch: stored %s, computed %s",
		e.RunID, e.Table, e.Stored, e.Computed)
}

// VerifyRun re-reads a run and recomputes both digests from its rows.
func (s *Store) VerifyRun(ctx context.Context, id string) error {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return err
	}

	var storedTrace, storedSignals string
	if err := s.db.QueryRowContext(ctx,
		`SELECT trace_digest, signals_digest FROM runs WHERE id = ?`, id,
	).Scan(&storedTrace, &storedSignals); err != nil {
		return fmt.Errorf("verify run %s: %w", id, err)
	}

	traceDigest, err := trace.Digest(run.Events)
	if err != nil {
		return fmt.Errorf("verify run %s: %w", id, err)
	}
	if traceDigest != storedTrace {
		return &DigestMismatchError{RunID: id, Table: "trace_events", Stored: storedTrace, Computed: traceDigest}
	}

	signalsDigest, err := signals.DigestRecords(run.Signals)
	if err != nil {
		return fmt.Errorf("verify run %s: %w", id, err)
	}
	if signalsDigest != storedSignals {
		return &DigestMismatchError{RunID: id, Table: "signals", Stored: storedSignals, Computed: signalsDigest}
	}
	return nil
}
