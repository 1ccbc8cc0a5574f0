package engine

import (
	"errors"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// DefaultMaxRoundsPerBeat bounds the number of control-loop iterations the
// engine may spend without the clock moving forward.
const DefaultMaxRoundsPerBeat = 100000

// QuotaEnforcer counts control-loop iterations at a single beat.
//
// A well-formed script always lets the clock move eventually. Two patterns
// never do: a loop that sleeps zero beats forever, and tasks that keep cueing
// new signals at the same beat. Both would otherwise spin the loop forever.
//
// The counter is reset each time the clock advances to a later beat.
// Iterations that resume a task for the first time at the current beat are
// credited back, so many tasks legitimately due at one beat never trip it.
type QuotaEnforcer struct {
	maxRounds int
	current   int
}

// NewQuotaEnforcer creates an enforcer allowing maxRounds iterations per beat.
func NewQuotaEnforcer(maxRounds int) *QuotaEnforcer {
	return &QuotaEnforcer{maxRounds: maxRounds}
}

// Check counts one iteration at beat and fails once the limit is passed.
func (q *QuotaEnforcer) Check(beat ir.Beat) error {
	q.current++
	if q.current > q.maxRounds {
		return &RoundsExceededError{
			Beat:   beat,
			Rounds: q.current,
			Limit:  q.maxRounds,
		}
	}
	return nil
}

// Credit returns one counted iteration to the budget.
func (q *QuotaEnforcer) Credit() {
	if q.current > 0 {
		q.current--
	}
}

// Reset sets the counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of iterations counted at the current beat.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxRounds returns the configured limit.
func (q *QuotaEnforcer) MaxRounds() int {
	return q.maxRounds
}

// RoundsExceededError is returned when the clock stayed on one beat for more
// iterations than the quota allows.
type RoundsExceededError struct {
	Beat   ir.Beat
	Rounds int
	Limit  int
}

// Error implements the error interface.
func (e *RoundsExceededError) Error() string {
	return fmt.Sprintf("beat %s: clock did not advance after %d rounds (limit %d)",
		e.Beat, e.Rounds, e.Limit)
}

// IsRoundsExceeded returns true if the error is a RoundsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRoundsExceeded(err error) bool {
	var re *RoundsExceededError
	return errors.As(err, &re)
}
