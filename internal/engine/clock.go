package engine

import (
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// Clock is the engine's virtual-time position, in beats.
//
// The clock only moves forward. Not safe for concurrent use; the engine is
// its only writer and task coroutines read it only while resumed.
type Clock struct {
	now ir.Beat
}

// NewClock creates a clock at beat 0.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current beat.
func (c *Clock) Now() ir.Beat {
	return c.now
}

// AdvanceTo moves the clock to b. Moving backwards, or to a beat that is not
// finite, is an invariant violation and returns an error.
func (c *Clock) AdvanceTo(b ir.Beat) error {
	if !b.Finite() {
		return fmt.Errorf("clock: cannot advance to %v", float64(b))
	}
	if b < c.now {
		return fmt.Errorf("clock: cannot move backwards from %s to %s", c.now, b)
	}
	c.now = b
	return nil
}
