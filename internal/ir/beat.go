package ir

import (
	"math"
	"strconv"
)

// Beat is a point on the virtual timeline. One beat is the unit every sleep,
// schedule offset and signal timestamp is expressed in.
//
// A Beat is never negative and never NaN. +Inf is reserved for tasks that
// asked to never run again (stop), which the engine culls at the horizon.
type Beat float64

// Never is the wake beat of a stopped task.
var Never = Beat(math.Inf(1))

// Valid reports whether b is a usable point in time (non-negative, not NaN).
// Never is valid.
func (b Beat) Valid() bool {
	f := float64(b)
	return !math.IsNaN(f) && f >= 0
}

// Finite reports whether b is valid and not Never.
func (b Beat) Finite() bool {
	return b.Valid() && !math.IsInf(float64(b), 1)
}

// After returns the beat that lies offset beats after b.
func (b Beat) After(offset float64) Beat {
	return b + Beat(offset)
}

// String formats the beat in its shortest decimal form ("0", "0.5", "12").
func (b Beat) String() string {
	if math.IsInf(float64(b), 1) {
		return "never"
	}
	return formatNumber(float64(b))
}

// ValidOffset reports whether n can be used as a sleep duration or schedule
// offset: non-negative and not NaN. +Inf is allowed (stop).
func ValidOffset(n float64) bool {
	return !math.IsNaN(n) && n >= 0
}

// formatNumber prints integral values without a fraction and everything else
// in the shortest representation that round-trips.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
