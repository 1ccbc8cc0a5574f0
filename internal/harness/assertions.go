package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Output   []trace.Event // Recorded output for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Output) > 0 {
		fmt.Fprintf(&buf, "\nFull output:\n")
		for _, ev := range e.Output {
			fmt.Fprintf(&buf, "  [%d] beat %s: %s %v\n", ev.Seq, ev.Beat, ev.Command, ev.Args)
		}
	}

	return buf.String()
}

func checkAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOutputAt:
		return assertOutputAt(result.Output, a)
	case AssertOutputCount:
		return assertOutputCount(result.Output, a)
	case AssertSignalAt:
		return assertSignalAt(result, a)
	case AssertFinalBeat:
		return assertFinalBeat(result, a)
	case AssertRunError:
		return assertRunError(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertOutputAt checks the beats at which a command was recorded. Without
// Exact every listed beat must occur; extra occurrences are allowed.
func assertOutputAt(output []trace.Event, a Assertion) error {
	cmd, err := trace.ParseCommand(a.Command)
	if err != nil {
		return err
	}
	got := trace.BeatsOf(output, cmd, a.Args...)
	want := toBeats(a.Beats)

	if a.Exact {
		if slices.Equal(got, want) {
			return nil
		}
		return &AssertionError{
			Type:     AssertOutputAt,
			Expected: fmt.Sprintf("%s %v exactly at beats %v", cmd, a.Args, want),
			Actual:   fmt.Sprintf("at beats %v", got),
			Output:   output,
		}
	}

	for _, b := range want {
		if !slices.Contains(got, b) {
			return &AssertionError{
				Type:     AssertOutputAt,
				Expected: fmt.Sprintf("%s %v at beats %v", cmd, a.Args, want),
				Actual:   fmt.Sprintf("at beats %v (missing %s)", got, b),
				Output:   output,
			}
		}
	}
	return nil
}

// assertOutputCount checks how many times a command was recorded.
func assertOutputCount(output []trace.Event, a Assertion) error {
	cmd, err := trace.ParseCommand(a.Command)
	if err != nil {
		return err
	}
	count := len(trace.BeatsOf(output, cmd, a.Args...))
	if count != a.Count {
		return &AssertionError{
			Type:     AssertOutputCount,
			Expected: fmt.Sprintf("%d occurrences of %s %v", a.Count, cmd, a.Args),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Output:   output,
		}
	}
	return nil
}

// assertSignalAt checks that a signal exists at exactly the given beat. When
// several match, the latest emitted is compared.
func assertSignalAt(result *Result, a Assertion) error {
	beat := ir.Beat(*a.Beat)
	for i := len(result.Signals) - 1; i >= 0; i-- {
		sig := result.Signals[i]
		if sig.Name != a.Name || sig.Beat != beat {
			continue
		}
		if a.Value != nil && !ir.ValuesEqual(a.Value, sig.Value) {
			return &AssertionError{
				Type:     AssertSignalAt,
				Expected: fmt.Sprintf("signal %q at beat %s with value %v", a.Name, beat, a.Value),
				Actual:   fmt.Sprintf("value %v", sig.Value),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertSignalAt,
		Expected: fmt.Sprintf("signal %q at beat %s", a.Name, beat),
		Actual:   "not found",
	}
}

func assertFinalBeat(result *Result, a Assertion) error {
	want := ir.Beat(*a.Beat)
	if result.FinalBeat != want {
		return &AssertionError{
			Type:     AssertFinalBeat,
			Expected: fmt.Sprintf("run ends at beat %s", want),
			Actual:   fmt.Sprintf("ended at beat %s", result.FinalBeat),
		}
	}
	return nil
}

func assertRunError(result *Result, a Assertion) error {
	if result.RunError != a.Code {
		actual := "run succeeded"
		if result.RunError != "" {
			actual = fmt.Sprintf("%s: %s", result.RunError, result.RunErrorMessage)
		}
		return &AssertionError{
			Type:     AssertRunError,
			Expected: fmt.Sprintf("run fails with %s", a.Code),
			Actual:   actual,
		}
	}
	return nil
}

func toBeats(fs []float64) []ir.Beat {
	beats := make([]ir.Beat, len(fs))
	for i, f := range fs {
		beats[i] = ir.Beat(f)
	}
	return beats
}
