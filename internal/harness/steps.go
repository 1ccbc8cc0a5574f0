package harness

import (
	"fmt"
	"strings"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

const (
	refSync      = "$sync"
	refGetPrefix = "$get:"
)

// compileSteps turns a step list into a task body. Steps were validated at
// load time; a step that still fails to resolve is reported as a task error.
func compileSteps(steps []Step) engine.Body {
	return func(c *engine.Context) error {
		var synced any
		for i, step := range steps {
			if err := runStep(c, step, &synced); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		return nil
	}
}

func runStep(c *engine.Context, step Step, synced *any) error {
	kind, err := step.Kind()
	if err != nil {
		return err
	}

	switch kind {
	case StepCommand:
		cmd, err := trace.ParseCommand(step.Command)
		if err != nil {
			return err
		}
		args := make([]any, len(step.Args))
		for i, arg := range step.Args {
			args[i] = expand(c, arg, *synced)
		}
		c.Command(cmd, args...)
	case StepSleep:
		return c.Sleep(*step.Sleep)
	case StepSync:
		v, err := c.Sync(step.Sync)
		if err != nil {
			return err
		}
		*synced = v
	case StepCue:
		c.Cue(step.Cue, expand(c, step.Value, *synced))
	case StepSet:
		c.Set(step.Set, expand(c, step.Value, *synced))
	case StepAt:
		return c.At(step.At, compileSteps(step.Steps))
	case StepLiveLoop:
		return c.LiveLoop(step.LiveLoop, compileSteps(step.Steps))
	case StepStop:
		return c.Stop()
	}
	return nil
}

// expand resolves "$sync" and "$get:<name>" references.
func expand(c *engine.Context, v any, synced any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s == refSync {
		return synced
	}
	if name, ok := strings.CutPrefix(s, refGetPrefix); ok {
		return c.Get(name, nil)
	}
	return v
}
