package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

func TestContext_InThreadSuspendsCaller(t *testing.T) {
	e := newTestEngine(t, func(c *Context) error {
		return c.At([]float64{0}, func(c *Context) error {
			if err := c.InThread(func(c *Context) error {
				c.Play(1)
				return c.Sleep(1)
			}); err != nil {
				return err
			}
			c.Play(2)
			return nil
		})
	})
	require.NoError(t, e.Run(context.Background(), 2, nil))

	assert.Equal(t, []string{"play@0", "play@1"}, calls(e.Output()))
}

func TestContext_WithFX(t *testing.T) {
	var handle trace.Node
	e := newTestEngine(t, func(c *Context) error {
		return c.LiveLoop("fx", func(c *Context) error {
			return c.WithFX(func(fx trace.Node) error {
				handle = fx
				c.Sample("ambi_choir")
				return c.Sleep(4)
			}, "reverb", map[string]any{"room": 0.8})
		})
	})
	require.NoError(t, e.Run(context.Background(), 2, nil))

	assert.Equal(t, trace.FX, handle.Command)
	assert.Equal(t, "reverb", handle.Args[0])
	assert.Equal(t, []string{"sample@0"}, calls(e.Output()), "entering an effect is not recorded")
}

func TestContext_CleanupRunsAfterTasksAreReleased(t *testing.T) {
	var log []string
	e := newTestEngine(t, func(c *Context) error {
		c.Cleanup(func() { log = append(log, "first") })
		c.Cleanup(func() { log = append(log, "second") })
		return c.LiveLoop("hold", func(c *Context) error {
			c.Cleanup(func() { log = append(log, "from task") })
			defer func() { log = append(log, "unwound") }()
			_, err := c.Sync("never")
			return err
		})
	})
	require.NoError(t, e.Run(context.Background(), 1, nil))

	assert.Equal(t, []string{"unwound", "from task", "second", "first"}, log)
}

func TestContext_CleanupRunsOnFailure(t *testing.T) {
	ran := false
	e := newTestEngine(t, func(c *Context) error {
		c.Cleanup(func() { ran = true })
		return errors.New("boom")
	})
	require.Error(t, e.Run(context.Background(), 1, nil))
	assert.True(t, ran)
}

func TestContext_TaskName(t *testing.T) {
	var names []string
	e := newTestEngine(t, func(c *Context) error {
		names = append(names, c.TaskName())
		assert.False(t, c.InTask())
		if err := c.LiveLoop("drums", func(c *Context) error {
			names = append(names, c.TaskName())
			return c.Stop()
		}); err != nil {
			return err
		}
		return c.At([]float64{0}, func(c *Context) error {
			names = append(names, c.TaskName())
			return nil
		})
	})
	require.NoError(t, e.Run(context.Background(), 1, nil))

	assert.Equal(t, []string{"", "drums", "at"}, names)
}

func TestContext_RootPrimitives(t *testing.T) {
	e := newTestEngine(t, func(c *Context) error {
		c.UseRealTime()
		c.Set("volume", 0.5)
		c.Cue("start", true)
		c.SetVolume(c.Get("volume", 1.0))

		_, err := c.Sync("start")
		assert.ErrorIs(t, err, ErrNotInTask)
		assert.ErrorIs(t, c.Stop(), ErrNotInTask)
		return nil
	})
	require.NoError(t, e.Run(context.Background(), 0, nil))

	out := e.Output()
	require.Len(t, out, 1)
	assert.Equal(t, trace.SetVolume, out[0].Command)
	assert.Equal(t, []any{0.5}, out[0].Args)
	assert.Equal(t, ir.Beat(0), out[0].Beat)
	assert.Equal(t, 2, e.Signals().Len())
}

func TestContext_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		def  Body
	}{
		{"live_loop without name", func(c *Context) error {
			return c.LiveLoop("", func(c *Context) error { return c.Sleep(1) })
		}},
		{"live_loop without body", func(c *Context) error {
			return c.LiveLoop("x", nil)
		}},
		{"at without body", func(c *Context) error {
			return c.At([]float64{0}, nil)
		}},
		{"with_fx without body", func(c *Context) error {
			return c.WithFX(nil, "echo")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.def)
			err := e.Run(context.Background(), 1, nil)
			assert.True(t, IsRuntimeError(err, ErrCodeInvalidArgument), "got %v", err)
		})
	}
}

func TestContext_SyncRecordsEveryConsumer(t *testing.T) {
	e := newTestEngine(t, func(c *Context) error {
		for _, name := range []string{"a", "b"} {
			if err := c.LiveLoop(name, func(c *Context) error {
				if _, err := c.Sync("go"); err != nil {
					return err
				}
				return c.Sleep(1)
			}); err != nil {
				return err
			}
		}
		return c.At([]float64{0}, func(c *Context) error {
			c.Cue("go", nil)
			return nil
		})
	})
	require.NoError(t, e.Run(context.Background(), 0, nil))

	records := e.Signals().Records()
	require.Len(t, records, 1)
	assert.Equal(t, []string{"live_loop:a#1", "live_loop:b#2"}, records[0].Consumers)
}
