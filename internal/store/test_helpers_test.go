package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun runs a small script: a drum loop, a listener synced on a
// cue, and one seeded signal.
func createTestRun(t *testing.T, runID string) Run {
	t.Helper()
	def := func(c *engine.Context) error {
		if err := c.LiveLoop("drums", func(c *engine.Context) error {
			c.Sample("bd_haus", "amp", 0.5)
			return c.Sleep(1)
		}); err != nil {
			return err
		}
		if err := c.LiveLoop("listener", func(c *engine.Context) error {
			v, err := c.Sync("tick")
			if err != nil {
				return err
			}
			c.Play(v)
			return c.Sleep(1)
		}); err != nil {
			return err
		}
		return c.At([]float64{1}, func(c *engine.Context) error {
			c.Cue("tick", 64)
			return nil
		})
	}

	eng := engine.New(def,
		engine.WithLogger(testutil.DiscardLogger()),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	)
	seeds := []signals.Seed{{Beat: 0, Name: "tempo", Value: 120}}
	err := eng.Run(context.Background(), 2, seeds)
	return RunFromEngine(eng, "test.js", 2, err)
}
