package signals

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

func TestStore_EmitPreservesOrder(t *testing.T) {
	s := New()
	s.Emit(1, "b", 2)
	s.Emit(0, "a", 1)
	s.Emit(1, "b", 3)

	want := []Record{
		{Beat: 1, Name: "b", Value: 2},
		{Beat: 0, Name: "a", Value: 1},
		{Beat: 1, Name: "b", Value: 3},
	}
	if diff := cmp.Diff(want, s.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_FindExact(t *testing.T) {
	s := New()
	s.Emit(0, "go", "first")
	s.Emit(1, "go", "second")
	s.Emit(1, "go", "third")
	s.Emit(1, "other", "x")

	sig, ok := s.FindExact(1, "go")
	require.True(t, ok)
	assert.Equal(t, "third", sig.Value, "latest insertion wins")

	_, ok = s.FindExact(0.5, "go")
	assert.False(t, ok, "no signal at exactly 0.5")

	_, ok = s.FindExact(1, "missing")
	assert.False(t, ok)
}

func TestStore_MostRecentAtOrBefore(t *testing.T) {
	s := New()
	s.Emit(2, "x", "future")
	s.Emit(0, "x", "zero")
	s.Emit(1, "x", "one-a")
	s.Emit(1, "x", "one-b")

	sig, ok := s.MostRecentAtOrBefore(1.5, "x")
	require.True(t, ok)
	assert.Equal(t, "one-b", sig.Value)

	sig, ok = s.MostRecentAtOrBefore(0, "x")
	require.True(t, ok)
	assert.Equal(t, "zero", sig.Value)

	sig, ok = s.MostRecentAtOrBefore(5, "x")
	require.True(t, ok)
	assert.Equal(t, "future", sig.Value)

	_, ok = s.MostRecentAtOrBefore(5, "y")
	assert.False(t, ok)
}

func TestStore_MostRecentNeverReturnsFuture(t *testing.T) {
	s := New()
	s.Emit(3, "x", 1)

	_, ok := s.MostRecentAtOrBefore(2.999, "x")
	assert.False(t, ok)
}

func TestStore_NextBeatAfter(t *testing.T) {
	s := New()

	_, ok := s.NextBeatAfter(0)
	assert.False(t, ok, "empty store")

	s.Emit(3, "a", nil)
	s.Emit(1, "b", nil)
	s.Emit(2, "c", nil)
	s.Emit(1, "d", nil)

	next, ok := s.NextBeatAfter(0)
	require.True(t, ok)
	assert.Equal(t, ir.Beat(1), next)

	next, ok = s.NextBeatAfter(1)
	require.True(t, ok)
	assert.Equal(t, ir.Beat(2), next, "strictly greater")

	_, ok = s.NextBeatAfter(3)
	assert.False(t, ok)
}

func TestStore_Seed(t *testing.T) {
	s := New()
	err := s.Seed([]Seed{
		{Beat: 0, Name: "tempo", Value: 120},
		{Beat: 4, Name: "section", Value: "chorus"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	sig, ok := s.FindExact(4, "section")
	require.True(t, ok)
	assert.Equal(t, "chorus", sig.Value)
}

func TestStore_SeedRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		seed Seed
	}{
		{"negative beat", Seed{Beat: -1, Name: "x"}},
		{"nan beat", Seed{Beat: ir.Beat(math.NaN()), Name: "x"}},
		{"infinite beat", Seed{Beat: ir.Never, Name: "x"}},
		{"empty name", Seed{Beat: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			err := s.Seed([]Seed{{Beat: 0, Name: "ok"}, tt.seed})
			assert.Error(t, err)
			assert.Equal(t, 0, s.Len(), "nothing appended on error")
		})
	}
}

func TestStore_SnapshotEqual(t *testing.T) {
	s := New()
	s.Emit(0, "a", []any{"c2", 1})

	snap := s.Snapshot()
	assert.True(t, s.Equal(snap))

	s.Emit(0, "a", []any{"c2", 1})
	assert.False(t, s.Equal(snap), "emission must be detected")
	assert.Equal(t, 1, snap.Len(), "snapshot is independent")
}

func TestStore_EqualIgnoresConsumers(t *testing.T) {
	s := New()
	s.Emit(0, "go", true)
	snap := s.Snapshot()

	sig, ok := s.FindExact(0, "go")
	require.True(t, ok)
	sig.AddConsumer("live_loop:b")

	assert.True(t, s.Equal(snap))
	assert.Empty(t, snap.All()[0].Consumers())
}

func TestStore_EqualComparesValues(t *testing.T) {
	a := New()
	a.Emit(0, "x", map[string]any{"k": 1})
	b := New()
	b.Emit(0, "x", map[string]any{"k": 2})

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestStore_EqualIsReflexive(t *testing.T) {
	callback := func() {}
	s := New()
	s.Emit(0, "missing", math.NaN())
	s.Emit(0, "cb", callback)
	s.Emit(0, "nested", map[string]any{"x": math.NaN(), "f": callback})

	assert.True(t, s.Equal(s))
	assert.True(t, s.Equal(s.Snapshot()))
	assert.True(t, s.Snapshot().Equal(s))
}

func TestSignal_AddConsumerIsSet(t *testing.T) {
	sig := &Signal{Beat: 0, Name: "go"}
	sig.AddConsumer("a")
	sig.AddConsumer("b")
	sig.AddConsumer("a")

	assert.Equal(t, []string{"a", "b"}, sig.Consumers())
}

func TestStore_Digest(t *testing.T) {
	build := func() *Store {
		s := New()
		s.Emit(0, "x", 1)
		s.Emit(0.5, "x", 2)
		return s
	}

	a, err := build().Digest()
	require.NoError(t, err)

	other := build()
	sig, _ := other.FindExact(0, "x")
	sig.AddConsumer("someone")
	b, err := other.Digest()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
