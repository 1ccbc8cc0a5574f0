package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, ir.Beat(0), c.Now(), "new clock should start at beat 0")
}

func TestClock_AdvanceTo(t *testing.T) {
	c := NewClock()

	require.NoError(t, c.AdvanceTo(0.5))
	assert.Equal(t, ir.Beat(0.5), c.Now())

	require.NoError(t, c.AdvanceTo(0.5), "staying on the same beat is allowed")
	require.NoError(t, c.AdvanceTo(3))
	assert.Equal(t, ir.Beat(3), c.Now())
}

func TestClock_AdvanceTo_Backwards(t *testing.T) {
	c := NewClock()
	require.NoError(t, c.AdvanceTo(2))

	err := c.AdvanceTo(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backwards")
	assert.Equal(t, ir.Beat(2), c.Now(), "failed advance must not move the clock")
}

func TestClock_AdvanceTo_NotFinite(t *testing.T) {
	tests := []struct {
		name string
		beat ir.Beat
	}{
		{"never", ir.Never},
		{"nan", ir.Beat(math.NaN())},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock()
			assert.Error(t, c.AdvanceTo(tt.beat))
			assert.Equal(t, ir.Beat(0), c.Now())
		})
	}
}
