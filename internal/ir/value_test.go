package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValuesEqual(t *testing.T) {
	fn := func() {}
	nan := math.NaN()
	shared := &struct{ X float64 }{X: nan}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"int vs float", 12, 12.0, true},
		{"int64 vs int", int64(60), 60, true},
		{"beat vs float", Beat(1.5), 1.5, true},
		{"different numbers", 1, 2, false},
		{"number vs string", 1, "1", false},
		{"string vs number", "1", 1, false},
		{"strings", "bd_haus", "bd_haus", true},
		{"NaN equals NaN", nan, nan, true},
		{"NaN vs number", nan, 1.0, false},
		{"func equals itself", fn, fn, true},
		{"func vs nil", fn, nil, false},
		{"same pointer", shared, shared, true},
		{"nested list", []any{int64(1), []any{int64(2)}}, []any{1, []any{2.0}}, true},
		{"list length", []any{1}, []any{1, 2}, false},
		{"typed list", []int{1, 2}, []any{int64(1), 2.0}, true},
		{"nested map", map[string]any{"amp": int64(1)}, map[string]any{"amp": 1}, true},
		{"map missing key", map[string]any{"amp": 1}, map[string]any{"pan": 1}, false},
		{"map value differs", map[string]any{"amp": 1}, map[string]any{"amp": 0.5}, false},
		{"map with NaN", map[string]any{"x": nan}, map[string]any{"x": nan}, true},
		{"list vs map", []any{}, map[string]any{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestValuesEqual_ScriptArgsMatchYAML(t *testing.T) {
	// What play(60, {amp: 1}) exports from a script.
	exported := []any{int64(60), map[string]any{"amp": int64(1)}}

	var decoded []any
	require.NoError(t, yaml.Unmarshal([]byte("[60, {amp: 1}]"), &decoded))

	assert.True(t, ValuesEqual(exported, decoded))
	assert.True(t, ValuesEqual(decoded, exported))
}
