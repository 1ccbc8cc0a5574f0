package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_Stable(t *testing.T) {
	v := []any{map[string]any{"beat": 0.5, "command": "play", "args": []any{"c2"}}}

	a, err := Digest(DomainTrace, v)
	require.NoError(t, err)
	b, err := Digest(DomainTrace, v)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestDigest_DomainSeparation(t *testing.T) {
	v := []any{"x"}

	trace, err := Digest(DomainTrace, v)
	require.NoError(t, err)
	signals, err := Digest(DomainSignals, v)
	require.NoError(t, err)

	assert.NotEqual(t, trace, signals)
}

func TestDigest_KeyOrderIndependent(t *testing.T) {
	a, err := Digest(DomainTrace, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	b, err := Digest(DomainTrace, map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDigest_RejectsNonFinite(t *testing.T) {
	_, err := Digest(DomainTrace, Never)
	assert.Error(t, err)
}
