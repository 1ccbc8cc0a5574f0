package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/porras/fake-sonic-pi/internal/engine"
)

var errNotInTask = engine.ErrNotInTask

// exportArgs converts JavaScript arguments to Go values for recording.
func exportArgs(vals []goja.Value) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v.Export()
	}
	return args
}

// toOffsets accepts a number or an array of numbers.
func toOffsets(v any) ([]float64, error) {
	if f, ok := toFloat(v); ok {
		return []float64{f}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("offsets must be a number or an array of numbers, got %T", v)
	}
	offsets := make([]float64, len(list))
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("offsets[%d] must be a number, got %T", i, item)
		}
		offsets[i] = f
	}
	return offsets, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
