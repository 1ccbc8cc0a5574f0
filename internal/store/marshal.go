package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// marshalValue converts a value to canonical JSON TEXT for storage.
func marshalValue(v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// marshalArgs stores nil args as an empty array so every row holds a list.
func marshalArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	return marshalValue(args)
}

// unmarshalValue parses canonical JSON TEXT. Integral numbers come back as
// int64 and everything else as float64, so 60 reads back as 60 and 0.5 as 0.5.
func unmarshalValue(data string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return normalizeNumbers(v), nil
}

func unmarshalArgs(data string) ([]any, error) {
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, err
	}
	args, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unmarshal args: expected array, got %T", v)
	}
	return args, nil
}

func unmarshalStrings(data string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	}
	return v
}
