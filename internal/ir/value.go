package ir

import (
	"math"
	"reflect"
)

// ValuesEqual compares two script values structurally.
//
// Numbers compare by value whatever their Go type, so int64(1) from a
// JavaScript export matches int(1) from YAML and 1.0 from JSON. Lists and
// string-keyed maps are compared element by element with the same rules.
//
// Unlike reflect.DeepEqual the comparison is reflexive: NaN equals NaN and a
// function equals itself. Functions compare by code pointer, so two closures
// over the same function literal are also equal.
func ValuesEqual(a, b any) bool {
	if fa, ok := asNumber(a); ok {
		fb, ok := asNumber(b)
		return ok && (fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)))
	}
	if _, ok := asNumber(b); ok {
		return false
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() {
		return ra.IsValid() == rb.IsValid()
	}
	switch {
	case isList(ra) && isList(rb):
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !ValuesEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case isStringMap(ra) && isStringMap(rb):
		if ra.Len() != rb.Len() {
			return false
		}
		iter := ra.MapRange()
		for iter.Next() {
			bv := rb.MapIndex(reflect.ValueOf(iter.Key().String()).Convert(rb.Type().Key()))
			if !bv.IsValid() || !ValuesEqual(iter.Value().Interface(), bv.Interface()) {
				return false
			}
		}
		return true
	case ra.Kind() == reflect.Func && rb.Kind() == reflect.Func:
		return ra.Pointer() == rb.Pointer()
	case ra.Kind() == reflect.Pointer && rb.Kind() == reflect.Pointer && ra.Pointer() == rb.Pointer():
		return ra.Type() == rb.Type()
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isStringMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}
