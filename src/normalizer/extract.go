package normalizer

import (
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Low-level accessors over decoded JSON (map[string]interface{} / []interface{}).
// A value counts as present when the key exists and is not null.
// -----------------------------------------------------------------------------

func lookup(payload interface{}, path ...string) (interface{}, bool) {
	cur := payload
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, cur != nil
}

// -----------------------------------------------------------------------------

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// -----------------------------------------------------------------------------

func toString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// -----------------------------------------------------------------------------

func numberAt(payload interface{}, path ...string) (float64, bool) {
	v, ok := lookup(payload, path...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// -----------------------------------------------------------------------------

func firstNumberOf(item interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := numberAt(item, k); ok {
			return f, true
		}
	}
	return 0, false
}

// -----------------------------------------------------------------------------

func firstStringOf(item interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(item, k); ok {
			if s, ok := toString(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// -----------------------------------------------------------------------------

// arrayAt returns the array under path, or the payload itself when path is
// empty and the payload is an array.
func arrayAt(payload interface{}, path ...string) ([]interface{}, bool) {
	v := payload
	if len(path) > 0 {
		var ok bool
		if v, ok = lookup(payload, path...); !ok {
			return nil, false
		}
	}
	arr, ok := v.([]interface{})
	return arr, ok
}

// -----------------------------------------------------------------------------

// sumOver adds up the first numeric key of every element; elements missing
// all keys count as 0.
func sumOver(items []interface{}, keys ...string) float64 {
	total := 0.0
	for _, item := range items {
		if f, ok := firstNumberOf(item, keys...); ok {
			total += f
		}
	}
	return total
}
