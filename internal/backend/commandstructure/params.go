package commandstructure

import (
	"fmt"
	"math"
)

// GetIntParam extracts an int parameter from the params map. YAML numbers written in
// exponent form (1.05e7) arrive as float64 and are accepted when they are whole.
// A present value of any other type is an error.
func GetIntParam(params map[string]any, key string, defaultValue int) (int, error) {
	val, ok := params[key]
	if !ok {
		return defaultValue, nil
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, fmt.Errorf("parameter %s: %d overflows int", key, v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("parameter %s: %v is not a whole number", key, v)
		}
		return int(v), nil
	}
	return 0, fmt.Errorf("parameter %s: expected an integer, got %T", key, val)
}

// GetFloatParam extracts a float parameter from the params map
func GetFloatParam(params map[string]any, key string, defaultValue float64) (float64, error) {
	val, ok := params[key]
	if !ok {
		return defaultValue, nil
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("parameter %s: expected a number, got %T", key, val)
}

// GetStringSliceParam extracts a list of strings. YAML lists arrive as []any;
// a single string is treated as a one-element list.
func GetStringSliceParam(params map[string]any, key string, defaultValue []string) ([]string, error) {
	val, ok := params[key]
	if !ok {
		return defaultValue, nil
	}
	switch v := val.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		result := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %s: item %d is %T, expected a string", key, i, item)
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, fmt.Errorf("parameter %s: expected a list of strings, got %T", key, val)
}
