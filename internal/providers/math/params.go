package math

import (
	"fmt"
	gomath "math"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

// Success creates a successful result carrying value under "result".
func Success(value any, extra ...any) (*types.Result, error) {
	data := map[string]any{"result": value}
	for i := 0; i+1 < len(extra); i += 2 {
		data[fmt.Sprint(extra[i])] = extra[i+1]
	}
	return &types.Result{Success: true, Data: data}, nil
}

// Failure creates a failed result.
func Failure(format string, args ...any) (*types.Result, error) {
	msg := fmt.Sprintf(format, args...)
	return &types.Result{Success: false, Error: &msg}, nil
}

// GetNumber extracts a finite number.
func GetNumber(params map[string]any, key string) (float64, error) {
	val, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s parameter required", key)
	}
	x, ok := toFloat(val)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return x, validate(x, key)
}

// GetNumbers extracts a non-empty array of finite numbers.
func GetNumbers(params map[string]any, key string) ([]float64, error) {
	arr, ok := params[key].([]any)
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("%s array required", key)
	}
	out := make([]float64, len(arr))
	for i, v := range arr {
		x, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a number", key, i)
		}
		if err := validate(x, fmt.Sprintf("%s[%d]", key, i)); err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// GetString extracts a string.
func GetString(params map[string]any, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok {
		return "", fmt.Errorf("%s parameter required (as string)", key)
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func validate(x float64, name string) error {
	if gomath.IsNaN(x) {
		return fmt.Errorf("%s is NaN", name)
	}
	if gomath.IsInf(x, 0) {
		return fmt.Errorf("%s is infinite", name)
	}
	return nil
}

func anySlice(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
