package math

import (
	"fmt"
	"math/big"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

const (
	defaultDecimals = 50
	maxDecimals     = 1000
)

// Precise operands and results are decimal strings so guest number
// rounding never touches them.
func precisionOps() []op {
	return []op{
		precise("math.preciseAdd", "Precise Add", "Add two decimal strings", func(z, a, b *big.Float) (*big.Float, error) {
			return z.Add(a, b), nil
		}),
		precise("math.preciseSubtract", "Precise Subtract", "Subtract two decimal strings", func(z, a, b *big.Float) (*big.Float, error) {
			return z.Sub(a, b), nil
		}),
		precise("math.preciseMultiply", "Precise Multiply", "Multiply two decimal strings", func(z, a, b *big.Float) (*big.Float, error) {
			return z.Mul(a, b), nil
		}),
		precise("math.preciseDivide", "Precise Divide", "Divide two decimal strings", func(z, a, b *big.Float) (*big.Float, error) {
			if b.Sign() == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return z.Quo(a, b), nil
		}),
	}
}

func precise(id, name, desc string, f func(z, a, b *big.Float) (*big.Float, error)) op {
	return op{
		tool: types.Tool{
			ID:          id,
			Name:        name,
			Description: desc,
			Parameters: []types.Parameter{
				{Name: "a", Type: "string", Description: "First operand", Required: true},
				{Name: "b", Type: "string", Description: "Second operand", Required: true},
				{Name: "decimals", Type: "number", Description: "Digits after the decimal point (default 50)"},
			},
			Returns: "string",
		},
		run: func(params map[string]any) (*types.Result, error) {
			decimals := defaultDecimals
			if _, ok := params["decimals"]; ok {
				d, err := GetNumber(params, "decimals")
				if err != nil {
					return Failure("%v", err)
				}
				if d < 0 || d > maxDecimals {
					return Failure("decimals must be between 0 and %d", maxDecimals)
				}
				decimals = int(d)
			}
			prec := bits(decimals)
			a, err := parseDecimal(params, "a", prec)
			if err != nil {
				return Failure("%v", err)
			}
			b, err := parseDecimal(params, "b", prec)
			if err != nil {
				return Failure("%v", err)
			}
			r, err := f(new(big.Float).SetPrec(prec), a, b)
			if err != nil {
				return Failure("%v", err)
			}
			return Success(r.Text('f', decimals))
		},
	}
}

// bits converts decimal digits to mantissa bits, with headroom for the
// integer part.
func bits(decimals int) uint {
	return uint(float64(decimals)*3.33) + 64
}

func parseDecimal(params map[string]any, key string, prec uint) (*big.Float, error) {
	s, err := GetString(params, key)
	if err != nil {
		return nil, err
	}
	f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("%s is not a decimal number: %q", key, s)
	}
	return f, nil
}
