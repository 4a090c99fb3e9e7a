package math

import (
	gomath "math"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

func arithmeticOps() []op {
	return []op{
		binary("math.add", "Add", "Add two numbers", func(a, b float64) (*types.Result, error) { return Success(a + b) }),
		binary("math.subtract", "Subtract", "Subtract b from a", func(a, b float64) (*types.Result, error) { return Success(a - b) }),
		binary("math.multiply", "Multiply", "Multiply two numbers", func(a, b float64) (*types.Result, error) { return Success(a * b) }),
		binary("math.divide", "Divide", "Divide a by b", func(a, b float64) (*types.Result, error) {
			if b == 0 {
				return Failure("division by zero")
			}
			return Success(a / b)
		}),
		binary("math.power", "Power", "Raise a to the power b", func(a, b float64) (*types.Result, error) {
			r := gomath.Pow(a, b)
			if err := validate(r, "result"); err != nil {
				return Failure("%v", err)
			}
			return Success(r)
		}),
		binary("math.mod", "Modulo", "Remainder of a divided by b", func(a, b float64) (*types.Result, error) {
			if b == 0 {
				return Failure("modulo by zero")
			}
			return Success(gomath.Mod(a, b))
		}),
		binary("math.gcd", "GCD", "Greatest common divisor of two integers", func(a, b float64) (*types.Result, error) {
			x, y, ok := integers(a, b)
			if !ok {
				return Failure("gcd requires integers")
			}
			return Success(float64(gcd(x, y)))
		}),
		binary("math.lcm", "LCM", "Least common multiple of two integers", func(a, b float64) (*types.Result, error) {
			x, y, ok := integers(a, b)
			if !ok {
				return Failure("lcm requires integers")
			}
			if x == 0 || y == 0 {
				return Success(0.0)
			}
			return Success(float64(x / gcd(x, y) * y))
		}),
		unary("math.sqrt", "Square Root", "Square root of x", func(x float64) (*types.Result, error) {
			if x < 0 {
				return Failure("cannot take square root of negative number")
			}
			return Success(gomath.Sqrt(x))
		}),
		unary("math.abs", "Absolute Value", "Absolute value of x", finite(gomath.Abs)),
		unary("math.floor", "Floor", "Round x down", finite(gomath.Floor)),
		unary("math.ceil", "Ceiling", "Round x up", finite(gomath.Ceil)),
		unary("math.round", "Round", "Round x to the nearest integer, halves away from zero", finite(gomath.Round)),
		unary("math.exp", "Exponential", "e raised to x", finite(gomath.Exp)),
		unary("math.log", "Natural Log", "Natural logarithm of x", positive(gomath.Log)),
		unary("math.log10", "Log Base 10", "Base 10 logarithm of x", positive(gomath.Log10)),
		unary("math.log2", "Log Base 2", "Base 2 logarithm of x", positive(gomath.Log2)),
		unary("math.factorial", "Factorial", "Factorial of a non-negative integer up to 170", func(x float64) (*types.Result, error) {
			if x < 0 || x != gomath.Trunc(x) || x > 170 {
				return Failure("factorial requires an integer between 0 and 170")
			}
			r := 1.0
			for i := 2.0; i <= x; i++ {
				r *= i
			}
			return Success(r)
		}),
	}
}

func positive(f func(float64) float64) func(float64) (*types.Result, error) {
	return func(x float64) (*types.Result, error) {
		if x <= 0 {
			return Failure("logarithm requires a positive number")
		}
		return Success(f(x))
	}
}

func integers(a, b float64) (int64, int64, bool) {
	if a != gomath.Trunc(a) || b != gomath.Trunc(b) || gomath.Abs(a) > 1<<53 || gomath.Abs(b) > 1<<53 {
		return 0, 0, false
	}
	x, y := int64(a), int64(b)
	if x < 0 {
		x = -x
	}
	if y < 0 {
		y = -y
	}
	return x, y, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
