package math

import (
	gomath "math"

	"gonum.org/v1/gonum/mathext"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

func specialOps() []op {
	return []op{
		unary("math.gamma", "Gamma", "Gamma function of x", func(x float64) (*types.Result, error) {
			if x <= 0 && x == gomath.Trunc(x) {
				return Failure("gamma undefined for non-positive integers")
			}
			return finite(gomath.Gamma)(x)
		}),
		unary("math.lgamma", "Log Gamma", "Natural log of the absolute gamma function", func(x float64) (*types.Result, error) {
			r, _ := gomath.Lgamma(x)
			if err := validate(r, "result"); err != nil {
				return Failure("%v", err)
			}
			return Success(r)
		}),
		unary("math.digamma", "Digamma", "Logarithmic derivative of the gamma function", func(x float64) (*types.Result, error) {
			return finite(mathext.Digamma)(x)
		}),
		unary("math.erf", "Error Function", "Gauss error function", finite(gomath.Erf)),
		unary("math.erfc", "Complementary Error Function", "1 - erf(x)", finite(gomath.Erfc)),
		binary("math.beta", "Beta", "Beta function B(a, b)", func(a, b float64) (*types.Result, error) {
			if a <= 0 || b <= 0 {
				return Failure("beta requires positive a and b")
			}
			return Success(mathext.Beta(a, b))
		}),
		binary("math.binomial", "Binomial Coefficient", "Number of ways to choose b items from a", func(a, b float64) (*types.Result, error) {
			if a < 0 || b < 0 || b > a || a != gomath.Trunc(a) || b != gomath.Trunc(b) || a > 1000 {
				return Failure("binomial requires integers 0 <= b <= a <= 1000")
			}
			r := gomath.Round(gomath.Exp(lchoose(a, b)))
			if err := validate(r, "result"); err != nil {
				return Failure("%v", err)
			}
			return Success(r)
		}),
	}
}

func lchoose(n, k float64) float64 {
	a, _ := gomath.Lgamma(n + 1)
	b, _ := gomath.Lgamma(k + 1)
	c, _ := gomath.Lgamma(n - k + 1)
	return a - b - c
}
