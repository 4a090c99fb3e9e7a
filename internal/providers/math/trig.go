package math

import (
	gomath "math"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

func trigOps() []op {
	return []op{
		unary("math.sin", "Sine", "Sine of x radians", finite(gomath.Sin)),
		unary("math.cos", "Cosine", "Cosine of x radians", finite(gomath.Cos)),
		unary("math.tan", "Tangent", "Tangent of x radians", finite(gomath.Tan)),
		unary("math.asin", "Arcsine", "Arcsine of x in radians", bounded(gomath.Asin)),
		unary("math.acos", "Arccosine", "Arccosine of x in radians", bounded(gomath.Acos)),
		unary("math.atan", "Arctangent", "Arctangent of x in radians", finite(gomath.Atan)),
		unary("math.sinh", "Hyperbolic Sine", "Hyperbolic sine of x", finite(gomath.Sinh)),
		unary("math.cosh", "Hyperbolic Cosine", "Hyperbolic cosine of x", finite(gomath.Cosh)),
		unary("math.tanh", "Hyperbolic Tangent", "Hyperbolic tangent of x", finite(gomath.Tanh)),
		unary("math.radians", "Degrees to Radians", "Convert x degrees to radians", finite(func(x float64) float64 { return x * gomath.Pi / 180 })),
		unary("math.degrees", "Radians to Degrees", "Convert x radians to degrees", finite(func(x float64) float64 { return x * 180 / gomath.Pi })),
		binary("math.atan2", "Arctangent2", "Angle of the point (b, a) in radians", func(a, b float64) (*types.Result, error) {
			return Success(gomath.Atan2(a, b))
		}),
		{
			tool: types.Tool{ID: "math.constants", Name: "Constants", Description: "pi, e, tau and phi", Returns: "object"},
			run: func(map[string]any) (*types.Result, error) {
				return &types.Result{Success: true, Data: map[string]any{
					"pi":  gomath.Pi,
					"e":   gomath.E,
					"tau": 2 * gomath.Pi,
					"phi": gomath.Phi,
				}}, nil
			},
		},
	}
}

func bounded(f func(float64) float64) func(float64) (*types.Result, error) {
	return func(x float64) (*types.Result, error) {
		if x < -1 || x > 1 {
			return Failure("x must be between -1 and 1")
		}
		return Success(f(x))
	}
}
