package math

import (
	gomath "math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

func statsOps() []op {
	return []op{
		series("math.sum", "Sum", "Sum of numbers", 1, func(xs []float64) (*types.Result, error) {
			return Success(floats.Sum(xs))
		}),
		series("math.mean", "Mean", "Arithmetic mean", 1, func(xs []float64) (*types.Result, error) {
			return Success(stat.Mean(xs, nil))
		}),
		series("math.median", "Median", "Median value", 1, func(xs []float64) (*types.Result, error) {
			return Success(median(xs))
		}),
		series("math.mode", "Mode", "Most frequent values", 1, func(xs []float64) (*types.Result, error) {
			return Success(anySlice(modes(xs)))
		}),
		series("math.min", "Minimum", "Smallest value", 1, func(xs []float64) (*types.Result, error) {
			return Success(floats.Min(xs))
		}),
		series("math.max", "Maximum", "Largest value", 1, func(xs []float64) (*types.Result, error) {
			return Success(floats.Max(xs))
		}),
		series("math.range", "Range", "Difference between max and min", 1, func(xs []float64) (*types.Result, error) {
			return Success(floats.Max(xs) - floats.Min(xs))
		}),
		series("math.variance", "Variance", "Sample variance", 2, func(xs []float64) (*types.Result, error) {
			return Success(stat.Variance(xs, nil))
		}),
		series("math.stdDev", "Standard Deviation", "Sample standard deviation", 2, func(xs []float64) (*types.Result, error) {
			return Success(stat.StdDev(xs, nil))
		}),
		series("math.describe", "Describe", "Count, mean, median, standard deviation and extremes", 1, func(xs []float64) (*types.Result, error) {
			sd := 0.0
			if len(xs) > 1 {
				sd = stat.StdDev(xs, nil)
			}
			return &types.Result{Success: true, Data: map[string]any{
				"count":  float64(len(xs)),
				"mean":   stat.Mean(xs, nil),
				"median": median(xs),
				"stdDev": sd,
				"min":    floats.Min(xs),
				"max":    floats.Max(xs),
			}}, nil
		}),
		{
			tool: types.Tool{
				ID:          "math.percentile",
				Name:        "Percentile",
				Description: "Empirical percentile p (0-100) of numbers",
				Parameters:  []types.Parameter{array("numbers", "Array of numbers"), number("p", "Percentile between 0 and 100")},
				Returns:     "number",
			},
			run: func(params map[string]any) (*types.Result, error) {
				xs, err := GetNumbers(params, "numbers")
				if err != nil {
					return Failure("%v", err)
				}
				p, err := GetNumber(params, "p")
				if err != nil {
					return Failure("%v", err)
				}
				if p < 0 || p > 100 {
					return Failure("p must be between 0 and 100")
				}
				return Success(stat.Quantile(p/100, stat.Empirical, sorted(xs), nil))
			},
		},
		pair("math.correlation", "Correlation", "Pearson correlation of x and y", stat.Correlation),
		pair("math.covariance", "Covariance", "Sample covariance of x and y", stat.Covariance),
	}
}

func pair(id, name, desc string, f func(x, y, weights []float64) float64) op {
	return op{
		tool: types.Tool{
			ID:          id,
			Name:        name,
			Description: desc,
			Parameters:  []types.Parameter{array("x", "First series"), array("y", "Second series")},
			Returns:     "number",
		},
		run: func(params map[string]any) (*types.Result, error) {
			x, err := GetNumbers(params, "x")
			if err != nil {
				return Failure("%v", err)
			}
			y, err := GetNumbers(params, "y")
			if err != nil {
				return Failure("%v", err)
			}
			if len(x) != len(y) || len(x) < 2 {
				return Failure("x and y must have the same length of at least 2")
			}
			r := f(x, y, nil)
			if gomath.IsNaN(r) {
				return Failure("%s undefined for constant series", name)
			}
			return Success(r)
		},
	}
}

func sorted(xs []float64) []float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return s
}

// median averages the middle pair for even lengths, unlike stat.Quantile
// which picks the lower one.
func median(xs []float64) float64 {
	s := sorted(xs)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func modes(xs []float64) []float64 {
	counts := make(map[float64]int)
	best := 0
	for _, x := range xs {
		counts[x]++
		if counts[x] > best {
			best = counts[x]
		}
	}
	var out []float64
	for x, c := range counts {
		if c == best {
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}
