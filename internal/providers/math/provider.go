package math

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

type handler func(params map[string]any) (*types.Result, error)

type op struct {
	tool types.Tool
	run  handler
}

// Provider is the math host service. Statistics and special functions come
// from gonum.
type Provider struct {
	ops   map[string]op
	order []string
}

// NewProvider creates the math provider with every tool registered.
func NewProvider() *Provider {
	p := &Provider{ops: make(map[string]op)}
	for _, group := range [][]op{arithmeticOps(), trigOps(), statsOps(), specialOps(), precisionOps(), conversionOps()} {
		for _, o := range group {
			p.ops[o.tool.ID] = o
			p.order = append(p.order, o.tool.ID)
		}
	}
	return p
}

// Definition returns the service metadata.
func (p *Provider) Definition() types.Service {
	tools := make([]types.Tool, 0, len(p.order))
	for _, id := range p.order {
		tools = append(tools, p.ops[id].tool)
	}
	return types.Service{
		ID:          "math",
		Name:        "Math Service",
		Description: "Mathematical operations (arithmetic, trigonometry, statistics, precision, special functions)",
		Category:    types.CategoryMath,
		Capabilities: []string{
			"arithmetic",
			"trigonometry",
			"statistics",
			"conversions",
			"precision",
			"special",
		},
		Tools: tools,
	}
}

// Execute runs the tool named by toolID.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]any) (*types.Result, error) {
	o, ok := p.ops[toolID]
	if !ok {
		return Failure("unknown tool: %s", toolID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.run(params)
}

// ToolIDs lists the registered tools in sorted order.
func (p *Provider) ToolIDs() []string {
	ids := append([]string(nil), p.order...)
	sort.Strings(ids)
	return ids
}

func number(name, desc string) types.Parameter {
	return types.Parameter{Name: name, Type: "number", Description: desc, Required: true}
}

func array(name, desc string) types.Parameter {
	return types.Parameter{Name: name, Type: "array", Description: desc, Required: true}
}

// unary builds a tool over a single number x.
func unary(id, name, desc string, f func(x float64) (*types.Result, error)) op {
	return op{
		tool: types.Tool{ID: id, Name: name, Description: desc, Parameters: []types.Parameter{number("x", "Input value")}, Returns: "number"},
		run: func(params map[string]any) (*types.Result, error) {
			x, err := GetNumber(params, "x")
			if err != nil {
				return Failure("%v", err)
			}
			return f(x)
		},
	}
}

// binary builds a tool over numbers a and b.
func binary(id, name, desc string, f func(a, b float64) (*types.Result, error)) op {
	return op{
		tool: types.Tool{ID: id, Name: name, Description: desc, Parameters: []types.Parameter{number("a", "First operand"), number("b", "Second operand")}, Returns: "number"},
		run: func(params map[string]any) (*types.Result, error) {
			a, err := GetNumber(params, "a")
			if err != nil {
				return Failure("%v", err)
			}
			b, err := GetNumber(params, "b")
			if err != nil {
				return Failure("%v", err)
			}
			return f(a, b)
		},
	}
}

// series builds a tool over an array of numbers with at least min entries.
func series(id, name, desc string, min int, f func(xs []float64) (*types.Result, error)) op {
	return op{
		tool: types.Tool{ID: id, Name: name, Description: desc, Parameters: []types.Parameter{array("numbers", "Array of numbers")}, Returns: "number"},
		run: func(params map[string]any) (*types.Result, error) {
			xs, err := GetNumbers(params, "numbers")
			if err != nil {
				return Failure("%v", err)
			}
			if len(xs) < min {
				return Failure("numbers array with at least %d elements required", min)
			}
			return f(xs)
		},
	}
}

// finite wraps a plain float function, failing on overflow.
func finite(f func(float64) float64) func(float64) (*types.Result, error) {
	return func(x float64) (*types.Result, error) {
		r := f(x)
		if err := validate(r, "result"); err != nil {
			return Failure("%v", err)
		}
		return Success(r)
	}
}
