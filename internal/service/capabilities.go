package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/types"
)

// ErrToolFailed wraps the message of a tool that reported failure.
var ErrToolFailed = errors.New("tool failed")

// Capabilities builds the host values that expose services to guest code:
// one nested map per service, with a bridge.Func at each tool's dotted path.
// Linking capabilities["math"] under "math" lets a guest call
// math.mean([1, 2, 3]).
//
// Guest arguments map onto the tool's parameters in order. A tool whose
// result has a "result" entry returns it; otherwise the whole data map is
// returned.
func (r *Registry) Capabilities(metrics *monitoring.Metrics, ids ...string) (map[string]any, error) {
	out := make(map[string]any)
	for _, def := range r.List(nil) {
		if len(ids) > 0 && !slices.Contains(ids, def.ID) {
			continue
		}
		root := make(map[string]any)
		for _, tool := range def.Tools {
			segs := strings.Split(tool.ID, ".")[1:]
			if err := mount(root, segs, r.toolFunc(metrics, def.ID, tool)); err != nil {
				return nil, fmt.Errorf("mount %s: %w", tool.ID, err)
			}
		}
		out[def.ID] = root
	}
	for _, want := range ids {
		if _, ok := out[want]; !ok {
			return nil, fmt.Errorf("service not found: %s", want)
		}
	}
	return out, nil
}

func mount(node map[string]any, segs []string, fn bridge.Func) error {
	for i, seg := range segs {
		if i == len(segs)-1 {
			if _, taken := node[seg]; taken {
				return fmt.Errorf("%q is already mounted", seg)
			}
			node[seg] = fn
			return nil
		}
		child, ok := node[seg]
		if !ok {
			next := make(map[string]any)
			node[seg] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is a tool, not a namespace", seg)
		}
		node = next
	}
	return fmt.Errorf("empty tool path")
}

func (r *Registry) toolFunc(metrics *monitoring.Metrics, serviceID string, tool types.Tool) bridge.Func {
	return func(ctx context.Context, args []any) (any, error) {
		timer := monitoring.NewTimer(metrics, serviceID, tool.ID)
		params, err := Params(tool, args)
		if err != nil {
			timer.Stop("invalid")
			return nil, err
		}
		res, err := r.Execute(ctx, tool.ID, params)
		if err != nil {
			timer.Stop("error")
			return nil, err
		}
		if !res.Success {
			timer.Stop("failure")
			msg := "unknown error"
			if res.Error != nil {
				msg = *res.Error
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrToolFailed, tool.ID, msg)
		}
		timer.Stop("success")
		if v, ok := res.Data["result"]; ok {
			return v, nil
		}
		return res.Data, nil
	}
}

// Params maps positional guest arguments onto a tool's parameters.
func Params(tool types.Tool, args []any) (map[string]any, error) {
	if len(args) > len(tool.Parameters) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", tool.ID, len(tool.Parameters), len(args))
	}
	params := make(map[string]any, len(tool.Parameters))
	for i, p := range tool.Parameters {
		if i < len(args) && args[i] != nil {
			params[p.Name] = args[i]
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("%s: missing argument %q", tool.ID, p.Name)
		}
	}
	return params, nil
}
