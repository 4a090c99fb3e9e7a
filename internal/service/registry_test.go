package service

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

type mockProvider struct {
	id       string
	category types.Category
}

func (m *mockProvider) Definition() types.Service {
	category := m.category
	if category == "" {
		category = types.CategorySystem
	}
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     category,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".echo",
				Name:        "Echo",
				Description: "Returns its argument",
				Parameters:  []types.Parameter{{Name: "value", Type: "any", Required: true}},
				Returns:     "any",
			},
			{
				ID:          m.id + ".nested.fail",
				Name:        "Fail",
				Description: "Always fails",
				Returns:     "never",
			},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]any) (*types.Result, error) {
	if toolID == m.id+".nested.fail" {
		return failure("nope"), nil
	}
	return &types.Result{
		Success: true,
		Data:    map[string]any{"result": params["value"]},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test"}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := r.Get("test"); !ok {
		t.Error("Service should be registered")
	}
	if err := r.Register(p); err == nil {
		t.Error("Duplicate registration should fail")
	}
}

func TestRegisterRejectsBadIDs(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockProvider{id: ""}); err == nil {
		t.Error("Empty ID should be rejected")
	}
	if err := r.Register(&mockProvider{id: "a.b"}); err == nil {
		t.Error("Dotted ID should be rejected")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})
	r.Unregister("test")
	if _, ok := r.Get("test"); ok {
		t.Error("Service should be gone")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test2"})
	r.Register(&mockProvider{id: "test1"})
	r.Register(&mockProvider{id: "calc", category: types.CategoryMath})

	services := r.List(nil)
	if len(services) != 3 {
		t.Fatalf("Expected 3 services, got %d", len(services))
	}
	if services[0].ID != "calc" || services[2].ID != "test2" {
		t.Errorf("Expected services sorted by ID, got %s..%s", services[0].ID, services[2].ID)
	}

	cat := types.CategorySystem
	if filtered := r.List(&cat); len(filtered) != 2 {
		t.Errorf("Expected 2 system services, got %d", len(filtered))
	}
}

func TestDiscover(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "storage"})
	r.Register(&mockProvider{id: "other"})

	results := r.Discover("storage read write", 5)
	if len(results) == 0 {
		t.Fatal("Should discover storage service")
	}
	if results[0].ID != "storage" {
		t.Errorf("Expected storage service, got %s", results[0].ID)
	}
	if got := r.Discover("storage", 1); len(got) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(got))
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})

	ctx := context.Background()
	result, err := r.Execute(ctx, "test.echo", map[string]any{"value": "hi"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success || result.Data["result"] != "hi" {
		t.Errorf("Unexpected result: %+v", result)
	}

	if _, err := r.Execute(ctx, "missing.echo", nil); err == nil {
		t.Error("Unknown service should fail")
	}
	if _, err := r.Execute(ctx, "nodot", nil); err == nil {
		t.Error("Malformed tool ID should fail")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test1"})
	r.Register(&mockProvider{id: "test2"})

	stats := r.Stats()
	if total := stats["total_services"].(int); total != 2 {
		t.Errorf("Expected 2 total services, got %d", total)
	}
	if tools := stats["total_tools"].(int); tools != 4 {
		t.Errorf("Expected 4 total tools, got %d", tools)
	}
}
