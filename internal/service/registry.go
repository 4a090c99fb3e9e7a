package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

// Provider is a host service.
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]any) (*types.Result, error)
}

// Registry holds the host services sandboxes may be given.
type Registry struct {
	services sync.Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a service provider.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}
	if strings.Contains(def.ID, ".") {
		return fmt.Errorf("service ID %q cannot contain dots", def.ID)
	}
	for _, tool := range def.Tools {
		if !strings.HasPrefix(tool.ID, def.ID+".") {
			return fmt.Errorf("tool %q is outside service %q", tool.ID, def.ID)
		}
	}
	if _, loaded := r.services.LoadOrStore(def.ID, provider); loaded {
		return fmt.Errorf("service %q already registered", def.ID)
	}
	return nil
}

// Unregister removes a service provider.
func (r *Registry) Unregister(serviceID string) {
	r.services.Delete(serviceID)
}

// Get retrieves a service by ID.
func (r *Registry) Get(serviceID string) (Provider, bool) {
	val, ok := r.services.Load(serviceID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns the registered services sorted by ID, optionally filtered by
// category.
func (r *Registry) List(category *types.Category) []types.Service {
	var services []types.Service
	r.services.Range(func(_, value any) bool {
		def := value.(Provider).Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
		return true
	})
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services
}

// Discover ranks services by how well they match a free-text query.
func (r *Registry) Discover(query string, limit int) []types.Service {
	type scored struct {
		service types.Service
		score   float64
	}

	q := strings.ToLower(query)
	var results []scored
	r.services.Range(func(_, value any) bool {
		def := value.(Provider).Definition()
		if score := relevance(q, def); score > 0 {
			results = append(results, scored{service: def, score: score})
		}
		return true
	})

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].service.ID < results[j].service.ID
	})

	out := make([]types.Service, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		out = append(out, results[i].service)
	}
	return out
}

// Execute runs a tool by its dotted ID.
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]any) (*types.Result, error) {
	serviceID, _, ok := strings.Cut(toolID, ".")
	if !ok {
		return failure("invalid tool ID format"), fmt.Errorf("invalid tool ID format: %s", toolID)
	}
	provider, ok := r.Get(serviceID)
	if !ok {
		msg := fmt.Sprintf("service not found: %s", serviceID)
		return failure(msg), fmt.Errorf("%s", msg)
	}
	return provider.Execute(ctx, toolID, params)
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]any {
	var total, totalTools int
	categories := make(map[string]int)
	r.services.Range(func(_, value any) bool {
		def := value.(Provider).Definition()
		total++
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
		return true
	})
	return map[string]any{
		"total_services": total,
		"total_tools":    totalTools,
		"categories":     categories,
	}
}

func relevance(query string, service types.Service) float64 {
	score := 0.0
	if strings.Contains(query, service.ID) || strings.Contains(query, strings.ToLower(service.Name)) {
		score += 10.0
	}
	for _, word := range strings.Fields(strings.ToLower(service.Description)) {
		if len(word) > 3 && strings.Contains(query, word) {
			score += 5.0
		}
	}
	for _, c := range service.Capabilities {
		if strings.Contains(query, strings.ReplaceAll(strings.ToLower(c), "_", " ")) {
			score += 3.0
		}
	}
	for _, tool := range service.Tools {
		if strings.Contains(query, strings.ToLower(tool.Name)) {
			score += 1.0
		}
	}
	return score
}

func failure(msg string) *types.Result {
	return &types.Result{Success: false, Error: &msg}
}
