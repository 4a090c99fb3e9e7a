package types

// Category groups host services.
type Category string

const (
	CategoryMath   Category = "math"
	CategorySystem Category = "system"
)

// Service describes a host service whose tools guest code can call.
type Service struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Category     Category `json:"category" yaml:"category"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Tools        []Tool   `json:"tools" yaml:"tools"`
}

// Tool is one callable operation of a service. Its ID is dotted, starting
// with the service ID ("math.precise.add"), and doubles as the guest path.
type Tool struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Parameters  []Parameter `json:"parameters" yaml:"parameters"`
	Returns     string      `json:"returns" yaml:"returns"`
}

// Parameter describes a tool argument. Guest calls pass parameters
// positionally, in declaration order.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// Result is a tool's outcome. A successful tool puts its value under
// Data["result"].
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *string        `json:"error,omitempty"`
}
