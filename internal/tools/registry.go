package tools

import (
	"fmt"
	"sync"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Registry is the single source of truth for available tools. The selector
// can only pick from tools registered here; no dynamic discovery, no
// plugins. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool under its own name. Registering the same name twice
// is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("registry: %q: %w", name, domain.ErrDuplicateTool)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("registry: %q (available: %v): %w", name, r.order, domain.ErrUnknownTool)
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Specs returns tool metadata for the selector prompt, in registration order.
func (r *Registry) Specs() []domain.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, domain.ToolInfo{
			Name:        name,
			Description: r.tools[name].Description(),
		})
	}
	return infos
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// NewDefaultRegistry creates and populates the registry with all built-in
// tools. The snapshot tools read history through source.
func NewDefaultRegistry(source SnapshotSource) (*Registry, error) {
	r := NewRegistry()

	all := []Tool{
		NewPriceSignal(),
		NewRandomContext(),
		NewVolatility(source),
		NewSpreadCompression(source),
		NewPriceJumpDetector(source),
		NewLiquiditySpike(source),
	}

	for _, t := range all {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
