// Package tool provides the process-wide registry that maps tool names to
// executable workflow steps. Graph nodes reference tools by name and the
// runner resolves them through the registry when a node executes, so tools
// can be registered at process start and referenced by many graphs.
//
// The registry also holds named routers for conditional edges, which lets
// declarative graph definitions reference a routing function by name
// instead of carrying code.
package tool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/smallnest/graphflow/graph"
)

// ErrInvalidTool is returned when a registration is malformed (empty name
// or nil function).
var ErrInvalidTool = errors.New("invalid tool registration")

// Registry maps tool names to executable steps and router names to
// conditional-edge functions. It is safe for concurrent use: registration
// takes the write lock, resolution and listing take the read lock.
//
// Registering a name twice overwrites the previous entry; the last
// registration wins.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]graph.ToolFunc
	toolDesc   map[string]string
	routers    map[string]graph.RouterFunc
	routerDesc map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]graph.ToolFunc),
		toolDesc:   make(map[string]string),
		routers:    make(map[string]graph.RouterFunc),
		routerDesc: make(map[string]string),
	}
}

// Register adds or replaces a tool under the given name.
func (r *Registry) Register(name string, fn graph.ToolFunc, description string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidTool)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s: function must not be nil", ErrInvalidTool, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
	r.toolDesc[name] = description
	return nil
}

// RegisterRouter adds or replaces a named conditional-edge router.
func (r *Registry) RegisterRouter(name string, fn graph.RouterFunc, description string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidTool)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s: function must not be nil", ErrInvalidTool, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routers[name] = fn
	r.routerDesc[name] = description
	return nil
}

// ResolveTool returns the tool registered under name. The error wraps
// graph.ErrToolNotFound, which makes the Registry a graph.ToolResolver.
func (r *Registry) ResolveTool(name string) (graph.ToolFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrToolNotFound, name)
	}
	return fn, nil
}

// ResolveRouter returns the router registered under name.
func (r *Registry) ResolveRouter(name string) (graph.RouterFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.routers[name]
	if !ok {
		return nil, fmt.Errorf("%w: router %s", graph.ErrToolNotFound, name)
	}
	return fn, nil
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Tools returns the name to description mapping of all registered tools.
func (r *Registry) Tools() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.toolDesc))
	for name, desc := range r.toolDesc {
		out[name] = desc
	}
	return out
}

// Routers returns the name to description mapping of all registered
// routers.
func (r *Registry) Routers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.routerDesc))
	for name, desc := range r.routerDesc {
		out[name] = desc
	}
	return out
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds a tool to the process-wide registry.
func Register(name string, fn graph.ToolFunc, description string) error {
	return defaultRegistry.Register(name, fn, description)
}

// RegisterRouter adds a router to the process-wide registry.
func RegisterRouter(name string, fn graph.RouterFunc, description string) error {
	return defaultRegistry.RegisterRouter(name, fn, description)
}
