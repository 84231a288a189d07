package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// Builder accumulates nodes and edges and produces an immutable Graph.
// Methods return the builder for fluent chaining; all invariants are
// checked once, at Compile.
type Builder struct {
	id          string
	name        string
	nodes       map[string]Node
	nodeOrder   []string
	plainEdges  map[string][]string
	routers     map[string]RouterFunc
	routerNames map[string]string
	entryPoint  string
	finish      []string
	errs        []error
}

// NewBuilder creates a builder for a graph with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:        name,
		nodes:       make(map[string]Node),
		plainEdges:  make(map[string][]string),
		routers:     make(map[string]RouterFunc),
		routerNames: make(map[string]string),
	}
}

// AddNode adds a named node bound to the given tool name.
func (b *Builder) AddNode(name, toolName, description string) *Builder {
	if name == "" {
		b.errs = append(b.errs, &ValidationError{Reason: "node name must not be empty"})
		return b
	}
	if name == END {
		b.errs = append(b.errs, &ValidationError{Element: "node " + name, Reason: "name is reserved"})
		return b
	}
	if _, exists := b.nodes[name]; exists {
		b.errs = append(b.errs, &ValidationError{Element: "node " + name, Reason: "duplicate node name"})
		return b
	}
	if toolName == "" {
		b.errs = append(b.errs, &ValidationError{Element: "node " + name, Reason: "tool name must not be empty"})
		return b
	}
	b.nodes[name] = Node{Name: name, Tool: toolName, Description: description}
	b.nodeOrder = append(b.nodeOrder, name)
	return b
}

// AddEdge adds an unconditional edge from one node to another. To may be
// END to terminate the run after from has executed.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.plainEdges[from] = append(b.plainEdges[from], to)
	return b
}

// AddConditionalEdge attaches a router to from. The router is invoked with
// the state produced by from and returns the next node name, or END.
func (b *Builder) AddConditionalEdge(from string, router RouterFunc) *Builder {
	return b.AddNamedConditionalEdge(from, "", router)
}

// AddNamedConditionalEdge is AddConditionalEdge for routers that carry a
// registry name, which declarative graph definitions reference.
func (b *Builder) AddNamedConditionalEdge(from, routerName string, router RouterFunc) *Builder {
	if _, exists := b.routers[from]; exists {
		b.errs = append(b.errs, &ValidationError{Element: "node " + from, Reason: "node already has a conditional edge"})
		return b
	}
	if router == nil {
		b.errs = append(b.errs, &ValidationError{Element: "node " + from, Reason: "router must not be nil"})
		return b
	}
	b.routers[from] = router
	if routerName != "" {
		b.routerNames[from] = routerName
	}
	return b
}

// SetEntryPoint sets the start node of the graph.
func (b *Builder) SetEntryPoint(name string) *Builder {
	b.entryPoint = name
	return b
}

// AddFinishPoint marks a node as terminal: once it has executed, the run
// completes.
func (b *Builder) AddFinishPoint(name string) *Builder {
	for _, f := range b.finish {
		if f == name {
			return b
		}
	}
	b.finish = append(b.finish, name)
	return b
}

// CompileOption customizes Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	id       string
	resolver ToolResolver
}

// WithID fixes the graph identifier instead of generating one.
func WithID(id string) CompileOption {
	return func(c *compileConfig) { c.id = id }
}

// WithToolCheck makes Compile verify eagerly that every referenced tool is
// registered, instead of deferring resolution to execution time.
func WithToolCheck(resolver ToolResolver) CompileOption {
	return func(c *compileConfig) { c.resolver = resolver }
}

// Compile validates the accumulated definition and returns the immutable
// graph. It fails with a ValidationError naming the offending node or edge
// when an invariant is violated. Validation runs exactly once; the returned
// graph is never re-validated.
func (b *Builder) Compile(opts ...CompileOption) (*Graph, error) {
	var cfg compileConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if len(b.nodes) == 0 {
		return nil, &ValidationError{Reason: "graph has no nodes"}
	}
	if b.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := b.nodes[b.entryPoint]; !ok {
		return nil, &ValidationError{Element: "start node " + b.entryPoint, Reason: "not a node of the graph"}
	}

	finish := make(map[string]bool, len(b.finish))
	for _, name := range b.finish {
		if _, ok := b.nodes[name]; !ok {
			return nil, &ValidationError{Element: "finish point " + name, Reason: "not a node of the graph"}
		}
		finish[name] = true
	}

	plain := make(map[string]string, len(b.plainEdges))
	for from, targets := range b.plainEdges {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ValidationError{Element: fmt.Sprintf("edge %s -> %s", from, targets[0]), Reason: "from node does not exist"}
		}
		if len(targets) > 1 {
			return nil, &ValidationError{Element: "node " + from, Reason: "node has more than one outgoing edge"}
		}
		if _, hasRouter := b.routers[from]; hasRouter {
			return nil, &ValidationError{Element: "node " + from, Reason: "node has both a plain edge and a conditional edge"}
		}
		to := targets[0]
		if to != END {
			if _, ok := b.nodes[to]; !ok {
				return nil, &ValidationError{Element: fmt.Sprintf("edge %s -> %s", from, to), Reason: "to node does not exist"}
			}
		}
		plain[from] = to
	}

	for from := range b.routers {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ValidationError{Element: "conditional edge from " + from, Reason: "from node does not exist"}
		}
	}

	if cfg.resolver != nil {
		for _, name := range b.nodeOrder {
			node := b.nodes[name]
			if _, err := cfg.resolver.ResolveTool(node.Tool); err != nil {
				return nil, &ValidationError{Element: "node " + name, Reason: fmt.Sprintf("tool %q is not registered", node.Tool)}
			}
		}
	}

	// Dead ends complete a run naturally, which is usually an authoring
	// oversight for non-terminal nodes. Flag them, do not reject.
	var warnings []string
	for _, name := range b.nodeOrder {
		if finish[name] {
			continue
		}
		_, hasPlain := plain[name]
		_, hasRouter := b.routers[name]
		if !hasPlain && !hasRouter {
			warnings = append(warnings, fmt.Sprintf("node %s has no outgoing edge and is not a finish point", name))
		}
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	nodes := make(map[string]Node, len(b.nodes))
	for name, node := range b.nodes {
		nodes[name] = node
	}
	routers := make(map[string]RouterFunc, len(b.routers))
	for name, fn := range b.routers {
		routers[name] = fn
	}
	routerNames := make(map[string]string, len(b.routerNames))
	for name, rn := range b.routerNames {
		routerNames[name] = rn
	}

	return &Graph{
		id:          id,
		name:        b.name,
		nodes:       nodes,
		nodeOrder:   append([]string(nil), b.nodeOrder...),
		plainEdges:  plain,
		routers:     routers,
		routerNames: routerNames,
		entryPoint:  b.entryPoint,
		finish:      finish,
		warnings:    warnings,
	}, nil
}
