package graph

import "context"

// END is the sentinel a router returns to terminate the run instead of
// naming a next node.
const END = "END"

// ToolFunc is the signature of an executable step. It receives the current
// state and returns the state for the next node, or an error that fails
// the run.
type ToolFunc func(ctx context.Context, state State) (State, error)

// RouterFunc inspects the state after a node ran and returns the name of
// the next node, or END to terminate the run.
type RouterFunc func(ctx context.Context, state State) string

// ToolResolver resolves a tool name to its executable function. The tool
// registry implements it; resolution failures must wrap ErrToolNotFound.
type ToolResolver interface {
	ResolveTool(name string) (ToolFunc, error)
}

// Node is a named step in a graph, bound to one registered tool by name.
// The binding is lazy: the tool is looked up when the node executes.
type Node struct {
	// Name is the unique identifier of the node within its graph.
	Name string `json:"name"`

	// Tool is the registry name of the function the node invokes.
	Tool string `json:"tool"`

	// Description describes what the node does.
	Description string `json:"description,omitempty"`
}

// Edge is an unconditional connection between two nodes. To may be END.
type Edge struct {
	From string `json:"from_node"`
	To   string `json:"to_node"`
}

// Graph is an immutable, validated workflow definition produced by
// Builder.Compile. A graph may contain cycles; the step budget of the
// Runner bounds traversal.
type Graph struct {
	id          string
	name        string
	nodes       map[string]Node
	nodeOrder   []string
	plainEdges  map[string]string
	routers     map[string]RouterFunc
	routerNames map[string]string
	entryPoint  string
	finish      map[string]bool
	warnings    []string
}

// ID returns the generated unique identifier of the graph.
func (g *Graph) ID() string { return g.id }

// Name returns the human-readable name of the graph.
func (g *Graph) Name() string { return g.name }

// EntryPoint returns the name of the start node.
func (g *Graph) EntryPoint() string { return g.entryPoint }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodeOrder))
	for _, name := range g.nodeOrder {
		nodes = append(nodes, g.nodes[name])
	}
	return nodes
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Edges returns the plain edges in node insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.plainEdges))
	for _, from := range g.nodeOrder {
		if to, ok := g.plainEdges[from]; ok {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// RoutedNodes returns the names of nodes with a conditional edge, in node
// insertion order.
func (g *Graph) RoutedNodes() []string {
	routed := make([]string, 0, len(g.routers))
	for _, name := range g.nodeOrder {
		if _, ok := g.routers[name]; ok {
			routed = append(routed, name)
		}
	}
	return routed
}

// RouterName returns the registry name of the router attached to a node,
// when the graph was built from a declarative definition. Programmatically
// attached routers have no name.
func (g *Graph) RouterName(node string) string { return g.routerNames[node] }

// FinishPoints returns the terminal node names in insertion order.
func (g *Graph) FinishPoints() []string {
	finish := make([]string, 0, len(g.finish))
	for _, name := range g.nodeOrder {
		if g.finish[name] {
			finish = append(finish, name)
		}
	}
	return finish
}

// IsFinishPoint reports whether the named node terminates the run once it
// has executed.
func (g *Graph) IsFinishPoint(name string) bool { return g.finish[name] }

// Warnings returns non-fatal findings recorded at compile time, such as
// dead-end nodes that are reachable but have no outgoing route.
func (g *Graph) Warnings() []string { return g.warnings }

// route returns the next node for from, consulting the conditional router
// first. ok is false when the node has no outgoing route at all.
func (g *Graph) route(ctx context.Context, from string, state State) (next string, ok bool) {
	if router, has := g.routers[from]; has {
		return router(ctx, state), true
	}
	if to, has := g.plainEdges[from]; has {
		return to, true
	}
	return "", false
}
