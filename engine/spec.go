package engine

import (
	"fmt"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/tool"
)

// NodeSpec is the declarative definition of one workflow node.
type NodeSpec struct {
	Name        string `json:"name"`
	Tool        string `json:"tool"`
	Description string `json:"description,omitempty"`
}

// EdgeSpec is the declarative definition of one edge. A plain edge names
// its target in ToNode; a conditional edge names a registered router in
// Condition instead.
type EdgeSpec struct {
	FromNode  string `json:"from_node"`
	ToNode    string `json:"to_node,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Spec is the declarative definition of a workflow graph, the form the
// boundary layer accepts and the unit a caller would persist if graphs
// need to outlive the process.
type Spec struct {
	Name      string     `json:"name"`
	Nodes     []NodeSpec `json:"nodes"`
	Edges     []EdgeSpec `json:"edges"`
	StartNode string     `json:"start_node"`
	EndNodes  []string   `json:"end_nodes,omitempty"`
}

// Build compiles the spec into a graph, resolving conditional-edge
// routers through the registry. Tool references are checked eagerly so a
// malformed definition is rejected at creation time rather than mid-run.
func (s Spec) Build(registry *tool.Registry) (*graph.Graph, error) {
	b := graph.NewBuilder(s.Name)

	for _, node := range s.Nodes {
		b.AddNode(node.Name, node.Tool, node.Description)
	}

	for _, edge := range s.Edges {
		if edge.Condition != "" {
			router, err := registry.ResolveRouter(edge.Condition)
			if err != nil {
				return nil, &graph.ValidationError{
					Element: "conditional edge from " + edge.FromNode,
					Reason:  fmt.Sprintf("router %q is not registered", edge.Condition),
				}
			}
			b.AddNamedConditionalEdge(edge.FromNode, edge.Condition, router)
			continue
		}
		b.AddEdge(edge.FromNode, edge.ToNode)
	}

	b.SetEntryPoint(s.StartNode)
	for _, end := range s.EndNodes {
		b.AddFinishPoint(end)
	}

	return b.Compile(graph.WithToolCheck(registry))
}
