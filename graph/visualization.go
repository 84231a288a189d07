package graph

import (
	"fmt"
	"strings"
)

// Exporter renders a compiled graph in diagram formats for inspection.
type Exporter struct {
	graph *Graph
}

// NewExporter creates an exporter for the given graph.
func NewExporter(g *Graph) *Exporter {
	return &Exporter{graph: g}
}

// DrawMermaid generates a Mermaid flowchart of the graph. Plain edges are
// solid, conditional edges dashed; finish points are drawn as stadium
// shapes.
func (e *Exporter) DrawMermaid() string {
	g := e.graph
	var sb strings.Builder

	sb.WriteString("flowchart TD\n")
	sb.WriteString("    START([\"START\"])\n")
	sb.WriteString(fmt.Sprintf("    START --> %s\n", g.EntryPoint()))

	hasEnd := false
	for _, node := range g.Nodes() {
		label := node.Name
		if node.Tool != "" && node.Tool != node.Name {
			label = fmt.Sprintf("%s<br/>(%s)", node.Name, node.Tool)
		}
		if g.IsFinishPoint(node.Name) {
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", node.Name, label))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", node.Name, label))
		}
	}

	for _, edge := range g.Edges() {
		if edge.To == END {
			hasEnd = true
		}
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", edge.From, edge.To))
	}
	for _, from := range g.RoutedNodes() {
		label := g.RouterName(from)
		if label == "" {
			label = "?"
		}
		sb.WriteString(fmt.Sprintf("    %s -.->|%s| %s_route{{\"?\"}}\n", from, label, from))
	}

	if hasEnd {
		sb.WriteString("    END([\"END\"])\n")
	}
	sb.WriteString(fmt.Sprintf("    style %s fill:#87CEEB\n", g.EntryPoint()))
	sb.WriteString("    style START fill:#90EE90\n")

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph.
func (e *Exporter) DrawDOT() string {
	g := e.graph
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")
	sb.WriteString("    START [shape=ellipse, style=filled, fillcolor=lightgreen];\n")
	sb.WriteString(fmt.Sprintf("    START -> %s;\n", g.EntryPoint()))

	hasEnd := false
	for _, node := range g.Nodes() {
		attrs := fmt.Sprintf("label=\"%s\\n%s\"", node.Name, node.Tool)
		if g.IsFinishPoint(node.Name) {
			attrs += ", style=filled, fillcolor=lightpink"
		} else if node.Name == g.EntryPoint() {
			attrs += ", style=filled, fillcolor=lightblue"
		}
		sb.WriteString(fmt.Sprintf("    %s [%s];\n", node.Name, attrs))
	}

	for _, edge := range g.Edges() {
		if edge.To == END {
			hasEnd = true
		}
		sb.WriteString(fmt.Sprintf("    %s -> %s;\n", edge.From, edge.To))
	}
	for _, from := range g.RoutedNodes() {
		label := g.RouterName(from)
		if label == "" {
			label = "conditional"
		}
		sb.WriteString(fmt.Sprintf("    %s -> %s_route [style=dashed, label=\"%s\"];\n", from, from, label))
		sb.WriteString(fmt.Sprintf("    %s_route [label=\"?\", shape=diamond];\n", from))
	}

	if hasEnd {
		sb.WriteString("    END [shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}
