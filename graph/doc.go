// Package graph implements a small graph-based workflow execution engine.
//
// A workflow is described as a set of named nodes connected by edges. Each
// node references a tool (a registered function that transforms the shared
// state), edges are either unconditional or routed by a function of the
// state, and cycles are allowed: traversal is bounded by a mandatory step
// budget so that looping workflows always terminate.
//
// Graphs are assembled with a Builder and validated exactly once at Compile:
//
//	b := graph.NewBuilder("review")
//	b.AddNode("extract", "extract_functions", "Extract function definitions").
//		AddNode("analyze", "check_complexity", "Analyze complexity").
//		AddEdge("extract", "analyze").
//		SetEntryPoint("extract").
//		AddFinishPoint("analyze")
//	g, err := b.Compile()
//
// A Runner executes compiled graphs sequentially, resolving each node's tool
// by name, threading the state from node to node and recording a trace entry
// per invocation. The result is a Run record carrying the final state, the
// full trace and a terminal status. Execution failures (missing tools, tool
// errors, bad routing decisions) never escape as errors: they are folded
// into the Run record with status failed.
package graph
