// GraphFlow - a graph-based workflow execution engine in Go.
//
// GraphFlow models a workflow as a directed graph of named nodes, each
// bound to a registered tool function. A runner walks the graph from its
// entry point, threading a mutable state map from node to node, following
// plain edges and conditional routers, until a terminal node, the END
// sentinel, or the step budget. Every run produces a complete record:
// final state, full execution trace and terminal status.
//
// # Packages
//
//   - graph: the core model - builder, compiled graph, runner, trace
//   - tool: the name to function registry nodes resolve through
//   - store: graph and run record storage (memory, sqlite, redis, postgres)
//   - engine: the service facade tying registry, runner and stores together
//   - httpapi: the REST surface over the engine
//   - workflow/codereview: a ready-made static-analysis workflow
//
// # Quick Start
//
//	registry := tool.NewRegistry()
//	registry.Register("greet", func(ctx context.Context, state graph.State) (graph.State, error) {
//		state["greeting"] = "hello " + state.GetString("name")
//		return state, nil
//	}, "Greet the caller")
//
//	g, err := graph.NewBuilder("greeter").
//		AddNode("greet", "greet", "Greet the caller").
//		SetEntryPoint("greet").
//		AddFinishPoint("greet").
//		Compile()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	runner := graph.NewRunner(registry)
//	run := runner.Run(context.Background(), g, graph.State{"name": "world"}, 10)
//	fmt.Println(run.Status, run.FinalState["greeting"])
package graphflow
