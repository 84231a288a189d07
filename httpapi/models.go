package httpapi

import (
	"time"

	"github.com/smallnest/graphflow/engine"
	"github.com/smallnest/graphflow/graph"
)

// CreateGraphRequest is the body of POST /graph/create. It embeds the
// declarative graph definition the engine compiles.
type CreateGraphRequest struct {
	engine.Spec
}

// CreateGraphResponse is the body returned after a graph is created.
type CreateGraphResponse struct {
	GraphID string `json:"graph_id"`
	Message string `json:"message"`
}

// RunGraphRequest is the body of POST /graph/run.
type RunGraphRequest struct {
	GraphID      string         `json:"graph_id"`
	InitialState map[string]any `json:"initial_state,omitempty"`
	MaxSteps     int            `json:"max_steps,omitempty"`
}

// TraceEntryResponse is one execution log entry in a run response.
type TraceEntryResponse struct {
	Step          int            `json:"step"`
	NodeName      string         `json:"node_name"`
	Timestamp     time.Time      `json:"timestamp"`
	StateSnapshot map[string]any `json:"state_snapshot"`
	Next          string         `json:"next,omitempty"`
}

// RunGraphResponse is the body returned after a run finished, whatever its
// terminal status.
type RunGraphResponse struct {
	RunID      string               `json:"run_id"`
	GraphID    string               `json:"graph_id"`
	Status     graph.Status         `json:"status"`
	FinalState map[string]any       `json:"final_state"`
	Trace      []TraceEntryResponse `json:"trace"`
	FailedNode string               `json:"failed_node,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// ListGraphsResponse is the body of GET /graph/list.
type ListGraphsResponse struct {
	Graphs []engine.GraphSummary `json:"graphs"`
}

// ListRunsResponse is the body of GET /runs/list.
type ListRunsResponse struct {
	Runs []engine.RunSummary `json:"runs"`
}

// ListToolsResponse is the body of GET /tools.
type ListToolsResponse struct {
	Tools   map[string]string `json:"tools"`
	Routers map[string]string `json:"routers,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Graphs int    `json:"graphs"`
	Runs   int    `json:"runs"`
	Tools  int    `json:"tools"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func runToResponse(run *graph.Run) RunGraphResponse {
	trace := make([]TraceEntryResponse, 0, len(run.Trace))
	for _, entry := range run.Trace {
		trace = append(trace, TraceEntryResponse{
			Step:          entry.Step,
			NodeName:      entry.Node,
			Timestamp:     entry.Timestamp,
			StateSnapshot: entry.State,
			Next:          entry.Next,
		})
	}
	return RunGraphResponse{
		RunID:      run.ID,
		GraphID:    run.GraphID,
		Status:     run.Status,
		FinalState: run.FinalState,
		Trace:      trace,
		FailedNode: run.FailedNode,
		Error:      run.Error,
	}
}
