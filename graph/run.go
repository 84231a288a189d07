package graph

import "time"

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusCompleted means the run reached a finish point, the END
	// sentinel, or a dead end.
	StatusCompleted Status = "completed"

	// StatusFailed means a tool could not be resolved, a tool invocation
	// failed, a router returned an unknown node, or the run was cancelled.
	StatusFailed Status = "failed"

	// StatusMaxStepsExceeded means the step budget ran out before a
	// terminal node was reached. This is a deliberate outcome of the loop
	// guard, not an error: the record carries the full trace and the last
	// computed state.
	StatusMaxStepsExceeded Status = "max_steps_exceeded"
)

// TraceEntry records one node invocation. Entries are append-only; a node
// revisited by a loop produces one entry per invocation.
type TraceEntry struct {
	// Step is the zero-based position of the invocation in the run.
	Step int `json:"step"`

	// Node is the name of the invoked node.
	Node string `json:"node_name"`

	// Timestamp is when the invocation started.
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the tool took.
	Duration time.Duration `json:"duration"`

	// State is a deep snapshot of the state after the node ran.
	State State `json:"state_snapshot"`

	// Next is the routing decision taken after the node ran: the next node
	// name or END. Empty for the final entry of a run that ended on a
	// finish point or a dead end.
	Next string `json:"next,omitempty"`
}

// Run is the record of one complete traversal: final state, full trace and
// terminal status, keyed by a generated run identifier.
type Run struct {
	ID      string `json:"run_id"`
	GraphID string `json:"graph_id"`

	Status Status `json:"status"`

	// FinalState is the state produced by the last successful invocation.
	FinalState State `json:"final_state"`

	Trace []TraceEntry `json:"trace"`

	// FailedNode names the node whose attempt failed the run. Failed
	// attempts do not produce trace entries.
	FailedNode string `json:"failed_node,omitempty"`

	// Error describes the failure for serialized records; Err carries the
	// typed error for in-process callers.
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Steps returns the number of node invocations recorded in the trace.
func (r *Run) Steps() int { return len(r.Trace) }

func (r *Run) finish(status Status, state State) {
	r.Status = status
	r.FinalState = state
	r.FinishedAt = time.Now()
}

func (r *Run) fail(node string, state State, err error) {
	r.FailedNode = node
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
	r.finish(StatusFailed, state)
}
