package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryPointNotSet is returned when a graph is compiled without a
	// start node.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrToolNotFound is wrapped by resolver failures when a node references
	// a tool absent from the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrRunNotFound is wrapped by stores when a run identifier is unknown.
	ErrRunNotFound = errors.New("run not found")
)

// ValidationError reports a malformed graph definition. It is returned by
// Builder.Compile and never occurs during a run.
type ValidationError struct {
	// Element names the offending node or edge.
	Element string

	// Reason describes the violated invariant.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("invalid graph: %s", e.Reason)
	}
	return fmt.Sprintf("invalid graph: %s: %s", e.Element, e.Reason)
}

// RoutingError reports a conditional router that returned a name which is
// neither a node of the graph nor the END sentinel. It fails the run.
type RoutingError struct {
	// Node is the node whose router misbehaved.
	Node string

	// Target is the name the router returned.
	Target string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("router of node %s returned unknown node %q", e.Node, e.Target)
}

// ToolError reports a tool invocation that failed or panicked. It fails the
// run; the state from the last successful step is retained.
type ToolError struct {
	// Node is the node whose tool failed.
	Node string

	// Err is the underlying failure.
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool of node %s failed: %v", e.Node, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
