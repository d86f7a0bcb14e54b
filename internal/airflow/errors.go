package airflow

import (
	"errors"
	"fmt"

	"ductflow/internal/domain"
)

var (
	// ErrNoConnectors means the start node is unknown or exposes no connectors
	ErrNoConnectors = errors.New("start node has no connectors")
	// ErrUnresolvedNode means a connected peer's owner could not be resolved
	ErrUnresolvedNode = errors.New("unresolved node reference")
	// ErrTraversalLimit means the configured expansion limit was reached
	ErrTraversalLimit = errors.New("traversal expansion limit reached")
)

// AggregationError reports the node at which a traversal failed
type AggregationError struct {
	Node domain.NodeID
	// Via is the node being expanded when Node was encountered, if any
	Via domain.NodeID
	Err error
}

func (e *AggregationError) Error() string {
	if e.Via != "" {
		return fmt.Sprintf("airflow: node %q (via %q): %v", e.Node, e.Via, e.Err)
	}
	return fmt.Sprintf("airflow: node %q: %v", e.Node, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
