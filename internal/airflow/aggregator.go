package airflow

import (
	"context"
	"log/slog"

	"ductflow/internal/domain"
)

// Unit is the unit every aggregated total is expressed in
const Unit = domain.LitersPerSecond

// Network is the read-only view of a duct network a traversal consumes.
// Implementations must be safe for concurrent reads if traversals run in
// parallel.
type Network interface {
	// Connectors returns the node's connectors, or false if it exposes none
	Connectors(id domain.NodeID) ([]domain.Connector, bool)
	// Airflow returns the declared airflow in L/s, or false if absent or not numeric
	Airflow(id domain.NodeID) (float64, bool)
	// Classify reports whether the node is a terminal
	Classify(id domain.NodeID) domain.Classification
	// Resolve looks up a node reference, false if it does not exist
	Resolve(id domain.NodeID) (domain.NodeID, bool)
}

// Contribution records one terminal reading taken during a traversal
type Contribution struct {
	Terminal domain.NodeID `json:"terminal"`
	Via      domain.NodeID `json:"via"`
	Airflow  float64       `json:"airflow"`
	// Declared is false when the terminal had no readable airflow
	Declared bool `json:"declared"`
}

// Report is the outcome of a traversal
type Report struct {
	Start         domain.NodeID   `json:"start"`
	Total         float64         `json:"total"`
	Unit          domain.FlowUnit `json:"unit"`
	Expanded      []domain.NodeID `json:"expanded"`
	Contributions []Contribution  `json:"contributions"`
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithLogger sets the logger used for traversal diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxExpansions bounds the number of nodes a traversal may expand.
// Zero or a negative value means unlimited.
func WithMaxExpansions(n int) Option {
	return func(a *Aggregator) {
		a.maxExpansions = n
	}
}

// Aggregator sums terminal airflow reachable from a start node
type Aggregator struct {
	network       Network
	logger        *slog.Logger
	maxExpansions int
}

// New creates an aggregator over a network
func New(network Network, opts ...Option) *Aggregator {
	a := &Aggregator{
		network: network,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComputeTotalAirflow returns the total airflow in L/s of every terminal
// reachable from start.
func (a *Aggregator) ComputeTotalAirflow(start domain.NodeID) (float64, error) {
	return a.ComputeTotalAirflowContext(context.Background(), start)
}

// ComputeTotalAirflowContext is ComputeTotalAirflow with cancellation,
// checked once per node expansion.
func (a *Aggregator) ComputeTotalAirflowContext(ctx context.Context, start domain.NodeID) (float64, error) {
	report, err := a.Compute(ctx, start)
	if err != nil {
		return 0, err
	}
	return report.Total, nil
}

// Compute traverses from start and returns the total together with the
// expansion order and every terminal contribution. No partial report is
// returned on error.
func (a *Aggregator) Compute(ctx context.Context, start domain.NodeID) (*Report, error) {
	id, ok := a.network.Resolve(start)
	if !ok {
		return nil, &AggregationError{Node: start, Err: ErrNoConnectors}
	}
	if conns, ok := a.network.Connectors(id); !ok || len(conns) == 0 {
		return nil, &AggregationError{Node: id, Err: ErrNoConnectors}
	}

	report := &Report{
		Start:         id,
		Unit:          Unit,
		Expanded:      make([]domain.NodeID, 0),
		Contributions: make([]Contribution, 0),
	}

	visited := make(map[domain.NodeID]struct{})
	stack := []domain.NodeID{id}
	var next []domain.NodeID

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[node]; seen {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.maxExpansions > 0 && len(report.Expanded) >= a.maxExpansions {
			return nil, &AggregationError{Node: node, Err: ErrTraversalLimit}
		}

		visited[node] = struct{}{}
		report.Expanded = append(report.Expanded, node)

		next = next[:0]
		conns, _ := a.network.Connectors(node)
		for _, c := range conns {
			if !c.Kind.IsTraversable() || !c.Connected {
				continue
			}
			for _, peer := range c.Peers {
				if peer.Owner == node {
					continue
				}
				neighbor, ok := a.network.Resolve(peer.Owner)
				if !ok {
					a.logger.Debug("unresolved peer",
						"node", node, "connector", c.Index, "peer", peer.String())
					return nil, &AggregationError{Node: peer.Owner, Via: node, Err: ErrUnresolvedNode}
				}

				if a.network.Classify(neighbor) == domain.Terminal {
					flow, declared := a.network.Airflow(neighbor)
					if !declared {
						flow = 0
					}
					report.Total += flow
					report.Contributions = append(report.Contributions, Contribution{
						Terminal: neighbor,
						Via:      node,
						Airflow:  flow,
						Declared: declared,
					})
					continue
				}

				if _, seen := visited[neighbor]; !seen {
					next = append(next, neighbor)
				}
			}
		}

		// Reverse push so the first discovered neighbor is expanded first
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	a.logger.Debug("airflow traversal complete",
		"start", id,
		"total", report.Total,
		"expanded", len(report.Expanded),
		"terminals", len(report.Contributions))

	return report, nil
}
