// Package airflow aggregates terminal airflow downstream of a duct network
// node.
//
// An Aggregator walks the network depth first from a start node, discovering
// connectivity one node at a time through the Network interface. Only
// connected end and curve connectors are followed. Terminal nodes contribute
// their declared airflow and are never expanded; every other node is expanded
// at most once per traversal, which keeps the walk finite on cyclic networks.
//
// The walk uses an explicit work stack and a per-call visited set, so deep
// networks cannot exhaust the goroutine stack and concurrent traversals over
// the same read-only network never share state.
//
// Terminal nodes are never recorded as visited. A terminal joined to two
// expanded nodes is therefore counted once for each of them.
package airflow
