// Package service implements business logic for ductflow.
//
// Services coordinate between the HTTP handlers, the CLI and the repository
// layer.
//
// # Services
//
// NetworkService imports, lists, exports and deletes duct network documents
// and hands out immutable snapshots for traversal. Snapshots are cached per
// network and dropped whenever the network is re-imported or deleted.
//
// AirflowService runs the airflow aggregator against a snapshot, applies the
// configured start category filter and records Prometheus metrics.
//
// # Event System
//
// Both services publish events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE).
package service
