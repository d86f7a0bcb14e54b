// Package domain defines the core domain types for the ductflow airflow
// aggregation system.
//
// This package contains the entities and value objects that describe a
// mechanical (HVAC) duct network: the nodes that make it up, the connectors
// through which nodes join one another, and the read-only network snapshot
// that answers connectivity and airflow questions for a traversal.
//
// # Core Types
//
// Node represents a network element (duct segment, fitting, terminal device
// or other mechanical component) with a category, a free-form parameter map
// and an ordered list of connectors.
//
// Connector represents a point on a node where it may join other nodes. Only
// end and curve connectors are physical joints; other kinds are never
// followed by a traversal.
//
// NetworkDocument is the import/export shape of a whole network.
//
// Network is an immutable snapshot built from a NetworkDocument. It resolves
// node references, reports connectors, classifies nodes as terminals or
// pass-through elements and reports terminal airflow in liters per second.
//
// # Units
//
// FlowUnit names the unit in which a document declares airflow parameters.
// The snapshot converts every value to liters per second.
//
// # Design Principles
//
// - Snapshots are immutable and safe for concurrent reads
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
package domain
