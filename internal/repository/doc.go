// Package repository defines the data access interfaces for ductflow.
//
// This package provides the repository abstraction layer for persisting
// and retrieving duct networks. The actual implementation is in the
// sqlite subpackage.
//
// # Repository Interface
//
// The Repository interface stores whole network documents: the network
// header, its nodes, their connectors and the ordered peer list of every
// connector. Saving a network replaces its previous contents atomically.
//
// Peer references are stored as plain identifiers without foreign keys, so
// a network whose connectors reference nodes that no longer exist can be
// stored and read back unchanged. Detecting such references is left to the
// airflow traversal.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure-Go modernc.org/sqlite driver with
// WAL mode for file databases. It handles:
//
// - Transactional replace of a network's nodes and connectors
// - JSON serialization of node parameters
// - Order preservation for nodes, connectors and peers
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
