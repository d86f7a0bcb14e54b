package repository

import (
	"context"
	"errors"

	"ductflow/internal/domain"
)

// ErrNotFound is returned by write operations that target a missing record.
// Read operations return a nil value and a nil error instead.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for duct network data access
type Repository interface {
	// Read operations
	GetNetwork(ctx context.Context, id string) (*domain.NetworkDocument, error)
	ListNetworks(ctx context.Context) ([]domain.NetworkSummary, error)
	GetNode(ctx context.Context, networkID string, nodeID domain.NodeID) (*domain.Node, error)

	// Write operations
	SaveNetwork(ctx context.Context, doc *domain.NetworkDocument) error
	DeleteNetwork(ctx context.Context, id string) error

	// Close releases resources
	Close() error
}
