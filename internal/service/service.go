package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"ductflow/internal/codec"
	"ductflow/internal/domain"
	"ductflow/internal/repository"
)

var (
	// ErrNetworkNotFound is returned when a network ID is not stored
	ErrNetworkNotFound = errors.New("network not found")
	// ErrNodeNotFound is returned when a node ID is not part of a network
	ErrNodeNotFound = errors.New("node not found")
)

// ImportResult represents the result of an import operation
type ImportResult struct {
	NetworkID  string          `json:"network_id"`
	Name       string          `json:"name,omitempty"`
	FlowUnit   domain.FlowUnit `json:"flow_unit"`
	NodeCount  int             `json:"node_count"`
	Terminals  int             `json:"terminals"`
	Replaced   bool            `json:"replaced"`
	SourceName string          `json:"source,omitempty"`
}

// NetworkService manages stored duct networks and the immutable snapshots
// traversals run against
type NetworkService struct {
	repo       repository.Repository
	eventBus   *EventBus
	classifier *domain.Classifier
	logger     *slog.Logger

	// generations counts invalidations per network; a snapshot built from
	// a read that overlapped an invalidation is not cached
	mu          sync.RWMutex
	snapshots   map[string]*domain.Network
	generations map[string]uint64
}

// NewNetworkService creates a new network service. A nil classifier
// treats duct_terminal as the only terminal category.
func NewNetworkService(repo repository.Repository, eventBus *EventBus, classifier *domain.Classifier, logger *slog.Logger) *NetworkService {
	if classifier == nil {
		classifier = domain.NewClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkService{
		repo:       repo,
		eventBus:   eventBus,
		classifier: classifier,
		logger:     logger,
		snapshots:   make(map[string]*domain.Network),
		generations: make(map[string]uint64),
	}
}

// Import parses a document in the given format and stores it, replacing
// any network with the same ID
func (s *NetworkService) Import(ctx context.Context, format string, r io.Reader) (*ImportResult, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		importsTotal.WithLabelValues(statusError).Inc()
		return nil, err
	}

	doc, err := c.Parse(r)
	if err != nil {
		importsTotal.WithLabelValues(statusError).Inc()
		return nil, fmt.Errorf("failed to parse %s: %w", c.Format(), err)
	}

	return s.ImportDocument(ctx, doc)
}

// ImportDocument stores an already parsed document
func (s *NetworkService) ImportDocument(ctx context.Context, doc *domain.NetworkDocument) (*ImportResult, error) {
	existing, err := s.repo.GetNetwork(ctx, doc.ID)
	if err != nil {
		importsTotal.WithLabelValues(statusError).Inc()
		return nil, err
	}

	if err := s.repo.SaveNetwork(ctx, doc); err != nil {
		importsTotal.WithLabelValues(statusError).Inc()
		return nil, err
	}
	s.invalidate(doc.ID)
	importsTotal.WithLabelValues(statusOK).Inc()

	result := &ImportResult{
		NetworkID: doc.ID,
		Name:      doc.Name,
		FlowUnit:  doc.FlowUnit,
		NodeCount: len(doc.Nodes),
		Replaced:  existing != nil,
	}
	for i := range doc.Nodes {
		if s.classifier.Classify(doc.Nodes[i].Category) == domain.Terminal {
			result.Terminals++
		}
	}

	s.logger.Info("network imported",
		"network", doc.ID,
		"nodes", result.NodeCount,
		"terminals", result.Terminals,
		"replaced", result.Replaced)

	s.eventBus.Publish(NewEvent(EventNetworkImported, result))

	return result, nil
}

// List returns a summary of every stored network
func (s *NetworkService) List(ctx context.Context) ([]domain.NetworkSummary, error) {
	return s.repo.ListNetworks(ctx)
}

// Get returns a stored network document
func (s *NetworkService) Get(ctx context.Context, id string) (*domain.NetworkDocument, error) {
	doc, err := s.repo.GetNetwork(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("network %s: %w", id, ErrNetworkNotFound)
	}
	return doc, nil
}

// GetNode returns a single node of a stored network
func (s *NetworkService) GetNode(ctx context.Context, networkID string, nodeID domain.NodeID) (*domain.Node, error) {
	node, err := s.repo.GetNode(ctx, networkID, nodeID)
	if err != nil {
		return nil, err
	}
	if node != nil {
		return node, nil
	}

	if doc, err := s.repo.GetNetwork(ctx, networkID); err != nil {
		return nil, err
	} else if doc == nil {
		return nil, fmt.Errorf("network %s: %w", networkID, ErrNetworkNotFound)
	}
	return nil, fmt.Errorf("node %s in network %s: %w", nodeID, networkID, ErrNodeNotFound)
}

// Delete removes a stored network
func (s *NetworkService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteNetwork(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("network %s: %w", id, ErrNetworkNotFound)
		}
		return err
	}
	s.invalidate(id)

	s.logger.Info("network deleted", "network", id)
	s.eventBus.Publish(NewEvent(EventNetworkDeleted, map[string]string{"network_id": id}))

	return nil
}

// Snapshot returns the immutable traversal view of a stored network.
// Snapshots are cached until the network is re-imported or deleted.
func (s *NetworkService) Snapshot(ctx context.Context, id string) (*domain.Network, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[id]
	gen := s.generations[id]
	s.mu.RUnlock()
	if ok {
		snapshotCacheHits.Inc()
		return snap, nil
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap = domain.NewNetwork(doc, s.classifier)

	s.mu.Lock()
	if s.generations[id] == gen {
		s.snapshots[id] = snap
	} else {
		s.logger.Debug("snapshot not cached, network changed during read", "network", id)
	}
	s.mu.Unlock()

	return snap, nil
}

// Export writes a stored network in the given format
func (s *NetworkService) Export(ctx context.Context, id, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.Export(doc, w)
}

func (s *NetworkService) invalidate(id string) {
	s.mu.Lock()
	delete(s.snapshots, id)
	s.generations[id]++
	s.mu.Unlock()
}
