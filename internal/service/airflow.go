package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ductflow/internal/airflow"
	"ductflow/internal/domain"
)

// ErrStartNotAllowed is returned when the start node's category is not one
// the service accepts as a traversal start
var ErrStartNotAllowed = errors.New("start node category not allowed")

// ComputeResult is the outcome of an airflow computation
type ComputeResult struct {
	ID            string                 `json:"id"`
	NetworkID     string                 `json:"network_id"`
	Start         domain.NodeID          `json:"start"`
	Total         float64                `json:"total"`
	Unit          domain.FlowUnit        `json:"unit"`
	Expanded      []domain.NodeID        `json:"expanded"`
	Contributions []airflow.Contribution `json:"contributions"`
	Duration      time.Duration          `json:"duration_ns"`
}

// AirflowOptions configures an AirflowService
type AirflowOptions struct {
	// StartCategories restricts which categories may start a traversal.
	// Empty allows any.
	StartCategories []domain.Category
	// MaxExpansions bounds a traversal; zero means unlimited
	MaxExpansions int
}

// AirflowService runs airflow aggregation over stored networks. The
// network service may be nil when only ComputeOn is used.
type AirflowService struct {
	networks      *NetworkService
	eventBus      *EventBus
	logger        *slog.Logger
	startAllowed  map[domain.Category]bool
	maxExpansions int
}

// NewAirflowService creates a new airflow service
func NewAirflowService(networks *NetworkService, eventBus *EventBus, opts AirflowOptions, logger *slog.Logger) *AirflowService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AirflowService{
		networks:      networks,
		eventBus:      eventBus,
		logger:        logger,
		maxExpansions: opts.MaxExpansions,
	}
	if len(opts.StartCategories) > 0 {
		s.startAllowed = make(map[domain.Category]bool, len(opts.StartCategories))
		for _, c := range opts.StartCategories {
			s.startAllowed[c] = true
		}
	}
	return s
}

// Compute sums the airflow of every terminal reachable from start in the
// stored network
func (s *AirflowService) Compute(ctx context.Context, networkID string, start domain.NodeID) (*ComputeResult, error) {
	snap, err := s.networks.Snapshot(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return s.ComputeOn(ctx, snap, start)
}

// ComputeOn runs a computation against a snapshot that need not be stored,
// such as one loaded straight from a file
func (s *AirflowService) ComputeOn(ctx context.Context, snap *domain.Network, start domain.NodeID) (*ComputeResult, error) {
	networkID := snap.ID()
	if err := s.checkStart(snap, start); err != nil {
		s.fail(networkID, start, err)
		return nil, err
	}

	began := time.Now()
	agg := airflow.New(snap,
		airflow.WithLogger(s.logger),
		airflow.WithMaxExpansions(s.maxExpansions))
	report, err := agg.Compute(ctx, start)
	elapsed := time.Since(began)
	computationDuration.Observe(elapsed.Seconds())
	if err != nil {
		s.fail(networkID, start, err)
		return nil, err
	}
	computationsTotal.WithLabelValues(statusOK).Inc()
	nodesExpanded.Observe(float64(len(report.Expanded)))

	result := &ComputeResult{
		ID:            uuid.NewString(),
		NetworkID:     networkID,
		Start:         report.Start,
		Total:         report.Total,
		Unit:          report.Unit,
		Expanded:      report.Expanded,
		Contributions: report.Contributions,
		Duration:      elapsed,
	}

	s.logger.Info("airflow computed",
		"network", networkID,
		"start", start,
		"total", result.Total,
		"nodes", snap.Len(),
		"expanded", len(result.Expanded),
		"duration", elapsed)

	s.eventBus.Publish(NewEvent(EventAirflowComputed, map[string]interface{}{
		"id":         result.ID,
		"network_id": networkID,
		"start":      start,
		"total":      result.Total,
		"unit":       result.Unit,
	}))

	return result, nil
}

// checkStart applies the start category filter. Unknown nodes pass so the
// aggregator can report them.
func (s *AirflowService) checkStart(snap *domain.Network, start domain.NodeID) error {
	if s.startAllowed == nil {
		return nil
	}
	category, ok := snap.Category(start)
	if !ok || s.startAllowed[category] {
		return nil
	}
	return fmt.Errorf("node %s is a %s: %w", start, category, ErrStartNotAllowed)
}

func (s *AirflowService) fail(networkID string, start domain.NodeID, err error) {
	computationsTotal.WithLabelValues(statusError).Inc()
	s.logger.Warn("airflow computation failed",
		"network", networkID,
		"start", start,
		"error", err)
	s.eventBus.Publish(NewEvent(EventAirflowFailed, map[string]string{
		"network_id": networkID,
		"start":      string(start),
		"error":      err.Error(),
	}))
}
