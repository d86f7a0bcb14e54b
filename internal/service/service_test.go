package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ductflow/internal/airflow"
	"ductflow/internal/codec"
	"ductflow/internal/domain"
	"ductflow/internal/repository"
	"ductflow/internal/repository/sqlite"
)

const officeYAML = `
id: office
name: Office supply
nodes:
  - id: D1
    category: duct
    connectors: [{kind: end}, {kind: end}]
  - id: F1
    category: duct_fitting
    connectors: [{kind: end}, {kind: end}, {kind: end}]
  - id: D2
    category: duct
    connectors: [{kind: end}, {kind: end}]
  - id: T1
    category: duct_terminal
    parameters: {airflow: 50}
    connectors: [{kind: end}]
  - id: T2
    category: duct_terminal
    parameters: {airflow: 75}
    connectors: [{kind: end}]
links:
  - {from: {node: D1, connector: 1}, to: {node: F1, connector: 0}}
  - {from: {node: F1, connector: 1}, to: {node: D2, connector: 0}}
  - {from: {node: F1, connector: 2}, to: {node: T1, connector: 0}}
  - {from: {node: D2, connector: 1}, to: {node: T2, connector: 0}}
`

type testEnv struct {
	bus      *EventBus
	events   chan Event
	networks *NetworkService
	airflow  *AirflowService
}

func newTestEnv(t *testing.T, opts AirflowOptions) *testEnv {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	networks := NewNetworkService(repo, bus, nil, nil)
	return &testEnv{
		bus:      bus,
		events:   events,
		networks: networks,
		airflow:  NewAirflowService(networks, bus, opts, nil),
	}
}

func (e *testEnv) importOffice(t *testing.T) *ImportResult {
	t.Helper()
	result, err := e.networks.Import(context.Background(), "yaml", strings.NewReader(officeYAML))
	require.NoError(t, err)
	return result
}

func (e *testEnv) nextEvent(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return Event{}
	}
}

func TestNetworkServiceImport(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})

	result := env.importOffice(t)
	assert.Equal(t, "office", result.NetworkID)
	assert.Equal(t, 5, result.NodeCount)
	assert.Equal(t, 2, result.Terminals)
	assert.False(t, result.Replaced)
	assert.Equal(t, domain.LitersPerSecond, result.FlowUnit)

	ev := env.nextEvent(t)
	assert.Equal(t, EventNetworkImported, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.Same(t, result, ev.Payload)

	again := env.importOffice(t)
	assert.True(t, again.Replaced)

	list, err := env.networks.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].NodeCount)
}

func TestNetworkServiceImportErrors(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()

	_, err := env.networks.Import(ctx, "xml", strings.NewReader(officeYAML))
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)

	_, err = env.networks.Import(ctx, "yaml", strings.NewReader("nodes: []\n"))
	assert.ErrorIs(t, err, codec.ErrInvalidDocument)

	select {
	case ev := <-env.events:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestNetworkServiceGetAndDelete(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()
	env.importOffice(t)

	doc, err := env.networks.Get(ctx, "office")
	require.NoError(t, err)
	assert.Equal(t, "Office supply", doc.Name)

	node, err := env.networks.GetNode(ctx, "office", "T2")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryDuctTerminal, node.Category)

	_, err = env.networks.GetNode(ctx, "office", "T9")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = env.networks.GetNode(ctx, "nowhere", "T1")
	assert.ErrorIs(t, err, ErrNetworkNotFound)

	require.NoError(t, env.networks.Delete(ctx, "office"))
	_, err = env.networks.Get(ctx, "office")
	assert.ErrorIs(t, err, ErrNetworkNotFound)

	err = env.networks.Delete(ctx, "office")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestNetworkServiceSnapshotCache(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()
	env.importOffice(t)

	first, err := env.networks.Snapshot(ctx, "office")
	require.NoError(t, err)

	hits := testutil.ToFloat64(snapshotCacheHits)
	second, err := env.networks.Snapshot(ctx, "office")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, hits+1, testutil.ToFloat64(snapshotCacheHits))

	env.importOffice(t)
	third, err := env.networks.Snapshot(ctx, "office")
	require.NoError(t, err)
	assert.NotSame(t, first, third, "re-import drops the cached snapshot")

	require.NoError(t, env.networks.Delete(ctx, "office"))
	_, err = env.networks.Snapshot(ctx, "office")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

// pausingRepo blocks the first armed GetNetwork after it has read from the
// underlying store
type pausingRepo struct {
	repository.Repository
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepo) GetNetwork(ctx context.Context, id string) (*domain.NetworkDocument, error) {
	doc, err := r.Repository.GetNetwork(ctx, id)
	if r.armed.CompareAndSwap(true, false) {
		close(r.read)
		<-r.release
	}
	return doc, err
}

func singleTerminalYAML(airflow int) string {
	return fmt.Sprintf(`
id: zone
flow_unit: L/s
nodes:
  - {id: D1, category: duct, connectors: [{kind: end}]}
  - {id: T1, category: duct_terminal, parameters: {airflow: %d}, connectors: [{kind: end}]}
links:
  - {from: {node: D1, connector: 0}, to: {node: T1, connector: 0}}
`, airflow)
}

func TestNetworkServiceSnapshotReimportDuringRead(t *testing.T) {
	base, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })

	repo := &pausingRepo{Repository: base, read: make(chan struct{}), release: make(chan struct{})}
	networks := NewNetworkService(repo, nil, nil, nil)
	airflowSvc := NewAirflowService(networks, nil, AirflowOptions{}, nil)
	ctx := context.Background()

	_, err = networks.Import(ctx, "yaml", strings.NewReader(singleTerminalYAML(10)))
	require.NoError(t, err)

	repo.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := networks.Snapshot(ctx, "zone")
		done <- err
	}()

	<-repo.read
	_, err = networks.Import(ctx, "yaml", strings.NewReader(singleTerminalYAML(99)))
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	result, err := airflowSvc.Compute(ctx, "zone", "D1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, result.Total)
}

func TestNetworkServiceExport(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()
	env.importOffice(t)

	var buf bytes.Buffer
	require.NoError(t, env.networks.Export(ctx, "office", "json", &buf))

	doc, err := codec.NewJSONCodec().Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "office", doc.ID)
	assert.Len(t, doc.Nodes, 5)

	err = env.networks.Export(ctx, "missing", "yaml", &buf)
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestAirflowServiceCompute(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()
	env.importOffice(t)
	env.nextEvent(t)

	okBefore := testutil.ToFloat64(computationsTotal.WithLabelValues(statusOK))

	result, err := env.airflow.Compute(ctx, "office", "D1")
	require.NoError(t, err)
	assert.Equal(t, 125.0, result.Total)
	assert.Equal(t, airflow.Unit, result.Unit)
	assert.Equal(t, []domain.NodeID{"D1", "F1", "D2"}, result.Expanded)
	assert.Len(t, result.Contributions, 2)
	assert.NotEmpty(t, result.ID)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues(statusOK)))

	ev := env.nextEvent(t)
	assert.Equal(t, EventAirflowComputed, ev.Type)

	fromD2, err := env.airflow.Compute(ctx, "office", "D2")
	require.NoError(t, err)
	assert.Equal(t, 125.0, fromD2.Total, "cycle-free graph reaches both terminals from D2")
}

func TestAirflowServiceErrors(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	ctx := context.Background()
	env.importOffice(t)
	env.nextEvent(t)

	_, err := env.airflow.Compute(ctx, "missing", "D1")
	assert.ErrorIs(t, err, ErrNetworkNotFound)

	_, err = env.airflow.Compute(ctx, "office", "X1")
	assert.ErrorIs(t, err, airflow.ErrNoConnectors)

	ev := env.nextEvent(t)
	assert.Equal(t, EventAirflowFailed, ev.Type)
}

func TestAirflowServiceStartFilter(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{
		StartCategories: []domain.Category{domain.CategoryDuct, domain.CategoryFlexDuct},
	})
	ctx := context.Background()
	env.importOffice(t)

	_, err := env.airflow.Compute(ctx, "office", "F1")
	assert.ErrorIs(t, err, ErrStartNotAllowed)

	result, err := env.airflow.Compute(ctx, "office", "D1")
	require.NoError(t, err)
	assert.Equal(t, 125.0, result.Total)

	_, err = env.airflow.Compute(ctx, "office", "nope")
	assert.ErrorIs(t, err, airflow.ErrNoConnectors, "unknown starts reach the aggregator")
}

func TestAirflowServiceLimit(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{MaxExpansions: 2})
	env.importOffice(t)

	_, err := env.airflow.Compute(context.Background(), "office", "D1")
	assert.ErrorIs(t, err, airflow.ErrTraversalLimit)
}

func TestAirflowServiceCancelled(t *testing.T) {
	env := newTestEnv(t, AirflowOptions{})
	env.importOffice(t)

	ctx := context.Background()
	_, err := env.networks.Snapshot(ctx, "office")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = env.airflow.Compute(cancelled, "office", "D1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 1)
	slow := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(slow)

	dropped := testutil.ToFloat64(eventsDropped)
	bus.Publish(NewEvent(EventNetworkDeleted, nil))

	ev := <-fast
	assert.Equal(t, EventNetworkDeleted, ev.Type)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, dropped+1, testutil.ToFloat64(eventsDropped))

	bus.Unsubscribe(fast)
	bus.Publish(NewEvent(EventNetworkDeleted, nil))
	select {
	case <-fast:
		t.Fatal("unsubscribed channel received an event")
	default:
	}
}

func TestAirflowServiceComputeOn(t *testing.T) {
	doc, err := codec.NewYAMLCodec().Parse(strings.NewReader(officeYAML))
	require.NoError(t, err)

	svc := NewAirflowService(nil, nil, AirflowOptions{}, nil)
	result, err := svc.ComputeOn(context.Background(), domain.NewNetwork(doc, nil), "F1")
	require.NoError(t, err)
	assert.Equal(t, "office", result.NetworkID)
	assert.Equal(t, 125.0, result.Total)
}
