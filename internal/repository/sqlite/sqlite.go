package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ductflow/internal/domain"
	"ductflow/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. ":memory:" opens a private
// in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if dbPath == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS networks (
		id TEXT PRIMARY KEY,
		name TEXT,
		flow_unit TEXT NOT NULL DEFAULT 'L/s',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		network_id TEXT NOT NULL,
		id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		category TEXT NOT NULL,
		label TEXT,
		parameters JSON,
		PRIMARY KEY (network_id, id),
		FOREIGN KEY (network_id) REFERENCES networks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS connectors (
		network_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		kind TEXT NOT NULL,
		connected INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (network_id, node_id, idx),
		FOREIGN KEY (network_id, node_id) REFERENCES nodes(network_id, id) ON DELETE CASCADE
	);

	-- peer_node_id has no foreign key; dangling peers are stored as-is
	CREATE TABLE IF NOT EXISTS connector_peers (
		network_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		peer_node_id TEXT NOT NULL,
		peer_idx INTEGER NOT NULL,
		PRIMARY KEY (network_id, node_id, idx, ord),
		FOREIGN KEY (network_id, node_id, idx) REFERENCES connectors(network_id, node_id, idx) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_ordinal ON nodes(network_id, ordinal);
	CREATE INDEX IF NOT EXISTS idx_nodes_category ON nodes(network_id, category);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Read Operations
// ============================================================================

// GetNetwork loads a complete network document, or nil if it does not exist
func (r *Repository) GetNetwork(ctx context.Context, id string) (*domain.NetworkDocument, error) {
	var row networkRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+networkColumns+` FROM networks WHERE id = ?`, id,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query network: %w", err)
	}

	doc, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	// Load nodes in document order
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE network_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nr nodeRow
		if err := rows.Scan(nr.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := nr.toDomain()
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nr.ID, err)
		}
		doc.AddNode(*node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	index := make(map[domain.NodeID]*domain.Node, len(doc.Nodes))
	for i := range doc.Nodes {
		index[doc.Nodes[i].ID] = &doc.Nodes[i]
	}

	if err := r.loadConnectors(ctx, id, "", index); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetNode loads a single node with its connectors, or nil if it does not exist
func (r *Repository) GetNode(ctx context.Context, networkID string, nodeID domain.NodeID) (*domain.Node, error) {
	var nr nodeRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE network_id = ? AND id = ?`,
		networkID, string(nodeID),
	).Scan(nr.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}

	node, err := nr.toDomain()
	if err != nil {
		return nil, err
	}

	index := map[domain.NodeID]*domain.Node{node.ID: node}
	if err := r.loadConnectors(ctx, networkID, nodeID, index); err != nil {
		return nil, err
	}

	return node, nil
}

// loadConnectors fills connectors and peers for the indexed nodes. An empty
// nodeID loads the whole network.
func (r *Repository) loadConnectors(ctx context.Context, networkID string, nodeID domain.NodeID, index map[domain.NodeID]*domain.Node) error {
	filter := `WHERE network_id = ?`
	args := []interface{}{networkID}
	if nodeID != "" {
		filter += ` AND node_id = ?`
		args = append(args, string(nodeID))
	}

	connRows, err := r.db.QueryContext(ctx,
		`SELECT `+connectorColumns+` FROM connectors `+filter+` ORDER BY node_id, idx`, args...)
	if err != nil {
		return fmt.Errorf("failed to query connectors: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var cr connectorRow
		if err := connRows.Scan(cr.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan connector: %w", err)
		}
		node := index[domain.NodeID(cr.NodeID)]
		if node == nil {
			continue
		}
		node.Connectors = append(node.Connectors, cr.toDomain())
	}
	if err := connRows.Err(); err != nil {
		return fmt.Errorf("error iterating connectors: %w", err)
	}

	peerRows, err := r.db.QueryContext(ctx,
		`SELECT `+peerColumns+` FROM connector_peers `+filter+` ORDER BY node_id, idx, ord`, args...)
	if err != nil {
		return fmt.Errorf("failed to query connector peers: %w", err)
	}
	defer peerRows.Close()

	for peerRows.Next() {
		var pr peerRow
		if err := peerRows.Scan(pr.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan connector peer: %w", err)
		}
		node := index[domain.NodeID(pr.NodeID)]
		if node == nil || pr.Index < 0 || pr.Index >= len(node.Connectors) {
			continue
		}
		c := &node.Connectors[pr.Index]
		c.Peers = append(c.Peers, pr.toDomain())
	}

	return peerRows.Err()
}

// ListNetworks returns a summary of every stored network ordered by ID
func (r *Repository) ListNetworks(ctx context.Context) ([]domain.NetworkSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.flow_unit, n.created_at, n.updated_at,
			(SELECT COUNT(*) FROM nodes WHERE network_id = n.id)
		FROM networks n
		ORDER BY n.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query networks: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.NetworkSummary, 0)
	for rows.Next() {
		var (
			row   networkRow
			count int
		)
		if err := rows.Scan(append(row.scanArgs(), &count)...); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		doc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.NetworkSummary{
			ID:        doc.ID,
			Name:      doc.Name,
			FlowUnit:  doc.FlowUnit,
			NodeCount: count,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return summaries, rows.Err()
}

// ============================================================================
// Write Operations
// ============================================================================

// SaveNetwork inserts a network or replaces the contents of an existing one.
// The original creation time is kept on replace.
func (r *Repository) SaveNetwork(ctx context.Context, doc *domain.NetworkDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("network id is required")
	}
	unit := doc.FlowUnit
	if unit == "" {
		unit = domain.LitersPerSecond
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO networks (id, name, flow_unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			flow_unit = excluded.flow_unit,
			updated_at = excluded.updated_at
	`, doc.ID, stringToNull(doc.Name), string(unit), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert network: %w", err)
	}

	if err := deleteNetworkContents(ctx, tx, doc.ID); err != nil {
		return err
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (network_id, id, ordinal, category, label, parameters)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	connStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connectors (network_id, node_id, idx, kind, connected)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare connector insert: %w", err)
	}
	defer connStmt.Close()

	peerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connector_peers (network_id, node_id, idx, ord, peer_node_id, peer_idx)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare peer insert: %w", err)
	}
	defer peerStmt.Close()

	for ordinal := range doc.Nodes {
		node := &doc.Nodes[ordinal]
		args, err := nodeInsertArgs(doc.ID, ordinal, node)
		if err != nil {
			return fmt.Errorf("node %s: %w", node.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}

		for idx, c := range node.Connectors {
			if _, err := connStmt.ExecContext(ctx,
				doc.ID, string(node.ID), idx, string(c.Kind), boolToInt(c.Connected),
			); err != nil {
				return fmt.Errorf("failed to insert connector %s:%d: %w", node.ID, idx, err)
			}
			for ord, p := range c.Peers {
				if _, err := peerStmt.ExecContext(ctx,
					doc.ID, string(node.ID), idx, ord, string(p.Owner), p.Index,
				); err != nil {
					return fmt.Errorf("failed to insert peer %s:%d -> %s: %w", node.ID, idx, p, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit network: %w", err)
	}
	return nil
}

// DeleteNetwork removes a network and everything it contains
func (r *Repository) DeleteNetwork(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteNetworkContents(ctx, tx, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete network: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("network %s: %w", id, repository.ErrNotFound)
	}

	return tx.Commit()
}

// deleteNetworkContents clears peers, connectors and nodes child-first so it
// does not depend on the foreign_keys pragma being honoured
func deleteNetworkContents(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"connector_peers", "connectors", "nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE network_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
