package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ductflow/internal/domain"
)

// nullToString maps NULL to ""
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull stores "" as NULL
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt converts a bool to the 0/1 integer sqlite stores
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Timestamps are stored as RFC 3339 text so they sort and read back
// identically regardless of driver time handling.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// unmarshalJSONField leaves target untouched for NULL or empty columns
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull encodes v as JSON text; nil and empty parameter maps become NULL
func marshalToNull(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type networkRow struct {
	ID        string
	Name      sql.NullString
	FlowUnit  string
	CreatedAt string
	UpdatedAt string
}

// scanArgs order matches networkColumns
func (r *networkRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Name,
		&r.FlowUnit,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

func (r *networkRow) toDomain() (*domain.NetworkDocument, error) {
	doc := domain.NewNetworkDocument(r.ID, nullToString(r.Name))
	doc.FlowUnit = domain.FlowUnit(r.FlowUnit)

	var err error
	if doc.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if doc.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return doc, nil
}

const networkColumns = `id, name, flow_unit, created_at, updated_at`

type nodeRow struct {
	ID             string
	Category       string
	Label          sql.NullString
	ParametersJSON sql.NullString
}

// scanArgs order matches nodeColumns
func (r *nodeRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Category,
		&r.Label,
		&r.ParametersJSON,
	}
}

// toDomain converts the scanned row to a domain.Node without connectors
func (r *nodeRow) toDomain() (*domain.Node, error) {
	node := domain.NewNode(domain.NodeID(r.ID), domain.Category(r.Category), nullToString(r.Label))

	if err := unmarshalJSONField(r.ParametersJSON, &node.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	if node.Parameters == nil {
		node.Parameters = make(map[string]any)
	}

	return node, nil
}

const nodeColumns = `id, category, label, parameters`

// nodeInsertArgs builds the INSERT arguments for a node row
func nodeInsertArgs(networkID string, ordinal int, node *domain.Node) ([]any, error) {
	params, err := marshalToNull(node.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}
	return []any{
		networkID,
		string(node.ID),
		ordinal,
		string(node.Category),
		stringToNull(node.Label),
		params,
	}, nil
}

type connectorRow struct {
	NodeID    string
	Index     int
	Kind      string
	Connected int
}

// scanArgs order matches connectorColumns
func (r *connectorRow) scanArgs() []any {
	return []any{
		&r.NodeID,
		&r.Index,
		&r.Kind,
		&r.Connected,
	}
}

func (r *connectorRow) toDomain() domain.Connector {
	return domain.Connector{
		Index:     r.Index,
		Kind:      domain.ConnectorKind(r.Kind),
		Connected: r.Connected != 0,
		Owner:     domain.NodeID(r.NodeID),
	}
}

const connectorColumns = `node_id, idx, kind, connected`

// peerRow is one side of a stored link
type peerRow struct {
	NodeID     string
	Index      int
	PeerNodeID string
	PeerIndex  int
}

// scanArgs order matches peerColumns
func (r *peerRow) scanArgs() []any {
	return []any{
		&r.NodeID,
		&r.Index,
		&r.PeerNodeID,
		&r.PeerIndex,
	}
}

func (r *peerRow) toDomain() domain.ConnectorRef {
	return domain.ConnectorRef{Owner: domain.NodeID(r.PeerNodeID), Index: r.PeerIndex}
}

const peerColumns = `node_id, idx, peer_node_id, peer_idx`
