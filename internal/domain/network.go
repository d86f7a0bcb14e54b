package domain

import "time"

// NetworkDocument is the complete, mutable description of a duct network
// used for import, export and persistence
type NetworkDocument struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	FlowUnit  FlowUnit  `json:"flow_unit"`
	Nodes     []Node    `json:"nodes"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewNetworkDocument creates an empty document declaring flows in L/s
func NewNetworkDocument(id, name string) *NetworkDocument {
	return &NetworkDocument{
		ID:       id,
		Name:     name,
		FlowUnit: LitersPerSecond,
		Nodes:    make([]Node, 0),
	}
}

// AddNode adds a node to the document
func (d *NetworkDocument) AddNode(node Node) {
	d.Nodes = append(d.Nodes, node)
}

// FindNode returns a pointer into the document's node list
func (d *NetworkDocument) FindNode(id NodeID) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Link joins two connectors symmetrically and marks both connected.
// It reports false if either connector does not exist.
func (d *NetworkDocument) Link(a, b ConnectorRef) bool {
	na, nb := d.FindNode(a.Owner), d.FindNode(b.Owner)
	if na == nil || nb == nil {
		return false
	}
	if a.Index < 0 || a.Index >= len(na.Connectors) || b.Index < 0 || b.Index >= len(nb.Connectors) {
		return false
	}
	ca := &na.Connectors[a.Index]
	if !ca.HasPeer(b) {
		ca.Peers = append(ca.Peers, b)
	}
	ca.Connected = true
	cb := &nb.Connectors[b.Index]
	if !cb.HasPeer(a) {
		cb.Peers = append(cb.Peers, a)
	}
	cb.Connected = true
	return true
}

// NetworkSummary is a listing entry for a stored network
type NetworkSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	FlowUnit  FlowUnit  `json:"flow_unit"`
	NodeCount int       `json:"node_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Network is an immutable, read-only snapshot of a duct network. All
// methods are safe for concurrent use.
type Network struct {
	id         string
	unit       FlowUnit
	nodes      map[NodeID]*Node
	order      []NodeID
	classifier *Classifier
}

// NewNetwork builds a snapshot from a document. The document is copied, so
// later changes to it do not affect the snapshot. A nil classifier uses the
// default terminal categories.
func NewNetwork(doc *NetworkDocument, classifier *Classifier) *Network {
	if classifier == nil {
		classifier = NewClassifier()
	}
	unit := doc.FlowUnit
	if unit == "" {
		unit = LitersPerSecond
	}

	n := &Network{
		id:         doc.ID,
		unit:       unit,
		nodes:      make(map[NodeID]*Node, len(doc.Nodes)),
		order:      make([]NodeID, 0, len(doc.Nodes)),
		classifier: classifier,
	}

	for i := range doc.Nodes {
		node := doc.Nodes[i].Clone()
		// Owner and index are positional; normalize whatever the source said
		for idx := range node.Connectors {
			node.Connectors[idx].Index = idx
			node.Connectors[idx].Owner = node.ID
		}
		if _, dup := n.nodes[node.ID]; !dup {
			n.order = append(n.order, node.ID)
		}
		n.nodes[node.ID] = node
	}

	return n
}

// ID returns the network identifier
func (n *Network) ID() string {
	return n.id
}

// FlowUnit returns the unit the source document declared airflow in
func (n *Network) FlowUnit() FlowUnit {
	return n.unit
}

// Len returns the number of nodes in the snapshot
func (n *Network) Len() int {
	return len(n.nodes)
}

// NodeIDs returns node identifiers in document order
func (n *Network) NodeIDs() []NodeID {
	out := make([]NodeID, len(n.order))
	copy(out, n.order)
	return out
}

// Node returns a copy of a node
func (n *Network) Node(id NodeID) (*Node, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// Resolve looks up a node reference
func (n *Network) Resolve(id NodeID) (NodeID, bool) {
	if _, ok := n.nodes[id]; !ok {
		return "", false
	}
	return id, true
}

// Connectors returns the node's connectors in declaration order, or false
// if the node is unknown or exposes none. The returned slice must not be
// modified.
func (n *Network) Connectors(id NodeID) ([]Connector, bool) {
	node, ok := n.nodes[id]
	if !ok || len(node.Connectors) == 0 {
		return nil, false
	}
	return node.Connectors, true
}

// Airflow returns the node's declared airflow in liters per second, or
// false if the parameter is absent or not numeric.
func (n *Network) Airflow(id NodeID) (float64, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return 0, false
	}
	v, ok := node.GetParameterFloat(ParamAirflow)
	if !ok {
		return 0, false
	}
	return n.unit.ToLitersPerSecond(v), true
}

// Classify returns the node's classification. Unknown nodes are
// pass-through.
func (n *Network) Classify(id NodeID) Classification {
	node, ok := n.nodes[id]
	if !ok {
		return PassThrough
	}
	return n.classifier.Classify(node.Category)
}

// Category returns the node's category
func (n *Network) Category(id NodeID) (Category, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return "", false
	}
	return node.Category, true
}
