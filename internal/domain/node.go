package domain

import "math"

// NodeID identifies a network element. It is stable for the lifetime of a
// network snapshot.
type NodeID string

// Category is the host category of a network element
type Category string

const (
	CategoryDuct          Category = "duct"
	CategoryFlexDuct      Category = "flex_duct"
	CategoryDuctFitting   Category = "duct_fitting"
	CategoryDuctAccessory Category = "duct_accessory"
	CategoryDuctTerminal  Category = "duct_terminal"
	CategoryEquipment     Category = "mechanical_equipment"
)

// Classification tells a traversal whether a node is an airflow sink
type Classification int

const (
	// PassThrough nodes contribute nothing themselves and are expanded
	PassThrough Classification = iota
	// Terminal nodes contribute their declared airflow and are never expanded
	Terminal
)

// String returns the classification name
func (c Classification) String() string {
	if c == Terminal {
		return "terminal"
	}
	return "pass_through"
}

// ParamAirflow is the parameter holding a terminal's declared airflow
const ParamAirflow = "airflow"

// Node represents a single element of a duct network
type Node struct {
	ID         NodeID         `json:"id"`
	Category   Category       `json:"category"`
	Label      string         `json:"label,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Connectors []Connector    `json:"connectors,omitempty"`
}

// NewNode creates a new node with initialized parameters
func NewNode(id NodeID, category Category, label string) *Node {
	return &Node{
		ID:         id,
		Category:   category,
		Label:      label,
		Parameters: make(map[string]any),
	}
}

// SetParameter sets a parameter value
func (n *Node) SetParameter(key string, value any) {
	if n.Parameters == nil {
		n.Parameters = make(map[string]any)
	}
	n.Parameters[key] = value
}

// GetParameter gets a parameter value
func (n *Node) GetParameter(key string) (any, bool) {
	if n.Parameters == nil {
		return nil, false
	}
	val, ok := n.Parameters[key]
	return val, ok
}

// GetParameterFloat gets a parameter as a float64. Only numeric values are
// accepted; strings, booleans and composite values report false.
func (n *Node) GetParameterFloat(key string) (float64, bool) {
	val, ok := n.GetParameter(key)
	if !ok {
		return 0, false
	}
	return toFloat(val)
}

// AddConnector appends a connector and returns its index on the node
func (n *Node) AddConnector(kind ConnectorKind) int {
	idx := len(n.Connectors)
	n.Connectors = append(n.Connectors, Connector{
		Index: idx,
		Kind:  kind,
		Owner: n.ID,
	})
	return idx
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	out := &Node{
		ID:       n.ID,
		Category: n.Category,
		Label:    n.Label,
	}
	if n.Parameters != nil {
		out.Parameters = make(map[string]any, len(n.Parameters))
		for k, v := range n.Parameters {
			out.Parameters[k] = v
		}
	}
	if n.Connectors != nil {
		out.Connectors = make([]Connector, len(n.Connectors))
		for i, c := range n.Connectors {
			out.Connectors[i] = c.clone()
		}
	}
	return out
}

// toFloat reports false for non-numeric and non-finite values
func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Classifier maps node categories to a Classification
type Classifier struct {
	terminal map[Category]struct{}
}

// NewClassifier creates a classifier treating the given categories as
// terminals. With no categories it falls back to CategoryDuctTerminal.
func NewClassifier(terminalCategories ...Category) *Classifier {
	if len(terminalCategories) == 0 {
		terminalCategories = []Category{CategoryDuctTerminal}
	}
	c := &Classifier{terminal: make(map[Category]struct{}, len(terminalCategories))}
	for _, cat := range terminalCategories {
		c.terminal[cat] = struct{}{}
	}
	return c
}

// Classify returns the classification for a category
func (c *Classifier) Classify(category Category) Classification {
	if _, ok := c.terminal[category]; ok {
		return Terminal
	}
	return PassThrough
}
