package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"ductflow/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for unknown format names
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidDocument wraps every validation failure
	ErrInvalidDocument = errors.New("invalid network document")
)

// validate is a singleton validator instance
var validate = validator.New()

// documentWire is the on-disk shape shared by the YAML and JSON codecs.
// Peers may be listed per connector, or pairs of connectors may be joined
// with links, which fill in peers on both sides.
type documentWire struct {
	ID       string     `json:"id" yaml:"id" validate:"required,max=128"`
	Name     string     `json:"name,omitempty" yaml:"name,omitempty" validate:"max=256"`
	FlowUnit string     `json:"flow_unit,omitempty" yaml:"flow_unit,omitempty" validate:"omitempty,oneof=L/s m3/h m3/s cfm ft3/s"`
	Nodes    []nodeWire `json:"nodes" yaml:"nodes" validate:"dive"`
	Links    []linkWire `json:"links,omitempty" yaml:"links,omitempty" validate:"dive"`
}

type nodeWire struct {
	ID         string          `json:"id" yaml:"id" validate:"required,max=128"`
	Category   string          `json:"category" yaml:"category" validate:"required,max=64"`
	Label      string          `json:"label,omitempty" yaml:"label,omitempty"`
	Parameters map[string]any  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Connectors []connectorWire `json:"connectors,omitempty" yaml:"connectors,omitempty" validate:"dive"`
}

type connectorWire struct {
	Kind      string    `json:"kind" yaml:"kind" validate:"required,oneof=end curve physical logical"`
	Connected bool      `json:"connected,omitempty" yaml:"connected,omitempty"`
	Peers     []refWire `json:"peers,omitempty" yaml:"peers,omitempty" validate:"dive"`
}

type refWire struct {
	Node      string `json:"node" yaml:"node" validate:"required"`
	Connector int    `json:"connector" yaml:"connector" validate:"min=0"`
}

type linkWire struct {
	From refWire `json:"from" yaml:"from"`
	To   refWire `json:"to" yaml:"to"`
}

func (r refWire) toDomain() domain.ConnectorRef {
	return domain.ConnectorRef{Owner: domain.NodeID(r.Node), Index: r.Connector}
}

// toDomain validates the wire document and converts it
func (w *documentWire) toDomain() (*domain.NetworkDocument, error) {
	if err := validate.Struct(w); err != nil {
		return nil, formatValidationError(err)
	}

	unit, err := domain.ParseFlowUnit(w.FlowUnit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc := domain.NewNetworkDocument(w.ID, w.Name)
	doc.FlowUnit = unit

	seen := make(map[string]bool, len(w.Nodes))
	for _, wn := range w.Nodes {
		if seen[wn.ID] {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidDocument, wn.ID)
		}
		seen[wn.ID] = true

		node := domain.NewNode(domain.NodeID(wn.ID), domain.Category(wn.Category), wn.Label)
		for k, v := range wn.Parameters {
			node.SetParameter(k, v)
		}
		if raw, ok := node.GetParameter(domain.ParamAirflow); ok {
			if f, isFloat := raw.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
				return nil, fmt.Errorf("%w: node %q: airflow must be finite", ErrInvalidDocument, wn.ID)
			}
		}
		if flow, ok := node.GetParameterFloat(domain.ParamAirflow); ok && flow < 0 {
			return nil, fmt.Errorf("%w: node %q: airflow must not be negative", ErrInvalidDocument, wn.ID)
		}

		for _, wc := range wn.Connectors {
			idx := node.AddConnector(domain.ConnectorKind(wc.Kind))
			c := &node.Connectors[idx]
			c.Connected = wc.Connected
			for _, p := range wc.Peers {
				c.Peers = append(c.Peers, p.toDomain())
			}
		}
		doc.AddNode(*node)
	}

	for i, l := range w.Links {
		if !doc.Link(l.From.toDomain(), l.To.toDomain()) {
			return nil, fmt.Errorf("%w: link %d joins unknown connector %s or %s",
				ErrInvalidDocument, i, l.From.toDomain(), l.To.toDomain())
		}
	}

	return doc, nil
}

// fromDomain converts a document to its wire form. Connectivity is always
// written as per-connector peers.
func fromDomain(doc *domain.NetworkDocument) *documentWire {
	w := &documentWire{
		ID:       doc.ID,
		Name:     doc.Name,
		FlowUnit: string(doc.FlowUnit),
		Nodes:    make([]nodeWire, 0, len(doc.Nodes)),
	}
	if w.FlowUnit == "" {
		w.FlowUnit = string(domain.LitersPerSecond)
	}

	for _, node := range doc.Nodes {
		wn := nodeWire{
			ID:         string(node.ID),
			Category:   string(node.Category),
			Label:      node.Label,
			Parameters: node.Parameters,
		}
		for _, c := range node.Connectors {
			wc := connectorWire{Kind: string(c.Kind), Connected: c.Connected}
			for _, p := range c.Peers {
				wc.Peers = append(wc.Peers, refWire{Node: string(p.Owner), Connector: p.Index})
			}
			wn.Connectors = append(wn.Connectors, wc)
		}
		w.Nodes = append(w.Nodes, wn)
	}

	return w
}

// formatValidationError converts validator errors into a single readable error
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Namespace(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}
