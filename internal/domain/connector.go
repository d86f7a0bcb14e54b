package domain

import "fmt"

// ConnectorKind represents the type of joint a connector provides
type ConnectorKind string

const (
	ConnectorEnd      ConnectorKind = "end"      // Open end of a segment or fitting
	ConnectorCurve    ConnectorKind = "curve"    // Tap along a segment
	ConnectorPhysical ConnectorKind = "physical" // Other physical connector
	ConnectorLogical  ConnectorKind = "logical"  // Non-physical reference
)

// IsTraversable reports whether connectivity through this kind is followed
func (k ConnectorKind) IsTraversable() bool {
	return k == ConnectorEnd || k == ConnectorCurve
}

// IsValid reports whether k is a known connector kind
func (k ConnectorKind) IsValid() bool {
	switch k {
	case ConnectorEnd, ConnectorCurve, ConnectorPhysical, ConnectorLogical:
		return true
	}
	return false
}

// ConnectorRef points at a connector on a node
type ConnectorRef struct {
	Owner NodeID `json:"node"`
	Index int    `json:"connector"`
}

// String renders the reference as node:index
func (r ConnectorRef) String() string {
	return fmt.Sprintf("%s:%d", r.Owner, r.Index)
}

// Connector is a joinable point on a node
type Connector struct {
	Index     int            `json:"index"`
	Kind      ConnectorKind  `json:"kind"`
	Connected bool           `json:"connected"`
	Owner     NodeID         `json:"owner"`
	Peers     []ConnectorRef `json:"peers,omitempty"`
}

// Ref returns a reference to this connector
func (c Connector) Ref() ConnectorRef {
	return ConnectorRef{Owner: c.Owner, Index: c.Index}
}

// HasPeer reports whether ref is already listed as a peer
func (c Connector) HasPeer(ref ConnectorRef) bool {
	for _, p := range c.Peers {
		if p == ref {
			return true
		}
	}
	return false
}

func (c Connector) clone() Connector {
	out := c
	if c.Peers != nil {
		out.Peers = make([]ConnectorRef, len(c.Peers))
		copy(out.Peers, c.Peers)
	}
	return out
}
