package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"ductflow/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a network document from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.NetworkDocument, error) {
	var w documentWire
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return w.toDomain()
}

// Export exports a network document to JSON
func (c *JSONCodec) Export(doc *domain.NetworkDocument, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fromDomain(doc)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
