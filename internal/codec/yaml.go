package codec

import (
	"fmt"
	"io"

	"ductflow/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a network document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.NetworkDocument, error) {
	var w documentWire
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return w.toDomain()
}

// Export exports a network document to YAML
func (c *YAMLCodec) Export(doc *domain.NetworkDocument, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(fromDomain(doc)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
