package codec

import (
	"fmt"
	"io"
	"strings"

	"ductflow/internal/domain"
)

// Importer interface for importing network documents from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.NetworkDocument, error)
	Format() string
}

// Exporter interface for exporting network documents to various formats
type Exporter interface {
	Export(doc *domain.NetworkDocument, w io.Writer) error
	Format() string
}

// Codec both imports and exports a format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name. Empty means yaml.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
