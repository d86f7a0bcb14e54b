// Package loader reads network documents from files on disk.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ductflow/internal/codec"
	"ductflow/internal/domain"
)

// FormatForPath picks a codec format from a file extension
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: cannot infer format from %q", codec.ErrUnsupportedFormat, path)
	}
}

// LoadFile parses the network document at path
func LoadFile(path string) (*domain.NetworkDocument, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()

	doc, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// SaveFile writes a document to path in the format implied by its extension
func SaveFile(path string, doc *domain.NetworkDocument) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create network file: %w", err)
	}
	if err := c.Export(doc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
