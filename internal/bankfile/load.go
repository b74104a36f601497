package bankfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opobank/backend/internal/domain/questionbank"
)

// SupportedVersion is the only bank file schema version understood.
const SupportedVersion = 1

// Document is the on-disk envelope around a bank.
type Document struct {
	Version    int                     `json:"version" yaml:"version"`
	Categories []questionbank.Category `json:"categories" yaml:"categories"`
}

// LoadFile reads a bank file and loads it into a validated repository.
// Files ending in .json are decoded as JSON, anything else as YAML.
func LoadFile(path string) (*questionbank.Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	doc, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	return doc.Load()
}

// Parse decodes a bank file without validating its content.
func Parse(data []byte, path string) (Document, error) {
	var (
		doc Document
		err error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		doc, err = parseJSON(data)
	} else {
		doc, err = parseYAML(data)
	}
	if err != nil {
		return Document{}, err
	}
	if doc.Version == 0 {
		return Document{}, fmt.Errorf("bank file %s: version is required", path)
	}
	if doc.Version != SupportedVersion {
		return Document{}, fmt.Errorf("bank file %s: unsupported version %d", path, doc.Version)
	}
	return doc, nil
}

// Load validates the document's categories.
func (d Document) Load() (*questionbank.Repository, error) {
	return questionbank.Load(questionbank.Bank{Categories: d.Categories})
}

func parseJSON(data []byte) (Document, error) {
	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Document{}, fmt.Errorf("parse json: multiple documents are not supported")
		}
		return Document{}, fmt.Errorf("parse json: %w", err)
	}
	return doc, nil
}

func parseYAML(data []byte) (Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Document{}, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	return doc, nil
}
