package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format and Version identify the artifact documents this package reads.
const (
	Format  = "ckd-forest"
	Version = 1
)

// Document is the on-disk artifact written by the training job.
type Document struct {
	Format   string             `json:"format" yaml:"format"`
	Version  int                `json:"version" yaml:"version"`
	Features []string           `json:"features" yaml:"features"`
	Imputer  map[string]float64 `json:"imputer" yaml:"imputer"`
	Classes  []string           `json:"classes" yaml:"classes"`
	Trees    []TreeDoc          `json:"trees" yaml:"trees"`
}

// TreeDoc lists the nodes of one tree; node 0 is the root.
type TreeDoc struct {
	Nodes []NodeDoc `json:"nodes" yaml:"nodes"`
}

// NodeDoc is a split (Feature, Threshold, Left, Right) or a leaf (Value holds
// per-class weights).
type NodeDoc struct {
	Feature   int       `json:"feature,omitempty" yaml:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Left      int       `json:"left,omitempty" yaml:"left,omitempty"`
	Right     int       `json:"right,omitempty" yaml:"right,omitempty"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// LoadFunc decodes the file at path into an Artifact.
type LoadFunc func(path string) (*Artifact, error)

// LoadFile reads and decodes an artifact file. YAML is chosen by extension
// (.yaml, .yml); anything else is read as JSON.
func LoadFile(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &doc)
	default:
		err = DecodeJSON(bytes.NewReader(b), &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(path, &doc)
}

// DecodeJSON decodes a JSON artifact document.
func DecodeJSON(r io.Reader, doc *Document) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(doc)
}

// FromDocument validates doc and compiles it into an Artifact.
func FromDocument(path string, doc *Document) (*Artifact, error) {
	if doc.Format != Format {
		return nil, fmt.Errorf("unsupported artifact format %q", doc.Format)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported artifact version %d (want %d)", doc.Version, Version)
	}
	labels, err := NewLabelDecoder(doc.Classes)
	if err != nil {
		return nil, err
	}
	forest, err := buildForest(doc)
	if err != nil {
		return nil, err
	}
	a, err := New(path, forest, labels)
	if err != nil {
		return nil, err
	}
	a.Features = append([]string(nil), doc.Features...)
	return a, nil
}

// WriteJSON encodes doc as JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
