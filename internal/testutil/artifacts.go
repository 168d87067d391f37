// Package testutil builds artifact files for tests across packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ckdserve/internal/artifact"
	"ckdserve/internal/features"
)

// Imputer holds plausible training means for every schema field.
var Imputer = map[string]float64{
	"age": 51.5, "bp": 76.5, "sg": 1.017, "bgr": 148, "bu": 57, "sc": 3.07,
	"sod": 137.5, "pot": 4.6, "hemo": 12.5, "pcv": 38.9, "wbcc": 8406, "rbcc": 4.7,
}

func stump(feature string, threshold float64, left, right []float64) artifact.TreeDoc {
	return artifact.TreeDoc{Nodes: []artifact.NodeDoc{
		{Feature: features.Index(feature), Threshold: threshold, Left: 1, Right: 2},
		{Value: left},
		{Value: right},
	}}
}

// GoldenDocument is a three-stump forest that labels fixture 1 "ckd"
// (p=0.8167) and fixture 2 "notckd" (p=0.9).
func GoldenDocument() *artifact.Document {
	return &artifact.Document{
		Format:   artifact.Format,
		Version:  artifact.Version,
		Features: features.Names(),
		Imputer:  Imputer,
		Classes:  []string{"ckd", "notckd"},
		Trees: []artifact.TreeDoc{
			stump("sod", 130, []float64{9, 1}, []float64{1, 9}),
			stump("sg", 1.0175, []float64{8, 2}, []float64{1, 4}),
			stump("pcv", 44, []float64{3, 1}, []float64{0, 5}),
		},
	}
}

// InvertedDocument swaps every leaf of GoldenDocument, so fixture 1 becomes
// "notckd" and fixture 2 becomes "ckd".
func InvertedDocument() *artifact.Document {
	doc := GoldenDocument()
	for i := range doc.Trees {
		for j := range doc.Trees[i].Nodes {
			v := doc.Trees[i].Nodes[j].Value
			if len(v) == 2 {
				doc.Trees[i].Nodes[j].Value = []float64{v[1], v[0]}
			}
		}
	}
	return doc
}

// WriteArtifact writes doc as JSON under dir and returns the path.
func WriteArtifact(t *testing.T, dir, name string, doc *artifact.Document) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create artifact: %v", err)
	}
	defer f.Close()
	if err := artifact.WriteJSON(f, doc); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return p
}

// ReplaceArtifact overwrites path with doc and moves its mtime forward by
// bump relative to the current mtime, so coarse filesystem clocks still
// observe a change.
func ReplaceArtifact(t *testing.T, path string, doc *artifact.Document, bump time.Duration) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	WriteArtifact(t, filepath.Dir(path), filepath.Base(path), doc)
	SetModTime(t, path, fi.ModTime().Add(bump))
}

// CorruptArtifact overwrites path with garbage and bumps its mtime.
func CorruptArtifact(t *testing.T, path string, bump time.Duration) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not an artifact"), 0o644); err != nil {
		t.Fatalf("corrupt artifact: %v", err)
	}
	SetModTime(t, path, fi.ModTime().Add(bump))
}

// SetModTime sets both atime and mtime of path.
func SetModTime(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

// SwapArtifact replaces path atomically: doc is written to a sibling file,
// its mtime moved forward by bump, and the file renamed over path. Readers
// never observe a partial write.
func SwapArtifact(t *testing.T, path string, doc *artifact.Document, bump time.Duration) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	tmp := WriteArtifact(t, filepath.Dir(path), "."+filepath.Base(path)+".tmp", doc)
	SetModTime(t, tmp, fi.ModTime().Add(bump))
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename artifact: %v", err)
	}
}
