// Package artifact owns the trained classifier file: decoding it, tracking its
// modification time and publishing fresh copies to concurrent readers.
//
//   - artifact.go: Artifact and the Classifier contract.
//   - forest.go: tree-ensemble classifier (soft-voting random forest).
//   - labels.go: LabelDecoder and CSV label fitting.
//   - codec.go: JSON/YAML artifact documents.
//   - store.go: Store, freshness checks and build-then-publish swaps.
//   - watch.go: optional fsnotify trigger for eager reloads.
//   - errors.go, metrics.go: error kinds and Prometheus counters.
package artifact

import (
	"fmt"
	"time"

	"ckdserve/internal/common/fsutil"
	"ckdserve/internal/features"
)

// Classifier is a trained model over features.Vector.
type Classifier interface {
	// Predict returns the winning class id.
	Predict(vec features.Vector) (int, error)
	// PredictProba returns one probability per class id.
	PredictProba(vec features.Vector) ([]float64, error)
}

// Artifact pairs a classifier with its label decoder. It is immutable once
// published by a Store.
type Artifact struct {
	// Path is the file the artifact was decoded from.
	Path string
	// ModTime is the file modification time observed before decoding.
	ModTime time.Time
	// Size is the file size observed with ModTime.
	Size int64
	// LoadedAt is the wall-clock time of the decode.
	LoadedAt time.Time
	// Trees is the ensemble size, 0 for non-forest classifiers.
	Trees int
	// Features lists the input columns in the order the document declares
	// them; nil when the classifier was not built from a document.
	Features []string

	clf    Classifier
	labels *LabelDecoder
}

func (a *Artifact) stamp() fsutil.Stamp { return fsutil.Stamp{ModTime: a.ModTime, Size: a.Size} }

// New builds an Artifact from its parts.
func New(path string, clf Classifier, labels *LabelDecoder) (*Artifact, error) {
	if clf == nil {
		return nil, fmt.Errorf("artifact %s: nil classifier", path)
	}
	if labels == nil {
		return nil, fmt.Errorf("artifact %s: nil label decoder", path)
	}
	a := &Artifact{Path: path, clf: clf, labels: labels, LoadedAt: time.Now()}
	if f, ok := clf.(*Forest); ok {
		a.Trees = len(f.trees)
	}
	return a, nil
}

// Predict runs the classifier.
func (a *Artifact) Predict(vec features.Vector) (int, error) { return a.clf.Predict(vec) }

// PredictProba runs the classifier's probability call.
func (a *Artifact) PredictProba(vec features.Vector) ([]float64, error) {
	return a.clf.PredictProba(vec)
}

// Decode maps a class id to its label.
func (a *Artifact) Decode(classID int) (string, error) { return a.labels.Decode(classID) }

// Classes returns the decoder's labels in class-id order.
func (a *Artifact) Classes() []string { return a.labels.Classes() }

// withLabels returns a shallow copy using a different decoder.
func (a *Artifact) withLabels(l *LabelDecoder) *Artifact {
	cp := *a
	cp.labels = l
	return &cp
}
