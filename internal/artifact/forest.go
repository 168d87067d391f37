package artifact

import (
	"errors"
	"fmt"
	"math"

	"ckdserve/internal/features"
)

// node is a decision-tree node. Leaves carry a normalized class distribution;
// inner nodes route x[feature] <= threshold to left, everything else to right.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	dist      []float64
}

func (n node) leaf() bool { return n.dist != nil }

type tree []node

// Forest is a soft-voting tree ensemble. Absent inputs are replaced by the
// imputer means before routing.
type Forest struct {
	nClasses int
	// columns maps artifact column -> schema slot.
	columns []int
	imputer []float64
	trees   []tree
}

// Predict returns the argmax of PredictProba; ties go to the lowest id.
func (f *Forest) Predict(vec features.Vector) (int, error) {
	p, err := f.PredictProba(vec)
	if err != nil {
		return -1, err
	}
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best, nil
}

// PredictProba averages the leaf distributions reached in every tree.
func (f *Forest) PredictProba(vec features.Vector) ([]float64, error) {
	x, err := f.row(vec)
	if err != nil {
		return nil, err
	}
	out := make([]float64, f.nClasses)
	for _, t := range f.trees {
		i := 0
		for !t[i].leaf() {
			n := t[i]
			if x[n.feature] <= n.threshold {
				i = n.left
			} else {
				i = n.right
			}
		}
		for c, p := range t[i].dist {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.trees))
	}
	return out, nil
}

func (f *Forest) row(vec features.Vector) ([]float64, error) {
	if len(vec) != features.Count {
		return nil, fmt.Errorf("input has %d slots, model expects %d", len(vec), features.Count)
	}
	x := make([]float64, len(f.columns))
	for j, slot := range f.columns {
		if v := vec[slot]; v.Present {
			x[j] = v.V
		} else {
			x[j] = f.imputer[j]
		}
	}
	return x, nil
}

// buildForest validates a document and compiles it into a Forest.
func buildForest(doc *Document) (*Forest, error) {
	nClasses := len(doc.Classes)
	if nClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", nClasses)
	}
	if len(doc.Features) != features.Count {
		return nil, fmt.Errorf("artifact declares %d features, schema has %d", len(doc.Features), features.Count)
	}
	f := &Forest{
		nClasses: nClasses,
		columns:  make([]int, len(doc.Features)),
		imputer:  make([]float64, len(doc.Features)),
	}
	used := make(map[int]bool, len(doc.Features))
	for j, name := range doc.Features {
		slot := features.Index(name)
		if slot < 0 {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		if used[slot] {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		used[slot] = true
		f.columns[j] = slot
		mean, ok := doc.Imputer[name]
		if !ok || math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, fmt.Errorf("missing imputer value for %q", name)
		}
		f.imputer[j] = mean
	}
	if len(doc.Trees) == 0 {
		return nil, errors.New("artifact has no trees")
	}
	f.trees = make([]tree, len(doc.Trees))
	for ti, td := range doc.Trees {
		t, err := buildTree(td, len(doc.Features), nClasses)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		f.trees[ti] = t
	}
	return f, nil
}

// buildTree requires children to appear after their parent, which rules out
// cycles.
func buildTree(td TreeDoc, nFeatures, nClasses int) (tree, error) {
	if len(td.Nodes) == 0 {
		return nil, errors.New("empty tree")
	}
	t := make(tree, len(td.Nodes))
	for i, nd := range td.Nodes {
		if len(nd.Value) > 0 {
			if len(nd.Value) != nClasses {
				return nil, fmt.Errorf("node %d: leaf has %d values, want %d", i, len(nd.Value), nClasses)
			}
			sum := 0.0
			for _, v := range nd.Value {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("node %d: invalid leaf weight %v", i, v)
				}
				sum += v
			}
			if sum == 0 {
				return nil, fmt.Errorf("node %d: leaf weights sum to zero", i)
			}
			dist := make([]float64, nClasses)
			for c, v := range nd.Value {
				dist[c] = v / sum
			}
			t[i] = node{dist: dist}
			continue
		}
		if nd.Feature < 0 || nd.Feature >= nFeatures {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, nd.Feature)
		}
		for _, child := range []int{nd.Left, nd.Right} {
			if child <= i || child >= len(td.Nodes) {
				return nil, fmt.Errorf("node %d: child index %d invalid", i, child)
			}
		}
		t[i] = node{feature: nd.Feature, threshold: nd.Threshold, left: nd.Left, right: nd.Right}
	}
	return t, nil
}
