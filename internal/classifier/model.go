// Package classifier scores feature vectors with a pre-trained tree ensemble.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/iyulab/phish-triage/internal/features"
)

var (
	// ErrModelUnavailable means the artifact is missing, unreadable or corrupt.
	ErrModelUnavailable = errors.New("model artifact unavailable")
	// ErrSchemaMismatch means the artifact was trained on a different feature schema.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// Class indices in every probability pair.
const (
	ClassLegitimate = 0
	ClassPhishing   = 1
)

// Node is one entry of a flattened decision tree. Left == -1 marks a leaf.
type Node struct {
	Feature   int        `json:"feature"`
	Threshold float64    `json:"threshold"`
	Left      int        `json:"left"`
	Right     int        `json:"right"`
	Value     [2]float64 `json:"value"`
}

// Tree is a flattened decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is a loaded tree ensemble. It is immutable after Load and safe for
// concurrent use.
type Model struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
	Classes  []string `json:"classes"`
	Trees    []Tree   `json:"trees"`
}

// Load reads a model artifact from path and validates it against the
// extractor's feature schema.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return Parse(data)
}

// Parse decodes and validates a model artifact.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrModelUnavailable, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Features) != features.Count {
		return fmt.Errorf("%w: artifact has %d features, extractor produces %d",
			ErrSchemaMismatch, len(m.Features), features.Count)
	}
	for i, name := range m.Features {
		if name != features.Names[i] {
			return fmt.Errorf("%w: feature %d is %q, extractor expects %q",
				ErrSchemaMismatch, i, name, features.Names[i])
		}
	}
	if len(m.Classes) != 2 {
		return fmt.Errorf("%w: expected 2 classes, got %d", ErrModelUnavailable, len(m.Classes))
	}
	if m.Classes[ClassLegitimate] != string(Legitimate) || m.Classes[ClassPhishing] != string(Phishing) {
		return fmt.Errorf("%w: classes are %q, classifier expects [%q %q]",
			ErrSchemaMismatch, m.Classes, Legitimate, Phishing)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrModelUnavailable)
	}
	for ti, t := range m.Trees {
		if err := t.validate(); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrModelUnavailable, ti, err)
		}
	}
	return nil
}

// validate checks node references. Children must point forward so that
// evaluation always terminates.
func (t Tree) validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left == -1 {
			sum := 0.0
			for _, w := range n.Value {
				if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("node %d: invalid leaf weight %v", i, w)
				}
				sum += w
			}
			if sum == 0 {
				return fmt.Errorf("node %d: leaf has no weight", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features.Count {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// leaf walks the tree for x and returns the normalized class distribution.
func (t Tree) leaf(x []float64) [2]float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == -1 {
			sum := n.Value[0] + n.Value[1]
			return [2]float64{n.Value[0] / sum, n.Value[1] / sum}
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict returns the class probabilities for a raw vector in schema order.
func (m *Model) Predict(x []float64) ([2]float64, error) {
	if len(x) != features.Count {
		return [2]float64{}, fmt.Errorf("%w: vector has %d values, want %d",
			ErrSchemaMismatch, len(x), features.Count)
	}
	var acc [2]float64
	for _, t := range m.Trees {
		p := t.leaf(x)
		acc[0] += p[0]
		acc[1] += p[1]
	}
	sum := acc[0] + acc[1]
	return [2]float64{acc[0] / sum, acc[1] / sum}, nil
}
