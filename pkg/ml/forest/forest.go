// Package forest evaluates exported random-forest classifiers. Node layout
// follows the scikit-learn tree arrays: a node is a leaf when Left is -1,
// samples go left when x[Feature] <= Threshold, and Value holds per-class
// weights at the leaf.
package forest

import (
	"errors"
	"fmt"
)

// Leaf marks a node without children.
const Leaf = -1

type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	Trees []Tree `json:"trees"`
}

// Validate checks structural soundness against the input width. Children must
// come after their parent, which guarantees every walk terminates.
func (f Forest) Validate(width int) error {
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.Left == Leaf {
				if len(node.Value) != 2 {
					return fmt.Errorf("tree %d leaf %d: expected 2 class weights, got %d", ti, ni, len(node.Value))
				}
				if node.Value[0]+node.Value[1] <= 0 {
					return fmt.Errorf("tree %d leaf %d: empty class weights", ti, ni)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= width {
				return fmt.Errorf("tree %d node %d: feature %d outside width %d", ti, ni, node.Feature, width)
			}
			if node.Left <= ni || node.Right <= ni || node.Left >= len(tree.Nodes) || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children %d/%d", ti, ni, node.Left, node.Right)
			}
		}
	}
	return nil
}

// PredictProba returns the positive-class probability averaged over trees.
func (f Forest) PredictProba(x []float64) float64 {
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.positive(x)
	}
	return sum / float64(len(f.Trees))
}

func (t Tree) positive(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Left == Leaf {
			return node.Value[1] / (node.Value[0] + node.Value[1])
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
