package forest

import (
	"math"
	"testing"
)

func stump(feature int, threshold float64, left, right []float64) Tree {
	return Tree{Nodes: []Node{
		{Feature: feature, Threshold: threshold, Left: 1, Right: 2},
		{Left: Leaf, Right: Leaf, Value: left},
		{Left: Leaf, Right: Leaf, Value: right},
	}}
}

func TestPredictProbaAveragesTrees(t *testing.T) {
	f := Forest{Trees: []Tree{
		stump(0, 5, []float64{9, 1}, []float64{1, 9}),
		stump(1, 0.5, []float64{4, 0}, []float64{0, 4}),
	}}
	if err := f.Validate(2); err != nil {
		t.Fatalf("validate: %v", err)
	}

	got := f.PredictProba([]float64{6, 0})
	if math.Abs(got-0.45) > 1e-12 {
		t.Fatalf("expected 0.45, got %v", got)
	}
}

func TestThresholdGoesLeftWhenEqual(t *testing.T) {
	f := Forest{Trees: []Tree{stump(0, 5, []float64{1, 0}, []float64{0, 1})}}
	if got := f.PredictProba([]float64{5}); got != 0 {
		t.Fatalf("expected left leaf (0), got %v", got)
	}
}

func TestValidateRejectsBadTrees(t *testing.T) {
	cases := map[string]Forest{
		"empty":       {},
		"feature":     {Trees: []Tree{stump(3, 0, []float64{1, 0}, []float64{0, 1})}},
		"backwards":   {Trees: []Tree{{Nodes: []Node{{Feature: 0, Left: 0, Right: 0}}}}},
		"leaf values": {Trees: []Tree{{Nodes: []Node{{Left: Leaf, Right: Leaf, Value: []float64{1}}}}}},
	}
	for name, f := range cases {
		if err := f.Validate(2); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
