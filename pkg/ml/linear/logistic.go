package linear

import (
	"fmt"
	"math"
)

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

func (w Weights) Validate(width int) error {
	if len(w.Coefficients) != width {
		return fmt.Errorf("expected %d coefficients, got %d", width, len(w.Coefficients))
	}
	return nil
}

func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

// Importances normalises absolute coefficients so they sum to one. Inputs are
// expected to be standardised, which makes coefficient magnitudes comparable.
func Importances(weights Weights) []float64 {
	out := make([]float64, len(weights.Coefficients))
	var total float64
	for i, c := range weights.Coefficients {
		out[i] = math.Abs(c)
		total += out[i]
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
