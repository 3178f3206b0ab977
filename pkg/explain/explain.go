// Package explain derives the human-readable side of a prediction: the most
// influential features and rule-based lifestyle suggestions.
package explain

import (
	"sort"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

const DefaultTopN = 5

// NoRecommendation is the single entry returned when no threshold is crossed.
const NoRecommendation = "No specific recommendation: all assessed markers are within reference ranges."

// TopFeatures returns the n most important schema columns, descending, with
// ties kept in schema order. Importances for names outside s are ignored and
// schema columns without an importance score count as zero.
func TopFeatures(s schema.Schema, importances []models.FeatureImportance, n int) []models.FeatureImportance {
	if n <= 0 {
		n = DefaultTopN
	}
	scores := make(map[string]float64, len(importances))
	for _, imp := range importances {
		scores[imp.Feature] = imp.Importance
	}

	ranked := make([]models.FeatureImportance, len(s.Columns))
	for i, col := range s.Columns {
		ranked[i] = models.FeatureImportance{Feature: col.Name, Importance: scores[col.Name]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Importance > ranked[j].Importance
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

type Comparison string

const (
	Above Comparison = ">"
	Below Comparison = "<"
)

// Rule fires when the raw input field crosses Limit strictly.
type Rule struct {
	Field      string
	Comparison Comparison
	Limit      float64
	Advice     string
}

func (r Rule) crossed(v float64) bool {
	if r.Comparison == Below {
		return v < r.Limit
	}
	return v > r.Limit
}

var rules = []Rule{
	{Field: "bmi", Comparison: Above, Limit: 25, Advice: "BMI above 25: aim for gradual weight loss through a balanced diet and regular physical activity."},
	{Field: "fasting_blood_glucose", Comparison: Above, Limit: 100, Advice: "Fasting glucose above 100 mg/dL: reduce refined sugars and simple carbohydrates and repeat the test with your physician."},
	// The prediabetes band 5.7 to 6.4 is not flagged; only the
	// diabetic range triggers advice.
	{Field: "hba1c", Comparison: Above, Limit: 6.4, Advice: "HbA1c above 6.4%: this is in the diabetic range (the 5.7 to 6.4% prediabetes band is not flagged here); schedule a follow-up with your physician to confirm the result."},
	{Field: "cholesterol_ldl", Comparison: Above, Limit: 130, Advice: "LDL above 130 mg/dL: limit saturated and trans fats and discuss lipid management with your physician."},
	{Field: "cholesterol_hdl", Comparison: Below, Limit: 40, Advice: "HDL below 40 mg/dL: regular aerobic exercise and quitting smoking help raise HDL."},
	{Field: "waist_circumference", Comparison: Above, Limit: 102, Advice: "Waist circumference above 102 cm: abdominal fat raises metabolic risk; combine diet changes with aerobic and strength training."},
}

// Rules returns the threshold table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Suggestions evaluates the raw input against the threshold table in order.
// It depends only on the input, never on the model output.
func Suggestions(in models.RawInput) []string {
	values := make(map[string]float64, len(in.Numeric))
	for key, v := range in.Numeric {
		if b, ok := schema.LookupBound(key); ok {
			values[b.Field] = v
		}
	}

	var out []string
	for _, r := range rules {
		v, ok := values[r.Field]
		if !ok {
			continue
		}
		if r.crossed(v) {
			out = append(out, r.Advice)
		}
	}
	if len(out) == 0 {
		return []string{NoRecommendation}
	}
	return out
}

// HasRecommendations reports whether a suggestion set holds real advice.
func HasRecommendations(suggestions []string) bool {
	return !(len(suggestions) == 1 && suggestions[0] == NoRecommendation)
}
