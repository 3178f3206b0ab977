package explain

import (
	"reflect"
	"strings"
	"testing"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

func numeric(values map[string]float64) models.RawInput {
	return models.RawInput{Numeric: values}
}

func TestBMIThresholdIsStrict(t *testing.T) {
	at := Suggestions(numeric(map[string]float64{"bmi": 25}))
	if HasRecommendations(at) {
		t.Fatalf("BMI exactly 25 must not trigger, got %v", at)
	}

	above := Suggestions(numeric(map[string]float64{"bmi": 25.01}))
	if len(above) != 1 || !strings.HasPrefix(above[0], "BMI above 25") {
		t.Fatalf("BMI 25.01 must trigger, got %v", above)
	}
}

func TestOnlyBMIFlaggedForBaselineAdult(t *testing.T) {
	in := models.RawInput{
		Numeric: map[string]float64{
			"Age":                   45,
			"BMI":                   28.5,
			"Fasting_Blood_Glucose": 100,
			"HbA1c":                 5.8,
			"Cholesterol_LDL":       110,
			"waist":                 90,
			"Cholesterol_HDL":       55,
		},
		Categorical: map[string]string{"sex": "Male"},
	}

	got := Suggestions(in)
	if len(got) != 1 || !strings.HasPrefix(got[0], "BMI above 25") {
		t.Fatalf("expected exactly the BMI suggestion, got %v", got)
	}
}

func TestHbA1cThreshold(t *testing.T) {
	if HasRecommendations(Suggestions(numeric(map[string]float64{"hba1c": 6.4}))) {
		t.Fatal("HbA1c 6.4 must not trigger")
	}
	got := Suggestions(numeric(map[string]float64{"hba1c": 6.5}))
	if len(got) != 1 || !strings.HasPrefix(got[0], "HbA1c above") {
		t.Fatalf("HbA1c 6.5 must trigger, got %v", got)
	}
	if !strings.Contains(got[0], "prediabetes band is not flagged") {
		t.Fatalf("advice should state the unflagged prediabetes band, got %q", got[0])
	}
}

func TestHealthyInputHasNoRecommendation(t *testing.T) {
	in := numeric(map[string]float64{
		"hba1c":               5.5,
		"bmi":                 20,
		"glucose":             90,
		"ldl":                 100,
		"hdl":                 60,
		"waist_circumference": 80,
	})
	got := Suggestions(in)
	if !reflect.DeepEqual(got, []string{NoRecommendation}) {
		t.Fatalf("expected no-recommendation marker, got %v", got)
	}
}

func TestAllRulesFireInTableOrder(t *testing.T) {
	in := numeric(map[string]float64{
		"waist_circumference":   110,
		"cholesterol_hdl":       35,
		"cholesterol_ldl":       150,
		"hba1c":                 6.5,
		"fasting_blood_glucose": 130,
		"bmi":                   31,
	})
	got := Suggestions(in)
	if len(got) != len(rules) {
		t.Fatalf("expected %d suggestions, got %d", len(rules), len(got))
	}
	for i, r := range rules {
		if got[i] != r.Advice {
			t.Fatalf("position %d: expected %q, got %q", i, r.Advice, got[i])
		}
	}
}

func TestSuggestionsAreDeterministic(t *testing.T) {
	in := numeric(map[string]float64{"bmi": 30, "hdl": 30, "hba1c": 6})
	first := Suggestions(in)
	for i := 0; i < 20; i++ {
		if got := Suggestions(in); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs: %v vs %v", i, first, got)
		}
	}
}

func TestTopFeaturesOrdersByImportanceThenSchema(t *testing.T) {
	s, err := schema.Default().Get("v1")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	importances := []models.FeatureImportance{
		{Feature: "HbA1c", Importance: 0.4},
		{Feature: "Fasting_Blood_Glucose", Importance: 0.3},
		{Feature: "Age", Importance: 0.1},
		{Feature: "BMI", Importance: 0.1},
		{Feature: "Gender_Male", Importance: 0.05},
		{Feature: "Hypertension_Yes", Importance: 0.05},
		{Feature: "Not_In_Schema", Importance: 0.9},
	}

	got := TopFeatures(s, importances, 5)
	want := []string{"HbA1c", "Fasting_Blood_Glucose", "Age", "BMI", "Gender_Male"}
	if len(got) != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Feature != name {
			t.Fatalf("position %d: expected %s, got %s (%v)", i, name, got[i].Feature, got)
		}
	}
}

func TestTopFeaturesDefaultsAndCaps(t *testing.T) {
	s, _ := schema.Default().Get("v1")
	if got := TopFeatures(s, nil, 0); len(got) != DefaultTopN {
		t.Fatalf("expected default of %d, got %d", DefaultTopN, len(got))
	}
	if got := TopFeatures(s, nil, 100); len(got) != s.Width() {
		t.Fatalf("expected cap at schema width %d, got %d", s.Width(), len(got))
	}
}
