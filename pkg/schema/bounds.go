package schema

import "strings"

// Bound is the accepted closed interval for one numeric input field.
type Bound struct {
	Field   string   `json:"field"`
	Aliases []string `json:"aliases,omitempty"`
	Column  string   `json:"column"`
	Label   string   `json:"label"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

var boundsTable = []Bound{
	{Field: "age", Aliases: []string{"idade"}, Column: "Age", Label: "Age", Min: 1, Max: 120},
	{Field: "bmi", Aliases: []string{"imc"}, Column: "BMI", Label: "BMI", Min: 10.0, Max: 60.0},
	{Field: "waist_circumference", Aliases: []string{"waist", "cintura"}, Column: "Waist_Circumference", Label: "Waist", Min: 50.0, Max: 200.0},
	{Field: "fasting_blood_glucose", Aliases: []string{"glucose", "glicose"}, Column: "Fasting_Blood_Glucose", Label: "Fasting glucose", Min: 50, Max: 300},
	{Field: "hba1c", Column: "HbA1c", Label: "HbA1c", Min: 3.0, Max: 15.0},
	{Field: "blood_pressure_systolic", Aliases: []string{"systolic"}, Column: "Blood_Pressure_Systolic", Label: "Systolic BP", Min: 80, Max: 200},
	{Field: "blood_pressure_diastolic", Aliases: []string{"diastolic"}, Column: "Blood_Pressure_Diastolic", Label: "Diastolic BP", Min: 40, Max: 130},
	{Field: "cholesterol_total", Aliases: []string{"cholesterol"}, Column: "Cholesterol_Total", Label: "Total cholesterol", Min: 100.0, Max: 300.0},
	{Field: "cholesterol_hdl", Aliases: []string{"hdl"}, Column: "Cholesterol_HDL", Label: "HDL", Min: 20.0, Max: 100.0},
	{Field: "cholesterol_ldl", Aliases: []string{"ldl"}, Column: "Cholesterol_LDL", Label: "LDL", Min: 30.0, Max: 200.0},
	{Field: "ggt", Column: "GGT", Label: "GGT", Min: 10, Max: 100},
	{Field: "serum_urate", Aliases: []string{"urate"}, Column: "Serum_Urate", Label: "Urate", Min: 1.0, Max: 10.0},
	{Field: "dietary_intake_calories", Aliases: []string{"calories", "calorias"}, Column: "Dietary_Intake_Calories", Label: "Calories", Min: 1000, Max: 5000},
}

// Bounds returns a copy of the numeric bounds table in declaration order.
func Bounds() []Bound {
	out := make([]Bound, len(boundsTable))
	copy(out, boundsTable)
	return out
}

// LookupBound matches an input key case-insensitively against the field name.
func LookupBound(key string) (Bound, bool) {
	k := normalizeKey(key)
	for _, b := range boundsTable {
		if b.Field == k || strings.ToLower(b.Column) == k || containsKey(b.Aliases, k) {
			return b, true
		}
	}
	return Bound{}, false
}

type GroupKind string

const (
	// GroupOneHot writes one indicator column per option, exactly one set.
	GroupOneHot GroupKind = "one_hot"
	// GroupFlag writes a single 0/1 column.
	GroupFlag GroupKind = "flag"
)

type Option struct {
	Label   string   `json:"label"`
	Aliases []string `json:"aliases,omitempty"`
	Column  string   `json:"column,omitempty"`
	Flag    bool     `json:"flag,omitempty"`
}

type Group struct {
	Name    string    `json:"name"`
	Aliases []string  `json:"aliases,omitempty"`
	Kind    GroupKind `json:"kind"`
	Column  string    `json:"column,omitempty"`
	Options []Option  `json:"options"`
}

// Columns lists every column the group can write.
func (g Group) Columns() []string {
	if g.Kind == GroupFlag {
		return []string{g.Column}
	}
	cols := make([]string, 0, len(g.Options))
	for _, opt := range g.Options {
		cols = append(cols, opt.Column)
	}
	return cols
}

// Match resolves a user-facing label (or alias) to an option.
func (g Group) Match(label string) (Option, bool) {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return Option{}, false
	}
	for _, opt := range g.Options {
		if strings.ToLower(opt.Label) == needle {
			return opt, true
		}
		for _, alias := range opt.Aliases {
			if strings.ToLower(alias) == needle {
				return opt, true
			}
		}
	}
	return Option{}, false
}

// Labels returns the canonical option labels.
func (g Group) Labels() []string {
	labels := make([]string, 0, len(g.Options))
	for _, opt := range g.Options {
		labels = append(labels, opt.Label)
	}
	return labels
}

var categoricalGroups = []Group{
	{
		Name:    "sex",
		Aliases: []string{"gender", "sexo"},
		Kind:    GroupFlag,
		Column:  "Gender_Male",
		Options: []Option{
			{Label: "Male", Aliases: []string{"Masculino", "M"}, Flag: true},
			{Label: "Female", Aliases: []string{"Feminino", "F"}},
		},
	},
	{
		Name:    "hypertension",
		Aliases: []string{"hipertensao", "hipertensão"},
		Kind:    GroupFlag,
		Column:  "Hypertension_Yes",
		Options: []Option{
			{Label: "Yes", Aliases: []string{"Sim"}, Flag: true},
			{Label: "No", Aliases: []string{"Não", "Nao"}},
		},
	},
	{
		Name:    "heart_disease",
		Aliases: []string{"doenca_cardiaca"},
		Kind:    GroupFlag,
		Column:  "Heart_Disease_Yes",
		Options: []Option{
			{Label: "Yes", Aliases: []string{"Sim"}, Flag: true},
			{Label: "No", Aliases: []string{"Não", "Nao"}},
		},
	},
	{
		Name:    "smoking",
		Aliases: []string{"smoking_history", "smoking_status", "tabagismo"},
		Kind:    GroupOneHot,
		Options: []Option{
			{Label: "Never", Aliases: []string{"Nunca fumou"}, Column: "Smoking_History_never"},
			{Label: "Current", Aliases: []string{"Fuma atualmente"}, Column: "Smoking_History_current"},
			{Label: "Former", Aliases: []string{"Fumava anteriormente"}, Column: "Smoking_History_former"},
		},
	},
	{
		Name:    "ethnicity",
		Aliases: []string{"etnia"},
		Kind:    GroupOneHot,
		Options: []Option{
			{Label: "Asian", Aliases: []string{"Asiático", "Asiatico"}, Column: "Ethnicity_Asian"},
			{Label: "Black", Aliases: []string{"Negro"}, Column: "Ethnicity_Black"},
			{Label: "Hispanic", Aliases: []string{"Hispânico", "Hispanico"}, Column: "Ethnicity_Hispanic"},
			{Label: "White", Aliases: []string{"Branco"}, Column: "Ethnicity_White"},
			{Label: "Other", Aliases: []string{"Outro"}, Column: "Ethnicity_Other"},
		},
	},
	{
		Name:    "physical_activity",
		Aliases: []string{"physical_activity_level", "atividade_fisica"},
		Kind:    GroupOneHot,
		Options: []Option{
			{Label: "Low", Aliases: []string{"Baixo"}, Column: "Physical_Activity_Level_Low"},
			{Label: "Moderate", Aliases: []string{"Moderado"}, Column: "Physical_Activity_Level_Moderate"},
			{Label: "High", Aliases: []string{"Alto"}, Column: "Physical_Activity_Level_High"},
		},
	},
	{
		Name:    "alcohol",
		Aliases: []string{"alcohol_consumption", "alcool"},
		Kind:    GroupOneHot,
		Options: []Option{
			{Label: "None", Aliases: []string{"Nenhum"}, Column: "Alcohol_Consumption_None"},
			{Label: "Moderate", Aliases: []string{"Moderado"}, Column: "Alcohol_Consumption_Moderate"},
			{Label: "Heavy", Aliases: []string{"Pesado"}, Column: "Alcohol_Consumption_Heavy"},
		},
	},
}

// Groups returns the categorical encoding table in declaration order.
func Groups() []Group {
	out := make([]Group, len(categoricalGroups))
	copy(out, categoricalGroups)
	return out
}

func LookupGroup(key string) (Group, bool) {
	k := normalizeKey(key)
	for _, g := range categoricalGroups {
		if g.Name == k || containsKey(g.Aliases, k) {
			return g, true
		}
	}
	return Group{}, false
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func containsKey(keys []string, k string) bool {
	for _, candidate := range keys {
		if candidate == k {
			return true
		}
	}
	return false
}
