package assembler

import (
	"reflect"
	"testing"

	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Version: "t1",
		Columns: []schema.Column{
			{Name: "Age", Kind: schema.KindContinuous},
			{Name: "BMI", Kind: schema.KindContinuous},
			{Name: "Sex_Male", Kind: schema.KindIndicator},
		},
		Aliases: map[string]string{"Gender_Male": "Sex_Male"},
	}
}

func TestAssembleFollowsSchemaOrder(t *testing.T) {
	s := testSchema()
	partials := []map[string]float64{
		{"BMI": 30, "Age": 50, "Gender_Male": 1},
		{"Gender_Male": 1, "Age": 50, "BMI": 30},
		{"Sex_Male": 1, "BMI": 30, "Age": 50},
	}
	want := []float64{50, 30, 1}
	for i, partial := range partials {
		res := Assemble(s, partial)
		if !reflect.DeepEqual(res.Vector.Names, s.Names()) {
			t.Fatalf("partial %d: names %v", i, res.Vector.Names)
		}
		if !reflect.DeepEqual(res.Vector.Values, want) {
			t.Fatalf("partial %d: values %v", i, res.Vector.Values)
		}
		if len(res.Dropped) != 0 || len(res.Padded) != 0 {
			t.Fatalf("partial %d: dropped %v padded %v", i, res.Dropped, res.Padded)
		}
	}
}

func TestAssemblePadsMissingColumns(t *testing.T) {
	res := Assemble(testSchema(), map[string]float64{"BMI": 22})
	if !reflect.DeepEqual(res.Vector.Values, []float64{DefaultFill, 22, DefaultFill}) {
		t.Fatalf("values = %v", res.Vector.Values)
	}
	if !reflect.DeepEqual(res.Padded, []string{"Age", "Sex_Male"}) {
		t.Fatalf("padded = %v", res.Padded)
	}
}

func TestAssembleDropsUnknownColumns(t *testing.T) {
	res := Assemble(testSchema(), map[string]float64{"Age": 40, "GGT": 30, "Ethnicity_Asian": 1})
	if !reflect.DeepEqual(res.Dropped, []string{"Ethnicity_Asian", "GGT"}) {
		t.Fatalf("dropped = %v", res.Dropped)
	}
	if res.Vector.Width() != 3 {
		t.Fatalf("width = %d", res.Vector.Width())
	}
}

func TestAssembleEmptyInputIsAllDefaults(t *testing.T) {
	res := Assemble(testSchema(), nil)
	if !reflect.DeepEqual(res.Vector.Values, []float64{0, 0, 0}) {
		t.Fatalf("values = %v", res.Vector.Values)
	}
	if res.Vector.SchemaVersion != "t1" {
		t.Fatalf("version = %s", res.Vector.SchemaVersion)
	}
}

func TestAssembleDeclaredNameWinsOverAlias(t *testing.T) {
	s := testSchema()
	for i := 0; i < 100; i++ {
		res := Assemble(s, map[string]float64{"Gender_Male": 1, "Sex_Male": 0})
		if !reflect.DeepEqual(res.Vector.Values, []float64{0, 0, 0}) {
			t.Fatalf("run %d: values = %v", i, res.Vector.Values)
		}
		if !reflect.DeepEqual(res.Shadowed, []string{"Gender_Male"}) {
			t.Fatalf("run %d: shadowed = %v", i, res.Shadowed)
		}
		if len(res.Dropped) != 0 {
			t.Fatalf("run %d: dropped = %v", i, res.Dropped)
		}
	}
}

func TestAssembleAliasesResolveInSortedOrder(t *testing.T) {
	s := testSchema()
	s.Aliases = map[string]string{"Gender_Male": "Sex_Male", "Male": "Sex_Male"}
	for i := 0; i < 100; i++ {
		res := Assemble(s, map[string]float64{"Male": 0, "Gender_Male": 1})
		if res.Vector.Values[2] != 1 {
			t.Fatalf("run %d: Sex_Male = %v", i, res.Vector.Values[2])
		}
		if !reflect.DeepEqual(res.Shadowed, []string{"Male"}) {
			t.Fatalf("run %d: shadowed = %v", i, res.Shadowed)
		}
	}
}
