// Package assembler reindexes encoded features onto a schema's column order.
package assembler

import (
	"sort"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

// DefaultFill is written to schema columns the partial mapping does not cover.
const DefaultFill = 0.0

type Result struct {
	Vector  models.FeatureVector
	Dropped []string
	Padded  []string
	// Shadowed holds alias keys ignored because another key already filled
	// the same column.
	Shadowed []string
}

// Assemble builds a vector in exactly s's column order. Missing columns are
// padded with DefaultFill; names unknown to s are dropped and reported.
// When several keys resolve to one column, the declared column name wins
// over aliases and aliases are taken in sorted order.
func Assemble(s schema.Schema, partial map[string]float64) Result {
	names := s.Names()
	values := make([]float64, len(names))
	filled := make([]bool, len(names))

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
		values[i] = DefaultFill
	}

	keys := make([]string, 0, len(partial))
	for name := range partial {
		keys = append(keys, name)
	}
	sort.Slice(keys, func(a, b int) bool {
		_, declaredA := index[keys[a]]
		_, declaredB := index[keys[b]]
		if declaredA != declaredB {
			return declaredA
		}
		return keys[a] < keys[b]
	})

	var dropped, shadowed []string
	for _, name := range keys {
		i, ok := index[s.Resolve(name)]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		if filled[i] {
			shadowed = append(shadowed, name)
			continue
		}
		values[i] = partial[name]
		filled[i] = true
	}
	sort.Strings(dropped)
	sort.Strings(shadowed)

	var padded []string
	for i, ok := range filled {
		if !ok {
			padded = append(padded, names[i])
		}
	}

	return Result{
		Vector: models.FeatureVector{
			SchemaVersion: s.Version,
			Names:         names,
			Values:        values,
		},
		Dropped:  dropped,
		Padded:   padded,
		Shadowed: shadowed,
	}
}
