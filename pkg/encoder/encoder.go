// Package encoder turns validated form input into named feature values.
package encoder

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

// Encoder is stateless; the zero value is ready to use.
type Encoder struct{}

func New() *Encoder {
	return &Encoder{}
}

// Encode validates every supplied field and returns a partial mapping from
// canonical column name to value. Fields the caller did not supply are absent.
func (e *Encoder) Encode(in models.RawInput) (map[string]float64, error) {
	out := make(map[string]float64, len(in.Numeric)+len(in.Categorical)*3)

	seen := make(map[string]struct{}, len(in.Numeric)+len(in.Categorical))
	for _, key := range sortedKeys(in.Numeric) {
		value := in.Numeric[key]
		b, ok := schema.LookupBound(key)
		if !ok {
			return nil, ValidationError{Field: key, reason: fmt.Errorf("%s: %w", key, errUnknownField)}
		}
		if _, dup := seen[b.Field]; dup {
			return nil, ValidationError{Field: b.Field, reason: fmt.Errorf("%s: %w", b.Field, errDuplicateField)}
		}
		seen[b.Field] = struct{}{}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, ValidationError{Field: b.Field, reason: fmt.Errorf("%s: %w", b.Field, errNotNumeric)}
		}
		if !b.Contains(value) {
			return nil, ValidationError{
				Field:  b.Field,
				reason: fmt.Errorf("%s=%g outside [%g, %g]: %w", b.Field, value, b.Min, b.Max, errOutOfBounds),
			}
		}
		out[b.Column] = value
	}

	for _, key := range sortedKeys(in.Categorical) {
		label := in.Categorical[key]
		g, ok := schema.LookupGroup(key)
		if !ok {
			return nil, ValidationError{Field: key, reason: fmt.Errorf("%s: %w", key, errUnknownField)}
		}
		if _, dup := seen[g.Name]; dup {
			return nil, ValidationError{Field: g.Name, reason: fmt.Errorf("%s: %w", g.Name, errDuplicateField)}
		}
		seen[g.Name] = struct{}{}
		opt, ok := g.Match(label)
		if !ok {
			return nil, ValidationError{
				Field:  g.Name,
				reason: fmt.Errorf("%s=%q not one of %s: %w", g.Name, label, strings.Join(g.Labels(), ", "), errUnknownCategory),
			}
		}
		encodeGroup(out, g, opt)
	}

	return out, nil
}

func encodeGroup(out map[string]float64, g schema.Group, chosen schema.Option) {
	switch g.Kind {
	case schema.GroupFlag:
		out[g.Column] = boolToFloat(chosen.Flag)
	case schema.GroupOneHot:
		for _, opt := range g.Options {
			out[opt.Column] = boolToFloat(opt.Column == chosen.Column)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseRawInput splits a flat JSON-style payload into numeric and categorical
// inputs. Keys that match neither table are returned as ignored.
func ParseRawInput(payload map[string]interface{}) (models.RawInput, []string, error) {
	in := models.RawInput{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
	var ignored []string
	for key, value := range payload {
		if value == nil {
			continue
		}
		if b, ok := schema.LookupBound(key); ok {
			f, err := toFloat(value)
			if err != nil {
				return models.RawInput{}, nil, ValidationError{Field: b.Field, reason: fmt.Errorf("%s: %w", b.Field, errNotNumeric)}
			}
			if _, dup := in.Numeric[b.Field]; dup {
				return models.RawInput{}, nil, ValidationError{Field: b.Field, reason: fmt.Errorf("%s: %w", b.Field, errDuplicateField)}
			}
			in.Numeric[b.Field] = f
			continue
		}
		if g, ok := schema.LookupGroup(key); ok {
			if _, dup := in.Categorical[g.Name]; dup {
				return models.RawInput{}, nil, ValidationError{Field: g.Name, reason: fmt.Errorf("%s: %w", g.Name, errDuplicateField)}
			}
			in.Categorical[g.Name] = toLabel(value)
			continue
		}
		ignored = append(ignored, key)
	}
	sort.Strings(ignored)
	return in, ignored, nil
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func toLabel(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(v)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
