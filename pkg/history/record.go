// Package history keeps the append-only log of completed predictions.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
)

// TimestampLayout is the YYYY-MM-DD HH:MM:SS format used in the record log.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is written once per completed prediction and never updated.
type Record struct {
	ID            uuid.UUID
	Timestamp     time.Time
	Age           *float64
	BMI           *float64
	Glucose       *float64
	HbA1c         *float64
	LDL           *float64
	RiskPercent   float64
	Username      string
	SchemaVersion string
	Inputs        map[string]interface{}
}

type Recorder interface {
	Append(ctx context.Context, rec Record) error
	LoadAll(ctx context.Context) ([]Record, error)
}

// NewRecord flattens a completed prediction into a history record.
func NewRecord(in models.RawInput, positive float64, username, schemaVersion string, now time.Time) Record {
	fields := make(map[string]float64, len(in.Numeric))
	inputs := make(map[string]interface{}, len(in.Numeric)+len(in.Categorical))
	for key, v := range in.Numeric {
		if b, ok := schema.LookupBound(key); ok {
			fields[b.Field] = v
			inputs[b.Field] = v
		}
	}
	for key, label := range in.Categorical {
		if g, ok := schema.LookupGroup(key); ok {
			inputs[g.Name] = label
		}
	}
	pick := func(field string) *float64 {
		if v, ok := fields[field]; ok {
			return &v
		}
		return nil
	}

	return Record{
		ID:            uuid.New(),
		Timestamp:     now.UTC().Truncate(time.Second),
		Age:           pick("age"),
		BMI:           pick("bmi"),
		Glucose:       pick("fasting_blood_glucose"),
		HbA1c:         pick("hba1c"),
		LDL:           pick("cholesterol_ldl"),
		RiskPercent:   RiskPercent(positive),
		Username:      username,
		SchemaVersion: schemaVersion,
		Inputs:        inputs,
	}
}

// RiskPercent converts a probability to a percentage with two decimals.
func RiskPercent(positive float64) float64 {
	return decimal.NewFromFloat(positive).Shift(2).Round(2).InexactFloat64()
}

// ToMap is the event payload form of a record.
func (r Record) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":             r.ID.String(),
		"timestamp":      r.Timestamp.Format(TimestampLayout),
		"risk_percent":   r.RiskPercent,
		"username":       r.Username,
		"schema_version": r.SchemaVersion,
	}
	put := func(key string, v *float64) {
		if v != nil {
			m[key] = *v
		}
	}
	put("age", r.Age)
	put("bmi", r.BMI)
	put("glucose", r.Glucose)
	put("hba1c", r.HbA1c)
	put("ldl", r.LDL)
	if len(r.Inputs) > 0 {
		m["inputs"] = r.Inputs
	}
	return m
}

// RecordFromMap reverses ToMap for records received as events.
func RecordFromMap(m map[string]interface{}) (Record, error) {
	var rec Record
	idStr, _ := m["id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Record{}, fmt.Errorf("record id: %w", err)
	}
	rec.ID = id

	tsStr, _ := m["timestamp"].(string)
	ts, err := time.ParseInLocation(TimestampLayout, tsStr, time.UTC)
	if err != nil {
		return Record{}, fmt.Errorf("record timestamp: %w", err)
	}
	rec.Timestamp = ts

	risk, ok := m["risk_percent"].(float64)
	if !ok {
		return Record{}, fmt.Errorf("record risk_percent missing")
	}
	rec.RiskPercent = risk

	get := func(key string) *float64 {
		if v, ok := m[key].(float64); ok {
			return &v
		}
		return nil
	}
	rec.Age = get("age")
	rec.BMI = get("bmi")
	rec.Glucose = get("glucose")
	rec.HbA1c = get("hba1c")
	rec.LDL = get("ldl")
	rec.Username, _ = m["username"].(string)
	rec.SchemaVersion, _ = m["schema_version"].(string)
	if inputs, ok := m["inputs"].(map[string]interface{}); ok {
		rec.Inputs = inputs
	}
	return rec, nil
}
