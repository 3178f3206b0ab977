package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryEntry is the persistence model for the prediction history.
type HistoryEntry struct {
	Seq           uint64            `gorm:"primaryKey;autoIncrement;column:seq"`
	ID            uuid.UUID         `gorm:"type:uuid;uniqueIndex;column:id"`
	Age           *float64          `gorm:"column:age"`
	BMI           *float64          `gorm:"column:bmi"`
	Glucose       *float64          `gorm:"column:glucose"`
	HbA1c         *float64          `gorm:"column:hba1c"`
	LDL           *float64          `gorm:"column:ldl"`
	RiskPercent   float64           `gorm:"column:risk_percent"`
	Username      string            `gorm:"column:username"`
	SchemaVersion string            `gorm:"column:schema_version"`
	Inputs        datatypes.JSONMap `gorm:"column:inputs"`
	RecordedAt    time.Time         `gorm:"column:recorded_at"`
}

// TableName overrides gorm naming.
func (HistoryEntry) TableName() string {
	return "prediction_history"
}

// GormRecorder stores history in Postgres. Insertion order is the
// auto-increment sequence.
type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) AutoMigrate() error {
	return r.db.AutoMigrate(&HistoryEntry{})
}

// Append is idempotent on record ID so redelivered events are not duplicated.
func (r *GormRecorder) Append(ctx context.Context, rec Record) error {
	entry := toEntry(rec)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&entry).Error
}

func (r *GormRecorder) LoadAll(ctx context.Context) ([]Record, error) {
	var entries []HistoryEntry
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, fromEntry(e))
	}
	return records, nil
}

func toEntry(rec Record) HistoryEntry {
	entry := HistoryEntry{
		ID:            rec.ID,
		Age:           rec.Age,
		BMI:           rec.BMI,
		Glucose:       rec.Glucose,
		HbA1c:         rec.HbA1c,
		LDL:           rec.LDL,
		RiskPercent:   rec.RiskPercent,
		Username:      rec.Username,
		SchemaVersion: rec.SchemaVersion,
		RecordedAt:    rec.Timestamp,
	}
	if rec.Inputs != nil {
		entry.Inputs = datatypes.JSONMap(rec.Inputs)
	}
	return entry
}

func fromEntry(e HistoryEntry) Record {
	rec := Record{
		ID:            e.ID,
		Timestamp:     e.RecordedAt.UTC(),
		Age:           e.Age,
		BMI:           e.BMI,
		Glucose:       e.Glucose,
		HbA1c:         e.HbA1c,
		LDL:           e.LDL,
		RiskPercent:   e.RiskPercent,
		Username:      e.Username,
		SchemaVersion: e.SchemaVersion,
	}
	if e.Inputs != nil {
		rec.Inputs = map[string]interface{}(e.Inputs)
	}
	return rec
}
