package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{"Idade", "IMC", "Glicose", "HbA1c", "LDL", "Risco_Diabetes(%)", "DataHora"}

// CSVRecorder appends records to a flat file. It assumes it is the only
// writer of the file.
type CSVRecorder struct {
	path string
	mu   sync.Mutex
}

func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

func (c *CSVRecorder) Append(ctx context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		formatOptional(rec.Age),
		formatOptional(rec.BMI),
		formatOptional(rec.Glucose),
		formatOptional(rec.HbA1c),
		formatOptional(rec.LDL),
		strconv.FormatFloat(rec.RiskPercent, 'f', 2, 64),
		rec.Timestamp.Format(TimestampLayout),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (c *CSVRecorder) LoadAll(ctx context.Context) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("history file %s: unexpected column %q at %d", c.path, header[i], i)
		}
	}

	records := []Record{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("history file %s: %w", c.path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (Record, error) {
	var rec Record
	var err error
	targets := []**float64{&rec.Age, &rec.BMI, &rec.Glucose, &rec.HbA1c, &rec.LDL}
	for i, target := range targets {
		if *target, err = parseOptional(row[i]); err != nil {
			return Record{}, fmt.Errorf("column %s: %w", csvHeader[i], err)
		}
	}
	if rec.RiskPercent, err = strconv.ParseFloat(row[5], 64); err != nil {
		return Record{}, fmt.Errorf("column %s: %w", csvHeader[5], err)
	}
	if rec.Timestamp, err = time.ParseInLocation(TimestampLayout, row[6], time.UTC); err != nil {
		return Record{}, fmt.Errorf("column %s: %w", csvHeader[6], err)
	}
	return rec, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
