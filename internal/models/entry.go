// Package models defines the core data structures for measurement entries
// and the rows pushed to the spreadsheet sink.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DefaultHeightCM is the height recorded on every new entry.
const DefaultHeightCM = 170.0

// DateLayout is the ISO-8601 layout used for Entry.Date on the wire.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one measurement record. It is immutable once stored.
type Entry struct {
	// ID is assigned by the store at insertion and never reused.
	ID int64 `json:"id"`
	// Date is the creation timestamp in UTC.
	Date time.Time `json:"date"`
	// Weight in kilograms.
	Weight float64 `json:"weight"`
	// Waist in centimeters.
	Waist float64 `json:"waist"`
	// Height in centimeters, captured per entry.
	Height float64 `json:"height"`
	// Ratio is waist/height at creation time. It is stored, not recomputed.
	Ratio float64 `json:"ratio"`
}

// NewEntry builds an entry without an id. The ratio is snapshotted here.
func NewEntry(weight, waist, height float64, now time.Time) (Entry, error) {
	fields := []struct {
		name string
		v    float64
	}{{"weight", weight}, {"waist", waist}, {"height", height}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return Entry{}, fmt.Errorf("%w: %s must be a positive number", ErrInvalidMeasurement, f.name)
		}
	}
	return Entry{
		Date:   now.UTC().Truncate(time.Millisecond),
		Weight: weight,
		Waist:  waist,
		Height: height,
		Ratio:  waist / height,
	}, nil
}

// Row converts the entry into the fixed sink row shape.
func (e Entry) Row() Row {
	return Row{
		ID:     e.ID,
		Date:   e.Date.UTC().Format(DateLayout),
		Weight: e.Weight,
		Waist:  e.Waist,
		Height: e.Height,
		Ratio:  e.Ratio,
	}
}

// Row is one spreadsheet row: [id, date, weight, waist, height, ratio].
type Row struct {
	ID     int64
	Date   string
	Weight float64
	Waist  float64
	Height float64
	Ratio  float64
}

// MarshalJSON encodes the row as a positional JSON array.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ID, r.Date, r.Weight, r.Waist, r.Height, r.Ratio})
}

// UnmarshalJSON decodes a positional JSON array back into a Row.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 6 {
		return fmt.Errorf("row: want 6 columns, got %d", len(raw))
	}
	targets := []any{&r.ID, &r.Date, &r.Weight, &r.Waist, &r.Height, &r.Ratio}
	for i, t := range targets {
		if err := json.Unmarshal(raw[i], t); err != nil {
			return fmt.Errorf("row: column %d: %w", i, err)
		}
	}
	return nil
}
