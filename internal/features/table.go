package features

import (
	"math"
	"time"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Row is an entry with the features joined onto it so far.
// A missing key in Aggregates means the horse had no prior record;
// a nil Pedigree means no pedigree row was found.
type Row struct {
	models.RaceEntry
	Aggregates map[string]float64
	Pedigree   []string
}

// FeatureTable is the model-ready output: a fixed column schema and one
// row per entry. Missing features are NaN.
type FeatureTable struct {
	Columns []string     `json:"columns"`
	Rows    []FeatureRow `json:"rows"`
}

// FeatureRow carries the identifying fields of an entry alongside its feature values.
type FeatureRow struct {
	RaceID      string    `json:"race_id"`
	HorseNumber int       `json:"horse_number"`
	Date        time.Time `json:"date"`
	Label       *int      `json:"rank,omitempty"`
	Values      []float64 `json:"values"`
}

// ColumnIndex returns the position of name, or -1.
func (t *FeatureTable) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Value returns a row's feature value, false when the column is unknown or the value is missing.
func (t *FeatureTable) Value(row int, column string) (float64, bool) {
	i := t.ColumnIndex(column)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return 0, false
	}
	v := t.Rows[row].Values[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Len returns the number of rows.
func (t *FeatureTable) Len() int {
	return len(t.Rows)
}

// RaceIDs returns each row's race id, in row order.
func (t *FeatureTable) RaceIDs() []string {
	ids := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		ids[i] = row.RaceID
	}
	return ids
}

// Labels returns each row's label; unlabeled rows are -1.
func (t *FeatureTable) Labels() []int {
	labels := make([]int, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = -1
		if row.Label != nil {
			labels[i] = *row.Label
		}
	}
	return labels
}

// SameSchema reports whether other has exactly the same columns in the same order.
func (t *FeatureTable) SameSchema(other *FeatureTable) bool {
	if len(t.Columns) != len(other.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return true
}

func (t *FeatureTable) subset(rows []FeatureRow) *FeatureTable {
	return &FeatureTable{Columns: t.Columns, Rows: rows}
}
