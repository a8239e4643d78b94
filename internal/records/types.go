package records

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Row is one record keyed by column name.
type Row map[string]any

// Query narrows a Select. Zero value selects every row in insertion order.
type Query struct {
	Eq      map[string]any
	OrderBy string
	Desc    bool
	Limit   int
}

// Store persists flat records into named tables.
type Store interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error)
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Ping(ctx context.Context) error
	Close() error
}

// Table names and the columns the service writes.
const (
	TableDoctors   = "doctors"
	TableVitals    = "vitals"
	TableCTG       = "ctg"
	TableDietPlans = "diet_plans"

	ColumnID        = "id"
	ColumnUID       = "UID"
	ColumnCreatedAt = "created_at"
)

var tableColumns = map[string][]string{
	TableDoctors: {ColumnID, "name", "phone", "specialty", "location", "profile_image_url", ColumnCreatedAt},
	TableVitals: {ColumnID, ColumnUID, "age", "systolic_bp", "diastolic_bp", "blood_glucose",
		"body_temp", "heart_rate", "prediction", ColumnCreatedAt},
	TableCTG: {ColumnID, ColumnUID, "baseline_value", "accelerations", "fetal_movement",
		"uterine_contractions", "light_decelerations", "severe_decelerations",
		"prolonged_decelerations", "abnormal_short_term_variability",
		"mean_value_of_short_term_variability",
		"percentage_of_time_with_abnormal_long_term_variability",
		"mean_value_of_long_term_variability", "histogram_width", "histogram_min",
		"histogram_max", "histogram_number_of_peaks", "prediction", "status", ColumnCreatedAt},
	TableDietPlans: {ColumnID, ColumnUID, "trimester", "weight", "health_conditions",
		"dietary_preference", "diet_plan", ColumnCreatedAt},
}

func checkColumns(table string, names ...string) error {
	cols, ok := tableColumns[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		found := false
		for _, c := range cols {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, name)
		}
	}
	return nil
}

func (r Row) columns() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
