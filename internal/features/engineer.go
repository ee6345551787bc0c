// Package features builds ordered feature tables from historical rows.
package features

import (
	"github.com/yourusername/race-forecast/internal/models"
)

// Feature and target column names
const (
	ColQualifyingTime = "qualifying_time"
	ColTarget         = "race_time_seconds"
)

// Schema is the ordered list of feature columns. The order is the contract
// between training and inference: a persisted model carries its schema and
// refuses to score rows built against a different one.
type Schema struct {
	Columns []string `json:"columns"`
}

// DefaultSchema returns the feature schema used by the pipeline
func DefaultSchema() Schema {
	return Schema{Columns: []string{ColQualifyingTime}}
}

// Equal reports whether two schemas have identical columns in identical order
func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return true
}

// Row is one driver's feature vector with its context columns. Target is
// nil for inference rows.
type Row struct {
	DriverAbbr         string
	DriverName         string
	Team               string
	QualifyingPosition *int
	Values             []float64
	Target             *float64
}

// FeatureMap returns the row's values keyed by column name
func (r Row) FeatureMap(schema Schema) map[string]float64 {
	m := make(map[string]float64, len(schema.Columns))
	for i, col := range schema.Columns {
		if i < len(r.Values) {
			m[col] = r.Values[i]
		}
	}
	return m
}

// Table is an ordered feature table
type Table struct {
	Schema Schema
	Rows   []Row
}

// Matrix returns the feature values as a row-major matrix
func (t Table) Matrix() [][]float64 {
	matrix := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		matrix[i] = row.Values
	}
	return matrix
}

// Targets returns the target column. Only valid for training tables.
func (t Table) Targets() []float64 {
	targets := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		if row.Target != nil {
			targets[i] = *row.Target
		}
	}
	return targets
}

// Report accounts for rows excluded while building a table
type Report struct {
	Built    int
	Excluded int
	Reasons  []*models.DataQualityError
}

// Engineer builds feature tables against a fixed schema
type Engineer struct {
	schema Schema
}

// NewEngineer creates a feature engineer for the given schema
func NewEngineer(schema Schema) *Engineer {
	return &Engineer{schema: schema}
}

// Schema returns the engineer's schema
func (e *Engineer) Schema() Schema {
	return e.schema
}

// BuildTrainingTable builds one feature row per merged historical row. The
// loader has already validated times, so rows are excluded here only if a
// value went missing between layers.
func (e *Engineer) BuildTrainingTable(rows []models.HistoricalRow) (Table, Report) {
	table := Table{Schema: e.schema, Rows: make([]Row, 0, len(rows))}
	var report Report

	for i := range rows {
		row := &rows[i]
		if row.QualifyingTime <= 0 {
			report.Excluded++
			report.Reasons = append(report.Reasons, &models.DataQualityError{
				DriverAbbr: row.DriverAbbr,
				Field:      ColQualifyingTime,
				Reason:     "missing or non-positive qualifying time",
			})
			continue
		}
		if row.RaceTimeSeconds <= 0 {
			report.Excluded++
			report.Reasons = append(report.Reasons, &models.DataQualityError{
				DriverAbbr: row.DriverAbbr,
				Field:      ColTarget,
				Reason:     "missing or non-positive race time",
			})
			continue
		}

		target := row.RaceTimeSeconds
		table.Rows = append(table.Rows, Row{
			DriverAbbr:         row.DriverAbbr,
			DriverName:         row.DriverName,
			Team:               row.Team,
			QualifyingPosition: row.QualifyingPosition,
			Values:             e.values(row.QualifyingTime),
			Target:             &target,
		})
	}
	report.Built = len(table.Rows)

	return table, report
}

// BuildInferenceTable builds one feature row per driver with a qualifying
// time. Drivers without one are excluded and counted, never imputed.
func (e *Engineer) BuildInferenceTable(field []models.QualifyingResult) (Table, Report) {
	table := Table{Schema: e.schema, Rows: make([]Row, 0, len(field))}
	var report Report

	for i := range field {
		driver := &field[i]
		if driver.QualifyingTime == nil || *driver.QualifyingTime <= 0 {
			report.Excluded++
			report.Reasons = append(report.Reasons, &models.DataQualityError{
				DriverAbbr: driver.DriverAbbr,
				Field:      ColQualifyingTime,
				Reason:     "no qualifying time set",
			})
			continue
		}

		table.Rows = append(table.Rows, Row{
			DriverAbbr:         driver.DriverAbbr,
			DriverName:         driver.DriverName,
			Team:               driver.Team,
			QualifyingPosition: driver.QualifyingPosition,
			Values:             e.values(*driver.QualifyingTime),
		})
	}
	report.Built = len(table.Rows)

	return table, report
}

// values assembles the ordered feature vector for one driver
func (e *Engineer) values(qualifyingTime float64) []float64 {
	values := make([]float64, len(e.schema.Columns))
	for i, col := range e.schema.Columns {
		switch col {
		case ColQualifyingTime:
			values[i] = qualifyingTime
		}
	}
	return values
}
