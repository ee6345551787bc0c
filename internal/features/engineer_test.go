package features

import (
	"testing"

	"github.com/yourusername/race-forecast/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildTrainingTable(t *testing.T) {
	engineer := NewEngineer(DefaultSchema())
	rows := []models.HistoricalRow{
		{DriverAbbr: "VER", QualifyingTime: 89.9, RaceTimeSeconds: 5420.5},
		{DriverAbbr: "LEC", QualifyingTime: 90.8, RaceTimeSeconds: 5433.1},
	}

	table, report := engineer.BuildTrainingTable(rows)
	if report.Built != 2 || report.Excluded != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if len(table.Rows[0].Values) != 1 || table.Rows[0].Values[0] != 89.9 {
		t.Errorf("unexpected feature vector: %v", table.Rows[0].Values)
	}
	if table.Rows[0].Target == nil || *table.Rows[0].Target != 5420.5 {
		t.Errorf("unexpected target: %v", table.Rows[0].Target)
	}
}

func TestBuildTrainingTableExcludesBadRows(t *testing.T) {
	engineer := NewEngineer(DefaultSchema())
	rows := []models.HistoricalRow{
		{DriverAbbr: "VER", QualifyingTime: 89.9, RaceTimeSeconds: 5420.5},
		{DriverAbbr: "BAD", QualifyingTime: 0, RaceTimeSeconds: 5430.0},
		{DriverAbbr: "NOT", QualifyingTime: 91.0, RaceTimeSeconds: 0},
	}

	table, report := engineer.BuildTrainingTable(rows)
	if report.Built != 1 {
		t.Fatalf("expected 1 built row, got %d", report.Built)
	}
	if report.Excluded != 2 {
		t.Fatalf("expected 2 excluded rows, got %d", report.Excluded)
	}
	if len(report.Reasons) != 2 {
		t.Fatalf("expected 2 exclusion reasons, got %d", len(report.Reasons))
	}
	if len(table.Rows) != 1 || table.Rows[0].DriverAbbr != "VER" {
		t.Fatalf("unexpected surviving rows: %+v", table.Rows)
	}
}

func TestBuildInferenceTableExcludesMissingQualifying(t *testing.T) {
	engineer := NewEngineer(DefaultSchema())
	field := []models.QualifyingResult{
		{DriverAbbr: "VER", QualifyingTime: floatPtr(70.2)},
		{DriverAbbr: "NOQ"},
		{DriverAbbr: "LEC", QualifyingTime: floatPtr(70.5)},
	}

	table, report := engineer.BuildInferenceTable(field)
	if report.Built != 2 {
		t.Fatalf("expected 2 built rows, got %d", report.Built)
	}
	if report.Excluded != 1 {
		t.Fatalf("expected 1 excluded row, got %d", report.Excluded)
	}
	if report.Reasons[0].DriverAbbr != "NOQ" {
		t.Errorf("expected NOQ excluded, got %s", report.Reasons[0].DriverAbbr)
	}

	// Input order is preserved for the surviving drivers
	if table.Rows[0].DriverAbbr != "VER" || table.Rows[1].DriverAbbr != "LEC" {
		t.Errorf("input order not preserved: %+v", table.Rows)
	}

	// Inference rows carry no target
	if table.Rows[0].Target != nil {
		t.Errorf("inference row must not carry a target")
	}
}

func TestBuildInferenceTableAllExcluded(t *testing.T) {
	engineer := NewEngineer(DefaultSchema())
	field := []models.QualifyingResult{{DriverAbbr: "A"}, {DriverAbbr: "B"}}

	table, report := engineer.BuildInferenceTable(field)
	if len(table.Rows) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(table.Rows))
	}
	if report.Excluded != 2 {
		t.Fatalf("expected 2 excluded, got %d", report.Excluded)
	}
}

func TestSchemaEqual(t *testing.T) {
	a := DefaultSchema()
	b := Schema{Columns: []string{ColQualifyingTime}}
	if !a.Equal(b) {
		t.Fatal("expected schemas to be equal")
	}

	c := Schema{Columns: []string{"sector_one_time"}}
	if a.Equal(c) {
		t.Fatal("expected schemas to differ")
	}

	d := Schema{Columns: []string{}}
	if a.Equal(d) {
		t.Fatal("expected schemas of different length to differ")
	}
}

func TestFeatureMap(t *testing.T) {
	schema := DefaultSchema()
	row := Row{Values: []float64{89.9}}
	m := row.FeatureMap(schema)
	if m[ColQualifyingTime] != 89.9 {
		t.Fatalf("unexpected feature map: %v", m)
	}
}
