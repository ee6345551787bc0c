package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func seedEvent(t *testing.T, repo *repository.MemoryTelemetryRepository, year, round int, grandPrix string, race, qual []models.SessionResult) {
	t.Helper()
	ctx := context.Background()
	if err := repo.UpsertSessionResults(ctx, year, round, grandPrix, models.SessionRace, race); err != nil {
		t.Fatalf("seeding race results: %v", err)
	}
	if err := repo.UpsertSessionResults(ctx, year, round, grandPrix, models.SessionQualifying, qual); err != nil {
		t.Fatalf("seeding qualifying results: %v", err)
	}
}

func TestLoadTrainingDataMergesOnDriver(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	seedEvent(t, repo, 2024, 1, "Bahrain Grand Prix",
		[]models.SessionResult{
			{DriverAbbr: "VER", DriverName: "Max Verstappen", Team: "Red Bull Racing", Position: intPtr(1), RaceTimeSeconds: floatPtr(5420.5), Status: "Finished"},
			{DriverAbbr: "LEC", DriverName: "Charles Leclerc", Team: "Ferrari", Position: intPtr(2), RaceTimeSeconds: floatPtr(5433.1), Status: "Finished"},
		},
		[]models.SessionResult{
			{DriverAbbr: "VER", Position: intPtr(1), Q1Seconds: floatPtr(91.2), Q2Seconds: floatPtr(90.5), Q3Seconds: floatPtr(89.9)},
			{DriverAbbr: "LEC", Position: intPtr(2), Q1Seconds: floatPtr(91.5), Q2Seconds: floatPtr(90.8)},
		})

	loader := NewLoader(repo, DefaultConfig(), nil)
	rows, report, err := loader.LoadTrainingData(context.Background(), 2024, 2024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 merged rows, got %d", len(rows))
	}
	if report.Merged != 2 || report.TotalExcluded() != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// Best qualifying lap prefers Q3, then Q2
	if rows[0].QualifyingTime != 89.9 {
		t.Errorf("expected VER qualifying time 89.9 (Q3), got %v", rows[0].QualifyingTime)
	}
	if rows[1].QualifyingTime != 90.8 {
		t.Errorf("expected LEC qualifying time 90.8 (Q2), got %v", rows[1].QualifyingTime)
	}
}

func TestLoadTrainingDataExclusions(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	seedEvent(t, repo, 2024, 1, "Bahrain Grand Prix",
		[]models.SessionResult{
			{DriverAbbr: "VER", Position: intPtr(1), RaceTimeSeconds: floatPtr(5420.5), Status: "Finished"},
			{DriverAbbr: "LAP", Position: intPtr(12), RaceTimeSeconds: floatPtr(5490.0), Status: "+1 Lap"},
			{DriverAbbr: "DNF", Status: "Retired"},
			{DriverAbbr: "NOQ", Position: intPtr(5), RaceTimeSeconds: floatPtr(5450.0), Status: "Finished"},
			{DriverAbbr: "BAD", Position: intPtr(6), RaceTimeSeconds: floatPtr(5460.0), Status: "Finished"},
			{DriverAbbr: "NOT", Position: intPtr(7), RaceTimeSeconds: nil, Status: "Finished"},
		},
		[]models.SessionResult{
			{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(89.9)},
			{DriverAbbr: "LAP", Position: intPtr(12), Q1Seconds: floatPtr(93.4)},
			{DriverAbbr: "DNF", Position: intPtr(8), Q2Seconds: floatPtr(92.0)},
			{DriverAbbr: "BAD", Position: intPtr(6), Q1Seconds: floatPtr(131.0)},
			{DriverAbbr: "NOT", Position: intPtr(7), Q2Seconds: floatPtr(91.8)},
		})

	loader := NewLoader(repo, DefaultConfig(), nil)
	rows, report, err := loader.LoadTrainingData(context.Background(), 2024, 2024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Lapped cars are classified finishes; everything else above is excluded
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (VER, LAP), got %d", len(rows))
	}
	if report.ExcludedDNF != 1 {
		t.Errorf("expected 1 DNF exclusion, got %d", report.ExcludedDNF)
	}
	if report.ExcludedNoRaceTime != 1 {
		t.Errorf("expected 1 missing-race-time exclusion, got %d", report.ExcludedNoRaceTime)
	}
	if report.ExcludedNoQualifying != 1 {
		t.Errorf("expected 1 missing-qualifying exclusion, got %d", report.ExcludedNoQualifying)
	}
	if report.ExcludedInvalidQualifying != 1 {
		t.Errorf("expected 1 invalid-qualifying exclusion, got %d", report.ExcludedInvalidQualifying)
	}
}

func TestLoadTrainingDataAllRowsExcluded(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	seedEvent(t, repo, 2024, 1, "Bahrain Grand Prix",
		[]models.SessionResult{
			{DriverAbbr: "VER", Status: "Retired"},
			{DriverAbbr: "LEC", Status: "Accident"},
		},
		[]models.SessionResult{
			{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(89.9)},
			{DriverAbbr: "LEC", Position: intPtr(2), Q3Seconds: floatPtr(90.1)},
		})

	loader := NewLoader(repo, DefaultConfig(), nil)
	_, report, err := loader.LoadTrainingData(context.Background(), 2024, 2024)

	// Race rows existed but the merge left nothing to train on
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable when every row is excluded, got %v", err)
	}
	if report.Merged != 0 || report.ExcludedDNF != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestLoadTrainingDataNoData(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	loader := NewLoader(repo, DefaultConfig(), nil)

	_, _, err := loader.LoadTrainingData(context.Background(), 2018, 2024)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestLoadTrainingDataUpstreamFailure(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	repo.Err = errors.New("connection refused")
	loader := NewLoader(repo, DefaultConfig(), nil)

	_, _, err := loader.LoadTrainingData(context.Background(), 2018, 2024)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestLoadQualifyingField(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	seedEvent(t, repo, 2025, 8, "Monaco Grand Prix",
		[]models.SessionResult{},
		[]models.SessionResult{
			{DriverAbbr: "VER", DriverName: "Max Verstappen", Team: "Red Bull Racing", Position: intPtr(2), Q3Seconds: floatPtr(70.2)},
			{DriverAbbr: "NOQ", DriverName: "No Time", Team: "Backmarker", Position: intPtr(20)},
		})

	loader := NewLoader(repo, DefaultConfig(), nil)
	field, err := loader.LoadQualifyingField(context.Background(), 2025, "Monaco Grand Prix")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(field) != 2 {
		t.Fatalf("expected full field of 2, got %d", len(field))
	}
	if field[0].QualifyingTime == nil || *field[0].QualifyingTime != 70.2 {
		t.Errorf("expected VER qualifying time 70.2, got %v", field[0].QualifyingTime)
	}
	// Missing lap stays nil here; exclusion is the feature engineer's call
	if field[1].QualifyingTime != nil {
		t.Errorf("expected nil qualifying time for NOQ, got %v", *field[1].QualifyingTime)
	}
}

func TestLoadQualifyingFieldMissingEvent(t *testing.T) {
	repo := repository.NewMemoryTelemetryRepository()
	loader := NewLoader(repo, DefaultConfig(), nil)

	_, err := loader.LoadQualifyingField(context.Background(), 2025, "Monaco Grand Prix")
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
