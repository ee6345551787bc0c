package backtest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/race-forecast/internal/dataset"
	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/ml"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/predict"
	"github.com/yourusername/race-forecast/internal/repository"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func fittedBundle(t *testing.T) *ml.Bundle {
	t.Helper()

	n := 120
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		qual := 70.0 + 20.0*float64(i%40)/40.0
		x[i] = []float64{qual}
		y[i] = 5000.0 + (qual-75.0)*8.0
	}

	model := ml.NewRegressor(ml.DefaultParams())
	if err := model.Fit(x, y); err != nil {
		t.Fatalf("fitting test model: %v", err)
	}

	return &ml.Bundle{
		Name:              ml.ModelName,
		Version:           "v1.0",
		TrainedOn:         "2018-2024",
		FeatureNames:      []string{features.ColQualifyingTime},
		MAE:               4.2,
		FeatureImportance: map[string]float64{features.ColQualifyingTime: 1.0},
		TrainedAt:         time.Now().UTC(),
		Model:             model,
	}
}

func newTestEvaluator(t *testing.T, telemetry *repository.MemoryTelemetryRepository) (*Evaluator, *repository.MemoryPredictionRepository) {
	t.Helper()
	loader := dataset.NewLoader(telemetry, dataset.DefaultConfig(), nil)
	engineer := features.NewEngineer(features.DefaultSchema())
	predictions := repository.NewMemoryPredictionRepository()
	generator := predict.NewGenerator(loader, engineer, fittedBundle(t),
		predictions, nil, models.SessionRace, nil)
	return NewEvaluator(loader, generator, DefaultConfig(), nil), predictions
}

func seedFullEvent(t *testing.T, repo *repository.MemoryTelemetryRepository, year, round int, grandPrix string) {
	t.Helper()
	ctx := context.Background()

	qual := []models.SessionResult{
		{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(70.2)},
		{DriverAbbr: "LEC", Position: intPtr(2), Q3Seconds: floatPtr(70.6)},
		{DriverAbbr: "NOR", Position: intPtr(3), Q3Seconds: floatPtr(71.1)},
		{DriverAbbr: "HAM", Position: intPtr(4), Q3Seconds: floatPtr(71.5)},
	}
	race := []models.SessionResult{
		{DriverAbbr: "VER", Position: intPtr(1), RaceTimeSeconds: floatPtr(4962.0), Status: "Finished"},
		{DriverAbbr: "NOR", Position: intPtr(2), RaceTimeSeconds: floatPtr(4969.5), Status: "Finished"},
		{DriverAbbr: "LEC", Position: intPtr(3), RaceTimeSeconds: floatPtr(4971.2), Status: "Finished"},
		{DriverAbbr: "HAM", Position: intPtr(4), RaceTimeSeconds: floatPtr(4980.8), Status: "+1 Lap"},
	}

	if err := repo.UpsertSessionResults(ctx, year, round, grandPrix, models.SessionQualifying, qual); err != nil {
		t.Fatalf("seeding qualifying: %v", err)
	}
	if err := repo.UpsertSessionResults(ctx, year, round, grandPrix, models.SessionRace, race); err != nil {
		t.Fatalf("seeding race: %v", err)
	}
}

func TestEvaluateEvent(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	seedFullEvent(t, telemetry, 2024, 8, "Monaco Grand Prix")

	evaluator, _ := newTestEvaluator(t, telemetry)
	report, err := evaluator.EvaluateEvent(context.Background(), 2024, "Monaco Grand Prix")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if report.Drivers != 4 {
		t.Fatalf("expected 4 compared drivers, got %d", report.Drivers)
	}
	if report.UnmatchedPredicted != 0 || report.UnmatchedActual != 0 {
		t.Errorf("expected no unmatched drivers, got %d / %d", report.UnmatchedPredicted, report.UnmatchedActual)
	}

	// Predicted order follows qualifying: VER, LEC, NOR, HAM.
	// Actual winner is VER, so the winner call is correct; LEC and NOR
	// swap but both remain on the podium.
	if !report.WinnerCorrect {
		t.Error("expected winner call to be correct")
	}
	if report.PodiumHits != 3 {
		t.Errorf("expected 3 podium hits, got %d", report.PodiumHits)
	}
	if report.PodiumAccuracy != 1.0 {
		t.Errorf("expected podium accuracy 1.0, got %v", report.PodiumAccuracy)
	}

	// Every driver is within the default tolerance of 3 positions
	if report.WithinTolerance != 4 || report.ToleranceAccuracy != 1.0 {
		t.Errorf("unexpected tolerance stats: %d / %v", report.WithinTolerance, report.ToleranceAccuracy)
	}

	if report.MAE <= 0 {
		t.Errorf("expected positive MAE, got %v", report.MAE)
	}
	if report.RMSE < report.MAE {
		t.Errorf("expected RMSE >= MAE, got %v < %v", report.RMSE, report.MAE)
	}

	// LEC and NOR are each one position off, VER and HAM are exact
	if report.MeanPositionError != 0.5 {
		t.Errorf("expected mean position error 0.5, got %v", report.MeanPositionError)
	}
}

func TestEvaluateEventMissingRace(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	if err := telemetry.UpsertSessionResults(context.Background(), 2024, 8, "Monaco Grand Prix", models.SessionQualifying,
		[]models.SessionResult{{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(70.2)}}); err != nil {
		t.Fatalf("seeding qualifying: %v", err)
	}

	evaluator, _ := newTestEvaluator(t, telemetry)
	_, err := evaluator.EvaluateEvent(context.Background(), 2024, "Monaco Grand Prix")
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestEvaluateEventNoOverlap(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	ctx := context.Background()

	if err := telemetry.UpsertSessionResults(ctx, 2024, 8, "Monaco Grand Prix", models.SessionQualifying,
		[]models.SessionResult{{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(70.2)}}); err != nil {
		t.Fatalf("seeding qualifying: %v", err)
	}
	// The only classified finisher never set a qualifying lap
	if err := telemetry.UpsertSessionResults(ctx, 2024, 8, "Monaco Grand Prix", models.SessionRace,
		[]models.SessionResult{{DriverAbbr: "OTH", Position: intPtr(1), RaceTimeSeconds: floatPtr(5000.0), Status: "Finished"}}); err != nil {
		t.Fatalf("seeding race: %v", err)
	}

	evaluator, _ := newTestEvaluator(t, telemetry)
	_, err := evaluator.EvaluateEvent(ctx, 2024, "Monaco Grand Prix")
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEvaluateEventScoresStoredSet(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	seedFullEvent(t, telemetry, 2024, 8, "Monaco Grand Prix")
	ctx := context.Background()

	evaluator, predictions := newTestEvaluator(t, telemetry)

	// A previously stored set with a different ranking than the current
	// model would produce, including a driver who never finished
	stored := &models.PredictionSet{
		Year:         2024,
		GrandPrix:    "Monaco Grand Prix",
		Session:      models.SessionRace,
		ModelVersion: "v1.0",
		Predictions: []models.DriverPrediction{
			{Position: 1, DriverAbbr: "HAM", PredictedRaceTimeSeconds: 4950.0, QualifyingTime: 71.5},
			{Position: 2, DriverAbbr: "VER", PredictedRaceTimeSeconds: 4960.0, QualifyingTime: 70.2},
			{Position: 3, DriverAbbr: "GAS", PredictedRaceTimeSeconds: 4970.0, QualifyingTime: 72.0},
		},
		Podium: []string{"HAM", "VER", "GAS"},
	}
	if err := predictions.Upsert(ctx, stored); err != nil {
		t.Fatalf("storing set: %v", err)
	}

	report, err := evaluator.EvaluateEvent(ctx, 2024, "Monaco Grand Prix")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	// The stored ranking is what gets scored: its winner call HAM is wrong
	if report.WinnerCorrect {
		t.Error("expected stored winner call to be wrong")
	}
	if report.Drivers != 2 {
		t.Fatalf("expected 2 matched drivers, got %d", report.Drivers)
	}
	// NOR and LEC finished without a stored prediction; GAS never finished
	if report.UnmatchedActual != 2 {
		t.Errorf("expected 2 unmatched finishers, got %d", report.UnmatchedActual)
	}
	if report.UnmatchedPredicted != 1 {
		t.Errorf("expected 1 unmatched predicted driver, got %d", report.UnmatchedPredicted)
	}
	if report.PodiumHits != 1 {
		t.Errorf("expected 1 podium hit, got %d", report.PodiumHits)
	}

	// Evaluation reads the stored set, it never regenerates over it
	after, err := predictions.Get(ctx, 2024, "Monaco Grand Prix", models.SessionRace, "v1.0")
	if err != nil {
		t.Fatalf("reading back stored set: %v", err)
	}
	if after.Winner() != "HAM" || len(after.Predictions) != 3 {
		t.Errorf("stored set was overwritten: winner=%s drivers=%d", after.Winner(), len(after.Predictions))
	}
}

func TestRunSeason(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	seedFullEvent(t, telemetry, 2024, 1, "Bahrain Grand Prix")
	seedFullEvent(t, telemetry, 2024, 2, "Saudi Arabian Grand Prix")
	seedFullEvent(t, telemetry, 2024, 3, "Australian Grand Prix")

	// Qualifying without a race: skipped, not failed
	if err := telemetry.UpsertSessionResults(context.Background(), 2024, 4, "Japanese Grand Prix", models.SessionQualifying,
		[]models.SessionResult{{DriverAbbr: "VER", Position: intPtr(1), Q3Seconds: floatPtr(70.2)}}); err != nil {
		t.Fatalf("seeding qualifying: %v", err)
	}

	evaluator, _ := newTestEvaluator(t, telemetry)
	report, err := evaluator.RunSeason(context.Background(), 2024)
	if err != nil {
		t.Fatalf("season run failed: %v", err)
	}

	if report.Evaluated != 3 || report.Skipped != 1 {
		t.Fatalf("expected 3 evaluated and 1 skipped, got %d / %d", report.Evaluated, report.Skipped)
	}
	if _, ok := report.SkippedEvents["Japanese Grand Prix"]; !ok {
		t.Errorf("expected Japanese Grand Prix in skipped events: %v", report.SkippedEvents)
	}

	// Events come back in round order
	wantOrder := []string{"Bahrain Grand Prix", "Saudi Arabian Grand Prix", "Australian Grand Prix"}
	for i, want := range wantOrder {
		if report.Events[i].GrandPrix != want {
			t.Errorf("event %d: expected %s, got %s", i, want, report.Events[i].GrandPrix)
		}
	}

	// The season MAE is the exact unweighted mean of per-event MAEs, with
	// no rounding on top
	var maeSum float64
	for _, event := range report.Events {
		maeSum += event.MAE
	}
	if want := maeSum / float64(len(report.Events)); report.MeanMAE != want {
		t.Errorf("expected exact mean MAE %v, got %v", want, report.MeanMAE)
	}
	if report.WinnerAccuracy != 1.0 {
		t.Errorf("expected winner accuracy 1.0, got %v", report.WinnerAccuracy)
	}
}

func TestRunSeasonNoEvents(t *testing.T) {
	telemetry := repository.NewMemoryTelemetryRepository()
	evaluator, _ := newTestEvaluator(t, telemetry)

	_, err := evaluator.RunSeason(context.Background(), 2024)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	report := &SeasonReport{
		Year:              2024,
		Evaluated:         2,
		Skipped:           1,
		SkippedEvents:     map[string]string{"Japanese Grand Prix": "no race data"},
		MeanMAE:           14.5,
		WinnerAccuracy:    0.5,
		PodiumAccuracy:    0.6667,
		ToleranceAccuracy: 0.9,
		Events: []*EventReport{
			{GrandPrix: "Bahrain Grand Prix", Drivers: 18, MAE: 12.0, WinnerCorrect: true, PodiumHits: 2},
			{GrandPrix: "Saudi Arabian Grand Prix", Drivers: 17, MAE: 17.0, PodiumHits: 2},
		},
	}

	out := GenerateConsoleReport(report)
	for _, want := range []string{"Season Backtest 2024", "Mean MAE: 14.50s", "Bahrain Grand Prix", "Japanese Grand Prix"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
