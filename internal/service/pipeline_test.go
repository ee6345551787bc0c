package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
)

func pipelineConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "race-forecast", Environment: "development", LogLevel: "error"},
		Data: config.DataConfig{
			TrainingStartYear: 2023,
			TrainingEndYear:   2024,
			PredictionYear:    2025,
			MinQualifyingTime: 60,
			MaxQualifyingTime: 120,
		},
		Model: config.ModelConfig{
			Version:            "v1.0",
			NEstimators:        50,
			LearningRate:       0.1,
			MaxDepth:           3,
			MinSamplesSplit:    2,
			MinSamplesLeaf:     1,
			Subsample:          0.8,
			Seed:               42,
			TestSize:           0.2,
			MinTrainingSamples: 20,
			TargetMAE:          20.0,
		},
		Prediction: config.PredictionConfig{Session: models.SessionRace, CacheTTLSeconds: 60, CacheMaxSize: 100},
		Evaluation: config.EvaluationConfig{PositionTolerance: 3, Workers: 4},
	}
}

func memoryRepos() *repository.Repositories {
	return &repository.Repositories{
		Telemetry:  repository.NewMemoryTelemetryRepository(),
		Prediction: repository.NewMemoryPredictionRepository(),
		Model:      repository.NewMemoryModelRepository(),
	}
}

// seedSeason stores full race and qualifying grids for a handful of events
func seedSeason(t *testing.T, repos *repository.Repositories, year int, events []string) {
	t.Helper()
	ctx := context.Background()

	for round, grandPrix := range events {
		qual := make([]models.SessionResult, 10)
		race := make([]models.SessionResult, 10)
		for i := 0; i < 10; i++ {
			abbr := fmt.Sprintf("D%02d", i)
			lap := 70.0 + float64(i)*0.8 + float64(round)*0.3
			qual[i] = models.SessionResult{
				DriverAbbr: abbr,
				Position:   intPtr(i + 1),
				Q3Seconds:  floatPtr(lap),
			}
			raceTime := 5000.0 + (lap-75.0)*8.0
			race[i] = models.SessionResult{
				DriverAbbr:      abbr,
				Position:        intPtr(i + 1),
				RaceTimeSeconds: floatPtr(raceTime),
				Status:          "Finished",
			}
		}
		if err := repos.Telemetry.UpsertSessionResults(ctx, year, round+1, grandPrix, models.SessionQualifying, qual); err != nil {
			t.Fatalf("seeding qualifying: %v", err)
		}
		if err := repos.Telemetry.UpsertSessionResults(ctx, year, round+1, grandPrix, models.SessionRace, race); err != nil {
			t.Fatalf("seeding race: %v", err)
		}
	}
}

func TestPipelineTrainPredictBacktest(t *testing.T) {
	ctx := context.Background()
	repos := memoryRepos()
	seedSeason(t, repos, 2023, []string{"Bahrain Grand Prix", "Monaco Grand Prix"})
	seedSeason(t, repos, 2024, []string{"Bahrain Grand Prix", "Monaco Grand Prix"})

	pipeline := NewPipelineService(pipelineConfig(), repos, quietLogger())

	// No model loaded yet
	if _, err := pipeline.Predict(ctx, 2024, "Bahrain Grand Prix"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before training, got %v", err)
	}

	result, err := pipeline.Train(ctx)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if result.TrainRows+result.TestRows != 40 {
		t.Errorf("expected 40 training rows, got %d", result.TrainRows+result.TestRows)
	}
	if pipeline.Bundle() == nil {
		t.Fatal("expected bundle after training")
	}

	// The trained artifact was persisted and activated
	artifact, err := repos.Model.GetActive(ctx, "race-outcome")
	if err != nil {
		t.Fatalf("expected active artifact, got %v", err)
	}
	if artifact.Version != "v1.0" || !artifact.Active {
		t.Errorf("unexpected active artifact: %+v", artifact)
	}

	set, err := pipeline.Predict(ctx, 2024, "Bahrain Grand Prix")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(set.Predictions) != 10 {
		t.Errorf("expected 10 predictions, got %d", len(set.Predictions))
	}
	if set.Winner() != "D00" {
		t.Errorf("expected fastest qualifier to win, got %s", set.Winner())
	}

	report, err := pipeline.Backtest(ctx, 2024)
	if err != nil {
		t.Fatalf("backtest failed: %v", err)
	}
	if report.Evaluated != 2 {
		t.Errorf("expected 2 evaluated events, got %d", report.Evaluated)
	}
	if !report.Events[0].WinnerCorrect {
		t.Errorf("expected winner call to be correct on seeded data")
	}
}

func TestPipelineLoadActiveModel(t *testing.T) {
	ctx := context.Background()
	repos := memoryRepos()
	seedSeason(t, repos, 2023, []string{"Bahrain Grand Prix"})
	seedSeason(t, repos, 2024, []string{"Bahrain Grand Prix"})

	trainerPipeline := NewPipelineService(pipelineConfig(), repos, quietLogger())
	if _, err := trainerPipeline.Train(ctx); err != nil {
		t.Fatalf("train failed: %v", err)
	}

	// A fresh process loads the persisted active model
	fresh := NewPipelineService(pipelineConfig(), repos, quietLogger())
	if err := fresh.LoadActiveModel(ctx); err != nil {
		t.Fatalf("loading active model failed: %v", err)
	}
	if fresh.Bundle() == nil || fresh.Bundle().Version != "v1.0" {
		t.Fatalf("unexpected loaded bundle: %+v", fresh.Bundle())
	}

	set, err := fresh.Predict(ctx, 2024, "Bahrain Grand Prix")
	if err != nil {
		t.Fatalf("predict with loaded model failed: %v", err)
	}
	if len(set.Predictions) != 10 {
		t.Errorf("expected 10 predictions, got %d", len(set.Predictions))
	}
}

func TestPipelineLoadActiveModelMissing(t *testing.T) {
	pipeline := NewPipelineService(pipelineConfig(), memoryRepos(), quietLogger())
	if err := pipeline.LoadActiveModel(context.Background()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPipelineTrainInsufficientData(t *testing.T) {
	repos := memoryRepos()
	seedSeason(t, repos, 2023, []string{"Bahrain Grand Prix"})

	cfg := pipelineConfig()
	cfg.Model.MinTrainingSamples = 50

	pipeline := NewPipelineService(cfg, repos, quietLogger())
	if _, err := pipeline.Train(context.Background()); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
