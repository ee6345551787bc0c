package ml

import (
	"errors"
	"math"
	"testing"

	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/models"
)

func trainingTable(n int) features.Table {
	schema := features.DefaultSchema()
	table := features.Table{Schema: schema, Rows: make([]features.Row, n)}
	for i := 0; i < n; i++ {
		qual := 70.0 + 20.0*float64(i%40)/40.0
		noise := 3.0 * math.Sin(float64(i)*0.7)
		target := 5000.0 + (qual-75.0)*8.0 + noise
		table.Rows[i] = features.Row{
			DriverAbbr: "DRV",
			Values:     []float64{qual},
			Target:     &target,
		}
	}
	return table
}

func testTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Params:            DefaultParams(),
		TestSize:          0.2,
		MinSamples:        50,
		TargetMAE:         20.0,
		ModelVersion:      "v1.0",
		TrainingDataRange: "2018-2024",
	}
}

func TestTrainerTrain(t *testing.T) {
	trainer := NewTrainer(testTrainerConfig(), nil)

	result, err := trainer.Train(trainingTable(420))
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if result.TrainRows+result.TestRows != 420 {
		t.Errorf("split does not cover the table: %d + %d", result.TrainRows, result.TestRows)
	}
	if result.TestRows != 84 {
		t.Errorf("expected 84 test rows for a 0.2 split of 420, got %d", result.TestRows)
	}
	if result.TestMAE > 20 {
		t.Errorf("test MAE above target on clean synthetic data: %.2f", result.TestMAE)
	}

	bundle := result.Bundle
	if bundle == nil {
		t.Fatal("expected a bundle")
	}
	if bundle.Version != "v1.0" || bundle.TrainedOn != "2018-2024" {
		t.Errorf("unexpected bundle identity: %s %s", bundle.Version, bundle.TrainedOn)
	}
	if len(bundle.FeatureNames) != 1 || bundle.FeatureNames[0] != features.ColQualifyingTime {
		t.Errorf("unexpected feature names: %v", bundle.FeatureNames)
	}

	var sum float64
	for _, v := range bundle.FeatureImportance {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected importances to sum to 1, got %v", sum)
	}
}

func TestTrainerInsufficientData(t *testing.T) {
	trainer := NewTrainer(testTrainerConfig(), nil)

	_, err := trainer.Train(trainingTable(49))
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrainerDeterministicSplit(t *testing.T) {
	trainer := NewTrainer(testTrainerConfig(), nil)

	a, err := trainer.Train(trainingTable(100))
	if err != nil {
		t.Fatalf("first train: %v", err)
	}
	b, err := trainer.Train(trainingTable(100))
	if err != nil {
		t.Fatalf("second train: %v", err)
	}

	if a.TestMAE != b.TestMAE || a.TrainMAE != b.TrainMAE {
		t.Errorf("same seed produced different evaluations: %+v vs %+v", a, b)
	}
}

func TestSplitIndicesBounds(t *testing.T) {
	train, test := splitIndices(50, 0.2, 42)
	if len(test) != 10 || len(train) != 40 {
		t.Errorf("unexpected split sizes: train=%d test=%d", len(train), len(test))
	}

	// Tiny tables still keep at least one row on each side
	train, test = splitIndices(2, 0.01, 42)
	if len(test) != 1 || len(train) != 1 {
		t.Errorf("expected 1/1 split for n=2, got train=%d test=%d", len(train), len(test))
	}

	seen := make(map[int]bool)
	train, test = splitIndices(30, 0.2, 42)
	for _, idx := range append(append([]int{}, train...), test...) {
		if seen[idx] {
			t.Fatalf("index %d appears twice", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 30 {
		t.Errorf("split does not cover all indices: %d", len(seen))
	}
}
