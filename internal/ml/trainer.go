package ml

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/models"
)

// ModelName is the name recorded on persisted artifacts
const ModelName = "race-outcome"

// TrainerConfig controls a training run
type TrainerConfig struct {
	Params            Params
	TestSize          float64
	MinSamples        int
	TargetMAE         float64
	ModelVersion      string
	TrainingDataRange string
}

// TrainerConfigFromModel builds a trainer config from the app configuration
func TrainerConfigFromModel(mc *config.ModelConfig, trainingDataRange string) TrainerConfig {
	return TrainerConfig{
		Params: Params{
			NEstimators:     mc.NEstimators,
			LearningRate:    mc.LearningRate,
			MaxDepth:        mc.MaxDepth,
			MinSamplesSplit: mc.MinSamplesSplit,
			MinSamplesLeaf:  mc.MinSamplesLeaf,
			Subsample:       mc.Subsample,
			Seed:            mc.Seed,
		},
		TestSize:          mc.TestSize,
		MinSamples:        mc.MinTrainingSamples,
		TargetMAE:         mc.TargetMAE,
		ModelVersion:      mc.Version,
		TrainingDataRange: trainingDataRange,
	}
}

// TrainResult carries the fitted bundle and the holdout evaluation
type TrainResult struct {
	Bundle    *Bundle
	TrainRows int
	TestRows  int
	TrainMAE  float64
	TestMAE   float64
	TestRMSE  float64
	Duration  time.Duration
}

// Trainer fits a regressor over a feature table and evaluates it on a
// held-out split.
type Trainer struct {
	config TrainerConfig
	log    *logger.TrainingLogger
}

// NewTrainer creates a trainer
func NewTrainer(cfg TrainerConfig, log *logger.TrainingLogger) *Trainer {
	return &Trainer{config: cfg, log: log}
}

// Train fits a model on the table's train split and evaluates on the test
// split. A table smaller than the configured minimum is rejected. A test
// MAE above target is logged as a warning, never an error.
func (t *Trainer) Train(table features.Table) (*TrainResult, error) {
	n := len(table.Rows)
	if n < t.config.MinSamples {
		return nil, fmt.Errorf("%d training rows, need at least %d: %w", n, t.config.MinSamples, models.ErrInsufficientData)
	}

	start := time.Now()

	x := table.Matrix()
	y := table.Targets()
	trainIdx, testIdx := splitIndices(n, t.config.TestSize, t.config.Params.Seed)

	xTrain, yTrain := gather(x, y, trainIdx)
	xTest, yTest := gather(x, y, testIdx)

	model := NewRegressor(t.config.Params)
	if err := model.Fit(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fitting model: %w", err)
	}

	trainPreds, err := model.PredictBatch(xTrain)
	if err != nil {
		return nil, fmt.Errorf("scoring train split: %w", err)
	}
	testPreds, err := model.PredictBatch(xTest)
	if err != nil {
		return nil, fmt.Errorf("scoring test split: %w", err)
	}

	result := &TrainResult{
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		TrainMAE:  MAE(trainPreds, yTrain),
		TestMAE:   MAE(testPreds, yTest),
		TestRMSE:  RMSE(testPreds, yTest),
		Duration:  time.Since(start),
	}

	importance := make(map[string]float64, len(table.Schema.Columns))
	for i, col := range table.Schema.Columns {
		importance[col] = model.Importances[i]
	}

	result.Bundle = &Bundle{
		Name:              ModelName,
		Version:           t.config.ModelVersion,
		TrainedOn:         t.config.TrainingDataRange,
		FeatureNames:      table.Schema.Columns,
		MAE:               result.TestMAE,
		RMSE:              result.TestRMSE,
		FeatureImportance: importance,
		TrainedAt:         time.Now().UTC(),
		Model:             model,
	}

	if t.log != nil {
		t.log.LogTrainingRun(t.config.ModelVersion, result.TrainRows, result.TestRows, result.TestMAE, result.Duration.Seconds())
		if result.TestMAE > t.config.TargetMAE {
			t.log.LogMAEAboveTarget(t.config.ModelVersion, result.TestMAE, t.config.TargetMAE)
		}
	}

	return result, nil
}

// splitIndices produces a deterministic shuffled train/test split. The test
// split holds at least one row and never the whole set.
func splitIndices(n int, testSize float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	nTest := int(float64(n)*testSize + 0.5)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	return perm[nTest:], perm[:nTest]
}

func gather(x [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	gx := make([][]float64, len(indices))
	gy := make([]float64, len(indices))
	for i, idx := range indices {
		gx[i] = x[idx]
		gy[i] = y[idx]
	}
	return gx, gy
}
