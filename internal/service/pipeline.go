package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-forecast/internal/backtest"
	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/dataset"
	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/ml"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/predict"
	"github.com/yourusername/race-forecast/internal/repository"
)

// PipelineService wires the full prediction pipeline: loading, training,
// generation and evaluation against one model bundle at a time.
type PipelineService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	loader   *dataset.Loader
	engineer *features.Engineer
	cache    *ml.PredictionCache
	log      *logger.TrainingLogger
	base     *logrus.Logger

	mu     sync.RWMutex
	bundle *ml.Bundle
}

// NewPipelineService creates the pipeline service. No model is loaded yet;
// call LoadActiveModel or Train before generating predictions.
func NewPipelineService(cfg *config.Config, repos *repository.Repositories, base *logrus.Logger) *PipelineService {
	loaderCfg := dataset.Config{
		MinQualifyingTime: cfg.Data.MinQualifyingTime,
		MaxQualifyingTime: cfg.Data.MaxQualifyingTime,
	}

	return &PipelineService{
		cfg:      cfg,
		repos:    repos,
		loader:   dataset.NewLoader(repos.Telemetry, loaderCfg, base),
		engineer: features.NewEngineer(features.DefaultSchema()),
		cache:    ml.NewPredictionCache(cfg.Prediction.CacheTTL(), cfg.Prediction.CacheMaxSize),
		log:      logger.NewTrainingLogger(base),
		base:     base,
	}
}

// Loader exposes the pipeline's historical data loader
func (p *PipelineService) Loader() *dataset.Loader {
	return p.loader
}

// Bundle returns the currently loaded model bundle, or nil
func (p *PipelineService) Bundle() *ml.Bundle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bundle
}

// ModelLoaded reports whether a scoring bundle is available
func (p *PipelineService) ModelLoaded() bool {
	return p.Bundle() != nil
}

// LoadActiveModel loads the active persisted model artifact and makes it
// the pipeline's scoring bundle.
func (p *PipelineService) LoadActiveModel(ctx context.Context) error {
	artifact, err := p.repos.Model.GetActive(ctx, ml.ModelName)
	if err != nil {
		return fmt.Errorf("loading active model: %w", err)
	}

	bundle, err := ml.UnmarshalBundle(artifact.Bundle)
	if err != nil {
		return fmt.Errorf("decoding model artifact %s: %w", artifact.ID, err)
	}
	if err := bundle.ValidateSchema(p.engineer.Schema().Columns); err != nil {
		return fmt.Errorf("active model %s: %w", artifact.Version, err)
	}

	p.mu.Lock()
	p.bundle = bundle
	p.mu.Unlock()

	p.base.WithFields(logrus.Fields{
		"model_version": bundle.Version,
		"trained_on":    bundle.TrainedOn,
		"mae":           bundle.MAE,
	}).Info("Active model loaded")

	return nil
}

// Train loads the configured training span, fits a new model, persists the
// artifact, activates it and swaps it into the pipeline.
func (p *PipelineService) Train(ctx context.Context) (*ml.TrainResult, error) {
	rows, report, err := p.loader.LoadTrainingData(ctx, p.cfg.Data.TrainingStartYear, p.cfg.Data.TrainingEndYear)
	if err != nil {
		metrics.RecordTrainingFailure()
		return nil, err
	}

	p.log.LogDataLoad(p.cfg.Data.TrainingStartYear, p.cfg.Data.TrainingEndYear, report.Merged, report.TotalExcluded())
	metrics.RecordRowsExcluded("dnf", report.ExcludedDNF)
	metrics.RecordRowsExcluded("no_race_time", report.ExcludedNoRaceTime)
	metrics.RecordRowsExcluded("no_qualifying", report.ExcludedNoQualifying)
	metrics.RecordRowsExcluded("invalid_qualifying", report.ExcludedInvalidQualifying)

	table, featureReport := p.engineer.BuildTrainingTable(rows)
	if featureReport.Excluded > 0 {
		p.base.WithField("excluded", featureReport.Excluded).Warn("Feature rows dropped during table build")
	}

	trainer := ml.NewTrainer(ml.TrainerConfigFromModel(&p.cfg.Model, p.cfg.TrainingDataRange()), p.log)
	result, err := trainer.Train(table)
	if err != nil {
		metrics.RecordTrainingFailure()
		return nil, err
	}
	metrics.RecordTrainingRun(result.Duration.Seconds(), result.TestMAE, result.TrainRows+result.TestRows)

	artifact, err := result.Bundle.Artifact()
	if err != nil {
		return nil, err
	}
	if err := p.repos.Model.Create(ctx, artifact); err != nil {
		return nil, fmt.Errorf("persisting model artifact: %w", err)
	}
	if err := p.repos.Model.SetActive(ctx, artifact.ID); err != nil {
		return nil, fmt.Errorf("activating model artifact: %w", err)
	}

	p.mu.Lock()
	previous := p.bundle
	p.bundle = result.Bundle
	p.mu.Unlock()

	if previous != nil {
		p.cache.InvalidateModelVersion(ctx, previous.Version)
	}
	p.cache.InvalidateModelVersion(ctx, result.Bundle.Version)

	return result, nil
}

// generator builds a prediction generator over the current bundle
func (p *PipelineService) generator() (*predict.Generator, error) {
	bundle := p.Bundle()
	if bundle == nil {
		return nil, fmt.Errorf("no model loaded: %w", models.ErrNotFound)
	}
	return predict.NewGenerator(p.loader, p.engineer, bundle, p.repos.Prediction, p.cache, p.cfg.Prediction.Session, p.log), nil
}

// Predict generates and stores the prediction set for one event
func (p *PipelineService) Predict(ctx context.Context, year int, grandPrix string) (*models.PredictionSet, error) {
	generator, err := p.generator()
	if err != nil {
		return nil, err
	}
	return generator.GenerateEvent(ctx, year, grandPrix)
}

// PredictSeason generates prediction sets for every event of a season
func (p *PipelineService) PredictSeason(ctx context.Context, year int) (*predict.SeasonResult, error) {
	generator, err := p.generator()
	if err != nil {
		return nil, err
	}
	return generator.GenerateSeason(ctx, year)
}

// Backtest evaluates the current model across a full season
func (p *PipelineService) Backtest(ctx context.Context, year int) (*backtest.SeasonReport, error) {
	generator, err := p.generator()
	if err != nil {
		return nil, err
	}

	evaluator := backtest.NewEvaluator(p.loader, generator, backtest.Config{
		PositionTolerance: p.cfg.Evaluation.PositionTolerance,
		Workers:           p.cfg.Evaluation.Workers,
	}, p.log)

	return evaluator.RunSeason(ctx, year)
}
