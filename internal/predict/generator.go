// Package predict generates ranked race outcome predictions from a fitted
// model bundle and stores them.
package predict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/race-forecast/internal/dataset"
	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/ml"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
)

// PodiumSize is the number of drivers reported on the predicted podium
const PodiumSize = 3

// Generator produces prediction sets for events
type Generator struct {
	loader      *dataset.Loader
	engineer    *features.Engineer
	bundle      *ml.Bundle
	predictions repository.PredictionRepository
	cache       *ml.PredictionCache
	session     string
	log         *logger.TrainingLogger
}

// NewGenerator creates a prediction generator. The bundle's schema must
// match the engineer's; mismatches surface on the first generation call.
func NewGenerator(
	loader *dataset.Loader,
	engineer *features.Engineer,
	bundle *ml.Bundle,
	predictions repository.PredictionRepository,
	cache *ml.PredictionCache,
	session string,
	log *logger.TrainingLogger,
) *Generator {
	return &Generator{
		loader:      loader,
		engineer:    engineer,
		bundle:      bundle,
		predictions: predictions,
		cache:       cache,
		session:     session,
		log:         log,
	}
}

// GenerateEvent predicts the outcome of one event, stores the ranked set
// and returns it. Drivers without a qualifying time are excluded from the
// field and counted; the set covers only scoreable drivers.
func (g *Generator) GenerateEvent(ctx context.Context, year int, grandPrix string) (*models.PredictionSet, error) {
	key := ml.CacheKey{Year: year, GrandPrix: grandPrix, Session: g.session, ModelVersion: g.bundle.Version}
	if g.cache != nil {
		if cached := g.cache.Get(ctx, key); cached != nil {
			return cached, nil
		}
	}

	set, excluded, err := g.buildSet(ctx, year, grandPrix)
	if err != nil {
		metrics.RecordPredictionFailure()
		if g.log != nil {
			g.log.LogPredictionError(year, grandPrix, err.Error())
		}
		return nil, err
	}

	if err := g.predictions.Upsert(ctx, set); err != nil {
		metrics.RecordPredictionFailure()
		if g.log != nil {
			g.log.LogPredictionError(year, grandPrix, err.Error())
		}
		return nil, fmt.Errorf("storing prediction set: %w", err)
	}

	metrics.RecordPredictionUpload()
	if g.log != nil {
		g.log.LogPredictionUpload(year, grandPrix, g.bundle.Version, len(set.Predictions), excluded)
	}
	if g.cache != nil {
		g.cache.Set(ctx, key, set)
	}

	return set, nil
}

// StoredSet loads the stored prediction set for the event under the
// generator's session and model version, without regenerating it.
func (g *Generator) StoredSet(ctx context.Context, year int, grandPrix string) (*models.PredictionSet, error) {
	return g.predictions.Get(ctx, year, grandPrix, g.session, g.bundle.Version)
}

// buildSet assembles the ranked prediction set for one event
func (g *Generator) buildSet(ctx context.Context, year int, grandPrix string) (*models.PredictionSet, int, error) {
	if err := g.bundle.ValidateSchema(g.engineer.Schema().Columns); err != nil {
		return nil, 0, fmt.Errorf("model schema check for %d %s: %w", year, grandPrix, err)
	}

	field, err := g.loader.LoadQualifyingField(ctx, year, grandPrix)
	if err != nil {
		return nil, 0, err
	}

	table, report := g.engineer.BuildInferenceTable(field)
	metrics.RecordRowsExcluded("no_qualifying", report.Excluded)
	if len(table.Rows) == 0 {
		return nil, report.Excluded, fmt.Errorf("no scoreable drivers for %d %s: %w", year, grandPrix, models.ErrDataUnavailable)
	}

	predictions := make([]models.DriverPrediction, 0, len(table.Rows))
	for _, row := range table.Rows {
		predicted, err := g.bundle.Predict(row.Values)
		if err != nil {
			return nil, report.Excluded, fmt.Errorf("scoring %s: %w", row.DriverAbbr, err)
		}
		rounded, _ := decimal.NewFromFloat(predicted).Round(3).Float64()
		featureValues := row.FeatureMap(table.Schema)
		predictions = append(predictions, models.DriverPrediction{
			DriverAbbr:               row.DriverAbbr,
			DriverName:               row.DriverName,
			Team:                     row.Team,
			PredictedRaceTimeSeconds: rounded,
			QualifyingTime:           featureValues[features.ColQualifyingTime],
			QualifyingPosition:       row.QualifyingPosition,
			Features:                 featureValues,
		})
	}

	// Stable sort keeps qualifying order for exact ties
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].PredictedRaceTimeSeconds < predictions[j].PredictedRaceTimeSeconds
	})
	for i := range predictions {
		predictions[i].Position = i + 1
	}

	podiumSize := PodiumSize
	if len(predictions) < podiumSize {
		podiumSize = len(predictions)
	}
	podium := make([]string, podiumSize)
	for i := 0; i < podiumSize; i++ {
		podium[i] = predictions[i].DriverAbbr
	}

	meta := g.bundle.RoundedMetadata()
	now := time.Now().UTC()

	return &models.PredictionSet{
		ID:                uuid.New(),
		Year:              year,
		GrandPrix:         grandPrix,
		Session:           g.session,
		ModelVersion:      g.bundle.Version,
		TrainingDataRange: g.bundle.TrainedOn,
		FeaturesUsed:      g.bundle.FeatureNames,
		MAEScore:          meta.MAE,
		Predictions:       predictions,
		Podium:            podium,
		Metadata:          meta,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, report.Excluded, nil
}

// SeasonResult summarizes a season-wide generation run
type SeasonResult struct {
	Generated []string
	Skipped   map[string]string
}

// GenerateSeason predicts every event of a season that has qualifying data.
// Events without data are skipped with the reason recorded, not failed.
func (g *Generator) GenerateSeason(ctx context.Context, year int) (*SeasonResult, error) {
	events, err := g.loader.ListEvents(ctx, year)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		// Fall back to the published calendar for seasons not yet ingested
		for _, event := range models.SeasonCalendar(year) {
			events = append(events, event.GrandPrix)
		}
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events known for season %d: %w", year, models.ErrDataUnavailable)
	}

	result := &SeasonResult{Skipped: make(map[string]string)}
	for _, grandPrix := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := g.GenerateEvent(ctx, year, grandPrix); err != nil {
			if errors.Is(err, models.ErrDataUnavailable) {
				result.Skipped[grandPrix] = err.Error()
				continue
			}
			return result, fmt.Errorf("generating %d %s: %w", year, grandPrix, err)
		}
		result.Generated = append(result.Generated, grandPrix)
	}

	return result, nil
}
