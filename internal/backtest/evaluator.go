// Package backtest evaluates stored predictions against actual race
// classifications, per event and across whole seasons.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/race-forecast/internal/dataset"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/predict"
)

// Config controls evaluation
type Config struct {
	// PositionTolerance is the allowed absolute gap between predicted and
	// actual finishing position for a driver to count as within tolerance
	PositionTolerance int

	// Workers bounds season evaluation parallelism
	Workers int
}

// DefaultConfig returns the standard evaluation settings
func DefaultConfig() Config {
	return Config{PositionTolerance: 3, Workers: 4}
}

// DriverOutcome pairs one driver's prediction with the actual result
type DriverOutcome struct {
	DriverAbbr        string  `json:"driver_abbr"`
	PredictedPosition int     `json:"predicted_position"`
	ActualPosition    int     `json:"actual_position"`
	PredictedTime     float64 `json:"predicted_time"`
	ActualTime        float64 `json:"actual_time"`
	AbsoluteError     float64 `json:"absolute_error"`
}

// EventReport is the evaluation of one event
type EventReport struct {
	Year              int             `json:"year"`
	GrandPrix         string          `json:"grand_prix"`
	Drivers            int `json:"drivers"`
	UnmatchedPredicted int `json:"unmatched_predicted"`
	UnmatchedActual    int `json:"unmatched_actual"`

	MAE               float64         `json:"mae"`
	RMSE              float64         `json:"rmse"`
	MeanPositionError float64         `json:"mean_position_error"`
	WinnerCorrect     bool            `json:"winner_correct"`
	PodiumHits        int             `json:"podium_hits"`
	PodiumAccuracy    float64         `json:"podium_accuracy"`
	WithinTolerance   int             `json:"within_tolerance"`
	ToleranceAccuracy float64         `json:"tolerance_accuracy"`
	Outcomes          []DriverOutcome `json:"outcomes"`
}

// Evaluator scores predictions against actual classifications
type Evaluator struct {
	loader    *dataset.Loader
	generator *predict.Generator
	cfg       Config
	log       *logger.TrainingLogger
}

// NewEvaluator creates an evaluator
func NewEvaluator(loader *dataset.Loader, generator *predict.Generator, cfg Config, log *logger.TrainingLogger) *Evaluator {
	return &Evaluator{loader: loader, generator: generator, cfg: cfg, log: log}
}

// EvaluateEvent scores the stored prediction set for the event against the
// actual race classification, generating one first only when nothing is
// stored yet. Only drivers present in both the prediction and the classified
// finishers are compared; drops on either side are counted.
func (e *Evaluator) EvaluateEvent(ctx context.Context, year int, grandPrix string) (*EventReport, error) {
	set, err := e.generator.StoredSet(ctx, year, grandPrix)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("loading stored prediction for %d %s: %w", year, grandPrix, err)
		}
		set, err = e.generator.GenerateEvent(ctx, year, grandPrix)
		if err != nil {
			return nil, err
		}
	}

	actual, err := e.loader.LoadRaceResults(ctx, year, grandPrix)
	if err != nil {
		return nil, err
	}

	classified := classifiedFinishers(actual)
	if len(classified) == 0 {
		return nil, fmt.Errorf("no classified finishers for %d %s: %w", year, grandPrix, models.ErrDataUnavailable)
	}

	report := &EventReport{Year: year, GrandPrix: grandPrix}
	actualPodium := podium(classified)

	var errSum, sqErrSum, posErrSum float64
	for _, result := range classified {
		pred := set.PredictionFor(result.DriverAbbr)
		if pred == nil {
			report.UnmatchedActual++
			continue
		}

		outcome := DriverOutcome{
			DriverAbbr:        result.DriverAbbr,
			PredictedPosition: pred.Position,
			ActualPosition:    *result.Position,
			PredictedTime:     pred.PredictedRaceTimeSeconds,
			ActualTime:        *result.RaceTimeSeconds,
			AbsoluteError:     math.Abs(pred.PredictedRaceTimeSeconds - *result.RaceTimeSeconds),
		}
		report.Outcomes = append(report.Outcomes, outcome)
		errSum += outcome.AbsoluteError
		sqErrSum += outcome.AbsoluteError * outcome.AbsoluteError

		positionGap := abs(outcome.PredictedPosition - outcome.ActualPosition)
		posErrSum += float64(positionGap)
		if positionGap <= e.cfg.PositionTolerance {
			report.WithinTolerance++
		}
	}

	report.Drivers = len(report.Outcomes)
	report.UnmatchedPredicted = len(set.Predictions) - report.Drivers
	if report.Drivers == 0 {
		return nil, fmt.Errorf("no comparable drivers for %d %s: %w", year, grandPrix, models.ErrInsufficientData)
	}

	n := float64(report.Drivers)
	mae, _ := decimal.NewFromFloat(errSum / n).Round(2).Float64()
	report.MAE = mae
	rmse, _ := decimal.NewFromFloat(math.Sqrt(sqErrSum / n)).Round(2).Float64()
	report.RMSE = rmse
	report.MeanPositionError = posErrSum / n
	report.ToleranceAccuracy = float64(report.WithinTolerance) / n

	report.WinnerCorrect = len(actualPodium) > 0 && set.Winner() == actualPodium[0]
	for _, abbr := range set.Podium {
		if contains(actualPodium, abbr) {
			report.PodiumHits++
		}
	}
	if len(set.Podium) > 0 {
		report.PodiumAccuracy = float64(report.PodiumHits) / float64(len(set.Podium))
	}

	return report, nil
}

// classifiedFinishers filters the classification to drivers with a finishing
// position and a race time, ordered by position.
func classifiedFinishers(results []models.SessionResult) []models.SessionResult {
	finishers := make([]models.SessionResult, 0, len(results))
	for i := range results {
		r := results[i]
		if !r.IsClassifiedFinish() || r.Position == nil || r.RaceTimeSeconds == nil {
			continue
		}
		finishers = append(finishers, r)
	}
	sort.SliceStable(finishers, func(i, j int) bool {
		return *finishers[i].Position < *finishers[j].Position
	})
	return finishers
}

func podium(ordered []models.SessionResult) []string {
	n := predict.PodiumSize
	if len(ordered) < n {
		n = len(ordered)
	}
	abbrs := make([]string, n)
	for i := 0; i < n; i++ {
		abbrs[i] = ordered[i].DriverAbbr
	}
	return abbrs
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
