// Package logger provides pipeline-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// TrainingLogger provides dedicated logging for pipeline operations.
type TrainingLogger struct {
	*logrus.Entry
}

// NewTrainingLogger creates a new pipeline logger.
func NewTrainingLogger(baseLogger *logrus.Logger) *TrainingLogger {
	return &TrainingLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogDataLoad logs a historical data load.
func (tl *TrainingLogger) LogDataLoad(startYear, endYear, rowsLoaded, rowsExcluded int) {
	tl.WithFields(logrus.Fields{
		"start_year":    startYear,
		"end_year":      endYear,
		"rows_loaded":   rowsLoaded,
		"rows_excluded": rowsExcluded,
	}).Info("Historical data load completed")
}

// LogTrainingRun logs a completed model training run.
func (tl *TrainingLogger) LogTrainingRun(modelVersion string, trainRows, testRows int, testMAE float64, durationSeconds float64) {
	tl.WithFields(logrus.Fields{
		"model_version":    modelVersion,
		"train_rows":       trainRows,
		"test_rows":        testRows,
		"test_mae":         testMAE,
		"duration_seconds": durationSeconds,
	}).Info("Model training completed")
}

// LogMAEAboveTarget logs a training run whose test MAE exceeded the target.
func (tl *TrainingLogger) LogMAEAboveTarget(modelVersion string, testMAE, targetMAE float64) {
	tl.WithFields(logrus.Fields{
		"model_version": modelVersion,
		"test_mae":      testMAE,
		"target_mae":    targetMAE,
	}).Warn("Test MAE above target")
}

// LogPredictionUpload logs a prediction set upsert.
func (tl *TrainingLogger) LogPredictionUpload(year int, grandPrix string, modelVersion string, drivers, excluded int) {
	tl.WithFields(logrus.Fields{
		"year":             year,
		"grand_prix":       grandPrix,
		"model_version":    modelVersion,
		"drivers":          drivers,
		"drivers_excluded": excluded,
	}).Info("Prediction set uploaded")
}

// LogSeasonBacktest logs a completed season backtest.
func (tl *TrainingLogger) LogSeasonBacktest(year, evaluated, skipped int, meanMAE, podiumAccuracy float64) {
	tl.WithFields(logrus.Fields{
		"year":            year,
		"events":          evaluated,
		"events_skipped":  skipped,
		"mean_mae":        meanMAE,
		"podium_accuracy": podiumAccuracy,
	}).Info("Season backtest completed")
}

// LogPredictionError logs a failed prediction run.
func (tl *TrainingLogger) LogPredictionError(year int, grandPrix string, errorReason string) {
	tl.WithFields(logrus.Fields{
		"year":         year,
		"grand_prix":   grandPrix,
		"error_reason": errorReason,
	}).Error("Prediction run failed")
}
