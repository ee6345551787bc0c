// Package metrics provides the centralized Prometheus metrics registry for
// the prediction pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TrainingRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "training_runs_total",
		Help:      "Total number of model training runs",
	})
	TrainingFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "training_failures_total",
		Help:      "Total number of failed model training runs",
	})
	PredictionUploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "prediction_uploads_total",
		Help:      "Total number of prediction sets upserted",
	})
	PredictionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "prediction_failures_total",
		Help:      "Total number of failed prediction runs",
	})
	RowsExcludedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "rows_excluded_total",
		Help:      "Total number of rows excluded while building datasets",
	}, []string{"reason"})
	IngestionErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "ingestion_errors_total",
		Help:      "Total number of session result ingestion errors",
	})
	SessionsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "race_forecast",
		Name:      "sessions_ingested_total",
		Help:      "Total number of session result payloads ingested",
	})
)

// Gauge metrics
var (
	ModelTestMAE = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_forecast",
		Name:      "model_test_mae_seconds",
		Help:      "Test set mean absolute error of the active model in seconds",
	})
	TrainingRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_forecast",
		Name:      "training_rows",
		Help:      "Number of rows in the most recent training set",
	})
	PredictionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_forecast",
		Name:      "prediction_cache_hit_ratio",
		Help:      "Hit ratio of the prediction set cache",
	})
	SeasonBacktestMeanMAE = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_forecast",
		Name:      "season_backtest_mean_mae_seconds",
		Help:      "Mean per-event MAE of the most recent season backtest",
	})
	SeasonBacktestPodiumAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "race_forecast",
		Name:      "season_backtest_podium_accuracy",
		Help:      "Mean podium accuracy of the most recent season backtest",
	})
)

// Histogram metrics
var (
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_forecast",
		Name:      "training_duration_seconds",
		Help:      "Duration of model training runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_forecast",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of season backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
	IngestionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "race_forecast",
		Name:      "ingestion_duration_seconds",
		Help:      "Duration of session result ingestion calls in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingFailuresTotal)
		registry.MustRegister(PredictionUploadsTotal)
		registry.MustRegister(PredictionFailuresTotal)
		registry.MustRegister(RowsExcludedTotal)
		registry.MustRegister(IngestionErrorsTotal)
		registry.MustRegister(SessionsIngestedTotal)

		// Register gauge metrics
		registry.MustRegister(ModelTestMAE)
		registry.MustRegister(TrainingRows)
		registry.MustRegister(PredictionCacheHitRatio)
		registry.MustRegister(SeasonBacktestMeanMAE)
		registry.MustRegister(SeasonBacktestPodiumAccuracy)

		// Register histogram metrics
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(IngestionDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(durationSeconds, testMAE float64, trainingRows int) {
	TrainingRunsTotal.Inc()
	TrainingDuration.Observe(durationSeconds)
	ModelTestMAE.Set(testMAE)
	TrainingRows.Set(float64(trainingRows))
}

// RecordTrainingFailure records a failed training run.
func RecordTrainingFailure() {
	TrainingFailuresTotal.Inc()
}

// RecordPredictionUpload records a prediction set upsert.
func RecordPredictionUpload() {
	PredictionUploadsTotal.Inc()
}

// RecordPredictionFailure records a failed prediction run.
func RecordPredictionFailure() {
	PredictionFailuresTotal.Inc()
}

// RecordRowsExcluded records rows excluded for a given reason.
func RecordRowsExcluded(reason string, count int) {
	if count > 0 {
		RowsExcludedTotal.WithLabelValues(reason).Add(float64(count))
	}
}

// RecordIngestion records an ingestion call.
func RecordIngestion(durationSeconds float64) {
	SessionsIngestedTotal.Inc()
	IngestionDuration.Observe(durationSeconds)
}

// RecordIngestionError records an ingestion failure.
func RecordIngestionError() {
	IngestionErrorsTotal.Inc()
}

// RecordSeasonBacktest records a completed season backtest.
func RecordSeasonBacktest(durationSeconds, meanMAE, podiumAccuracy float64) {
	BacktestDuration.Observe(durationSeconds)
	SeasonBacktestMeanMAE.Set(meanMAE)
	SeasonBacktestPodiumAccuracy.Set(podiumAccuracy)
}
