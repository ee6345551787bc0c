package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordTrainingRun(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordTrainingRun(1.25, 17.4, 420)
	})
}

func TestRecordRowsExcluded(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		reason string
		count  int
	}{
		{name: "dnf rows", reason: "dnf", count: 3},
		{name: "missing qualifying", reason: "no_qualifying", count: 1},
		{name: "zero count is a no-op", reason: "invalid_qualifying", count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordRowsExcluded(tt.reason, tt.count)
			})
		})
	}
}

func TestRecordPredictionUpload(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordPredictionUpload()
	})
	assert.NotPanics(t, func() {
		RecordPredictionFailure()
	})
}

func TestRecordIngestion(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordIngestion(0.3)
	})
	assert.NotPanics(t, func() {
		RecordIngestionError()
	})
}

func TestRecordSeasonBacktest(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordSeasonBacktest(42.0, 18.2, 0.67)
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()

	handler := Handler()
	assert.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)
}
