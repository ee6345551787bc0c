package service

import (
	"fmt"
	"sync"
	"time"
)

// IngestionMetrics tracks statistics about one ingestion run
type IngestionMetrics struct {
	mu                 sync.RWMutex
	StartTime          time.Time
	Duration           time.Duration
	RoundsRequested    int
	SessionsStored     int
	DriverRows         int
	RoundsMissing      int
	ValidationFailures int
	Errors             int
}

// NewIngestionMetrics creates a new metrics tracker
func NewIngestionMetrics() *IngestionMetrics {
	return &IngestionMetrics{
		StartTime: time.Now(),
	}
}

// Reset resets all metrics
func (m *IngestionMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartTime = time.Now()
	m.Duration = 0
	m.RoundsRequested = 0
	m.SessionsStored = 0
	m.DriverRows = 0
	m.RoundsMissing = 0
	m.ValidationFailures = 0
	m.Errors = 0
}

// RecordSession records a stored session payload and its driver rows
func (m *IngestionMetrics) RecordSession(rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsStored++
	m.DriverRows += rows
}

// RecordMissingRound records a round with no data at the source
func (m *IngestionMetrics) RecordMissingRound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RoundsMissing++
}

// RecordValidationFailure records a payload that failed validation
func (m *IngestionMetrics) RecordValidationFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationFailures++
}

// RecordError increments the error count
func (m *IngestionMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors++
}

// String returns a formatted string representation of metrics
func (m *IngestionMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fmt.Sprintf(
		"IngestionMetrics{Rounds=%d, Sessions=%d, DriverRows=%d, Missing=%d, ValidationFailures=%d, Errors=%d, Duration=%v}",
		m.RoundsRequested,
		m.SessionsStored,
		m.DriverRows,
		m.RoundsMissing,
		m.ValidationFailures,
		m.Errors,
		m.Duration,
	)
}
