// Package datasource fetches session results from external timing APIs.
package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/race-forecast/internal/models"
)

// SessionSource defines the interface for fetching session results from an
// external provider
type SessionSource interface {
	// FetchRaceResults retrieves the race classification for one round
	FetchRaceResults(ctx context.Context, year, round int) (*EventSession, error)

	// FetchQualifyingResults retrieves the qualifying classification for one round
	FetchQualifyingResults(ctx context.Context, year, round int) (*EventSession, error)

	// FetchSeasonSchedule retrieves the round list of a season
	FetchSeasonSchedule(ctx context.Context, year int) ([]ScheduleEntry, error)

	// Name returns the name of the data source
	Name() string

	// IsEnabled returns whether this data source is currently enabled
	IsEnabled() bool
}

// EventSession is a normalized session classification from any provider
type EventSession struct {
	Year      int                    `json:"year"`
	Round     int                    `json:"round"`
	GrandPrix string                 `json:"grand_prix"`
	Session   string                 `json:"session"`
	Results   []models.SessionResult `json:"results"`
}

// ScheduleEntry is one round of a season schedule
type ScheduleEntry struct {
	Round     int    `json:"round"`
	GrandPrix string `json:"grand_prix"`
	Date      string `json:"date"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
)

// Sentinel errors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrInvalidData       = errors.New("invalid data format")
	ErrSourceDisabled    = errors.New("data source disabled")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
