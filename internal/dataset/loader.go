// Package dataset loads and merges historical session results for training
// and inference.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
)

// Config holds data validity bounds
type Config struct {
	MinQualifyingTime float64
	MaxQualifyingTime float64
}

// DefaultConfig returns the standard qualifying lap validity window
func DefaultConfig() Config {
	return Config{
		MinQualifyingTime: 60.0,
		MaxQualifyingTime: 120.0,
	}
}

// LoadReport accounts for every row seen during a load. Excluded rows are
// counted per reason, never silently dropped.
type LoadReport struct {
	RaceRows                  int `json:"race_rows"`
	QualifyingRows            int `json:"qualifying_rows"`
	Merged                    int `json:"merged"`
	ExcludedDNF               int `json:"excluded_dnf"`
	ExcludedNoRaceTime        int `json:"excluded_no_race_time"`
	ExcludedNoQualifying      int `json:"excluded_no_qualifying"`
	ExcludedInvalidQualifying int `json:"excluded_invalid_qualifying"`
}

// TotalExcluded returns the total number of excluded race rows
func (r LoadReport) TotalExcluded() int {
	return r.ExcludedDNF + r.ExcludedNoRaceTime + r.ExcludedNoQualifying + r.ExcludedInvalidQualifying
}

// Loader merges race and qualifying session results into training rows
type Loader struct {
	telemetry repository.TelemetryRepository
	cfg       Config
	logger    *logrus.Logger
}

// NewLoader creates a new historical data loader
func NewLoader(telemetry repository.TelemetryRepository, cfg Config, logger *logrus.Logger) *Loader {
	return &Loader{
		telemetry: telemetry,
		cfg:       cfg,
		logger:    logger,
	}
}

// mergeKey identifies one driver's entry in one event
type mergeKey struct {
	Year       int
	GrandPrix  string
	DriverAbbr string
}

// LoadTrainingData loads race and qualifying results for a span of seasons
// and left-merges them on (year, grand_prix, driver_abbr). Race rows without
// a valid race time, without a classified finish, or without a valid
// qualifying time are excluded and counted.
func (l *Loader) LoadTrainingData(ctx context.Context, startYear, endYear int) ([]models.HistoricalRow, LoadReport, error) {
	var report LoadReport

	raceResults, err := l.telemetry.GetSessionResults(ctx, startYear, endYear, models.SessionRace)
	if err != nil {
		return nil, report, fmt.Errorf("loading race results %d-%d: %w: %v", startYear, endYear, models.ErrUpstreamUnavailable, err)
	}
	if len(raceResults) == 0 {
		return nil, report, fmt.Errorf("race results %d-%d: %w", startYear, endYear, models.ErrDataUnavailable)
	}

	qualResults, err := l.telemetry.GetSessionResults(ctx, startYear, endYear, models.SessionQualifying)
	if err != nil {
		return nil, report, fmt.Errorf("loading qualifying results %d-%d: %w: %v", startYear, endYear, models.ErrUpstreamUnavailable, err)
	}

	report.RaceRows = len(raceResults)
	report.QualifyingRows = len(qualResults)

	qualIndex := make(map[mergeKey]*models.SessionResult, len(qualResults))
	for i := range qualResults {
		q := &qualResults[i]
		qualIndex[mergeKey{Year: q.Year, GrandPrix: q.GrandPrix, DriverAbbr: q.DriverAbbr}] = q
	}

	rows := make([]models.HistoricalRow, 0, len(raceResults))
	for i := range raceResults {
		race := &raceResults[i]

		if !race.IsClassifiedFinish() {
			report.ExcludedDNF++
			continue
		}
		if race.RaceTimeSeconds == nil || *race.RaceTimeSeconds <= 0 {
			report.ExcludedNoRaceTime++
			continue
		}

		qual, ok := qualIndex[mergeKey{Year: race.Year, GrandPrix: race.GrandPrix, DriverAbbr: race.DriverAbbr}]
		if !ok {
			report.ExcludedNoQualifying++
			continue
		}
		qualTime := qual.BestQualifyingTime()
		if qualTime == nil {
			report.ExcludedNoQualifying++
			continue
		}
		if *qualTime < l.cfg.MinQualifyingTime || *qualTime > l.cfg.MaxQualifyingTime {
			report.ExcludedInvalidQualifying++
			continue
		}

		rows = append(rows, models.HistoricalRow{
			Year:               race.Year,
			GrandPrix:          race.GrandPrix,
			DriverAbbr:         race.DriverAbbr,
			DriverName:         race.DriverName,
			Team:               race.Team,
			FinishPosition:     race.Position,
			RaceTimeSeconds:    *race.RaceTimeSeconds,
			QualifyingPosition: qual.Position,
			QualifyingTime:     *qualTime,
		})
	}
	report.Merged = len(rows)
	if report.Merged == 0 {
		return nil, report, fmt.Errorf("race results %d-%d: all %d rows excluded during merge: %w",
			startYear, endYear, report.TotalExcluded(), models.ErrDataUnavailable)
	}

	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"start_year": startYear,
			"end_year":   endYear,
			"merged":     report.Merged,
			"excluded":   report.TotalExcluded(),
		}).Debug("Historical data merged")
	}

	return rows, report, nil
}

// LoadQualifyingField loads the qualifying field for one event. Drivers
// without any qualifying lap keep a nil QualifyingTime; the feature engineer
// decides whether to exclude them.
func (l *Loader) LoadQualifyingField(ctx context.Context, year int, grandPrix string) ([]models.QualifyingResult, error) {
	results, err := l.telemetry.GetEventSessionResults(ctx, year, grandPrix, models.SessionQualifying)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("qualifying for %d %s: %w", year, grandPrix, models.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("loading qualifying for %d %s: %w: %v", year, grandPrix, models.ErrUpstreamUnavailable, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("qualifying for %d %s: %w", year, grandPrix, models.ErrDataUnavailable)
	}

	field := make([]models.QualifyingResult, 0, len(results))
	for i := range results {
		q := &results[i]
		field = append(field, models.QualifyingResult{
			Year:               q.Year,
			GrandPrix:          q.GrandPrix,
			DriverAbbr:         q.DriverAbbr,
			DriverName:         q.DriverName,
			Team:               q.Team,
			QualifyingPosition: q.Position,
			QualifyingTime:     q.BestQualifyingTime(),
		})
	}

	return field, nil
}

// LoadRaceResults loads the actual race classification for one event
func (l *Loader) LoadRaceResults(ctx context.Context, year int, grandPrix string) ([]models.SessionResult, error) {
	results, err := l.telemetry.GetEventSessionResults(ctx, year, grandPrix, models.SessionRace)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("race results for %d %s: %w", year, grandPrix, models.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("loading race results for %d %s: %w: %v", year, grandPrix, models.ErrUpstreamUnavailable, err)
	}
	return results, nil
}

// ListEvents returns the grand prix names of a season in round order
func (l *Loader) ListEvents(ctx context.Context, year int) ([]string, error) {
	events, err := l.telemetry.ListEvents(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("listing events for %d: %w: %v", year, models.ErrUpstreamUnavailable, err)
	}
	return events, nil
}
