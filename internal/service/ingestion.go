// Package service orchestrates ingestion and the end-to-end prediction
// pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-forecast/internal/datasource"
	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
)

// IngestionService pulls session classifications from external sources and
// stores them in the telemetry table.
type IngestionService struct {
	sources   []datasource.SessionSource
	telemetry repository.TelemetryRepository
	metrics   *IngestionMetrics
	logger    *logrus.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	sources []datasource.SessionSource,
	telemetry repository.TelemetryRepository,
	logger *logrus.Logger,
) *IngestionService {
	return &IngestionService{
		sources:   sources,
		telemetry: telemetry,
		metrics:   NewIngestionMetrics(),
		logger:    logger,
	}
}

// IngestSeason fetches and stores race and qualifying results for every
// round of a season. Rounds with no data yet are recorded and skipped.
func (s *IngestionService) IngestSeason(ctx context.Context, sourceName string, year int) (*IngestionMetrics, error) {
	s.metrics.Reset()
	startTime := time.Now()

	source, err := s.findSource(sourceName)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source": sourceName,
		"year":   year,
	}).Info("Starting season ingestion")

	schedule, err := source.FetchSeasonSchedule(ctx, year)
	if err != nil {
		s.metrics.RecordError()
		metrics.RecordIngestionError()
		return s.metrics, fmt.Errorf("fetching %d schedule: %w", year, err)
	}
	s.metrics.RoundsRequested = len(schedule)

	for _, entry := range schedule {
		if err := ctx.Err(); err != nil {
			return s.metrics, err
		}
		if err := s.ingestRound(ctx, source, year, entry.Round); err != nil {
			if errors.Is(err, datasource.ErrNotFound) {
				s.metrics.RecordMissingRound()
				continue
			}
			s.metrics.RecordError()
			metrics.RecordIngestionError()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"year":  year,
				"round": entry.Round,
			}).Error("Round ingestion failed")
		}
	}

	s.metrics.Duration = time.Since(startTime)
	s.logger.WithFields(logrus.Fields{
		"year":     year,
		"sessions": s.metrics.SessionsStored,
		"missing":  s.metrics.RoundsMissing,
		"errors":   s.metrics.Errors,
		"duration": s.metrics.Duration.String(),
	}).Info("Season ingestion complete")

	return s.metrics, nil
}

// IngestHistorical ingests every season of a span, oldest first
func (s *IngestionService) IngestHistorical(ctx context.Context, sourceName string, startYear, endYear int) (*IngestionMetrics, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("invalid year span %d-%d", startYear, endYear)
	}

	total := NewIngestionMetrics()
	startTime := time.Now()

	for year := startYear; year <= endYear; year++ {
		seasonMetrics, err := s.IngestSeason(ctx, sourceName, year)
		if err != nil {
			return total, fmt.Errorf("ingesting season %d: %w", year, err)
		}
		total.RoundsRequested += seasonMetrics.RoundsRequested
		total.SessionsStored += seasonMetrics.SessionsStored
		total.DriverRows += seasonMetrics.DriverRows
		total.RoundsMissing += seasonMetrics.RoundsMissing
		total.ValidationFailures += seasonMetrics.ValidationFailures
		total.Errors += seasonMetrics.Errors
	}

	total.Duration = time.Since(startTime)
	return total, nil
}

// IngestRound fetches and stores both sessions of one round
func (s *IngestionService) IngestRound(ctx context.Context, sourceName string, year, round int) error {
	source, err := s.findSource(sourceName)
	if err != nil {
		return err
	}
	return s.ingestRound(ctx, source, year, round)
}

func (s *IngestionService) ingestRound(ctx context.Context, source datasource.SessionSource, year, round int) error {
	start := time.Now()

	qualifying, err := source.FetchQualifyingResults(ctx, year, round)
	if err != nil {
		return err
	}
	if err := s.storeSession(ctx, qualifying); err != nil {
		return err
	}

	race, err := source.FetchRaceResults(ctx, year, round)
	if err != nil {
		// Qualifying exists but the race has not run yet
		if errors.Is(err, datasource.ErrNotFound) {
			metrics.RecordIngestion(time.Since(start).Seconds())
			return nil
		}
		return err
	}
	if err := s.storeSession(ctx, race); err != nil {
		return err
	}

	metrics.RecordIngestion(time.Since(start).Seconds())
	return nil
}

// storeSession validates and upserts one session payload
func (s *IngestionService) storeSession(ctx context.Context, session *datasource.EventSession) error {
	if err := validateSession(session); err != nil {
		s.metrics.RecordValidationFailure()
		return fmt.Errorf("validating %d round %d %s: %w", session.Year, session.Round, session.Session, err)
	}
	if len(session.Results) == 0 {
		s.metrics.RecordMissingRound()
		return nil
	}

	if err := s.telemetry.UpsertSessionResults(ctx, session.Year, session.Round, session.GrandPrix, session.Session, session.Results); err != nil {
		return fmt.Errorf("storing %d round %d %s: %w", session.Year, session.Round, session.Session, err)
	}

	s.metrics.RecordSession(len(session.Results))
	return nil
}

// validateSession checks that a payload is usable before it is stored
func validateSession(session *datasource.EventSession) error {
	if session.GrandPrix == "" {
		return fmt.Errorf("missing grand prix name")
	}
	if session.Year < 1950 {
		return fmt.Errorf("implausible year %d", session.Year)
	}
	if session.Session != models.SessionRace && session.Session != models.SessionQualifying {
		return fmt.Errorf("unknown session %q", session.Session)
	}
	for i := range session.Results {
		if session.Results[i].DriverAbbr == "" {
			return fmt.Errorf("result %d has no driver abbreviation", i)
		}
	}
	return nil
}

func (s *IngestionService) findSource(name string) (datasource.SessionSource, error) {
	for _, source := range s.sources {
		if source.Name() == name {
			if !source.IsEnabled() {
				return nil, fmt.Errorf("data source disabled: %s", name)
			}
			return source, nil
		}
	}
	return nil, fmt.Errorf("data source not found: %s", name)
}

// GetMetrics returns current ingestion metrics
func (s *IngestionService) GetMetrics() *IngestionMetrics {
	return s.metrics
}
