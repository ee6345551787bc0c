// Package scheduler runs the recurring pipeline jobs: result syncing,
// retraining and prediction refresh.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-forecast/internal/service"
)

// Scheduler manages the recurring pipeline jobs
type Scheduler struct {
	cron         *cron.Cron
	ingestionSvc *service.IngestionService
	pipeline     *service.PipelineService
	logger       *logrus.Logger
	mu           sync.RWMutex
	isRunning    bool
	jobIDs       []cron.EntryID
}

// NewScheduler creates a new scheduler
func NewScheduler(ingestionSvc *service.IngestionService, pipeline *service.PipelineService, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		ingestionSvc: ingestionSvc,
		pipeline:     pipeline,
		logger:       logger,
		jobIDs:       make([]cron.EntryID, 0),
	}
}

// ScheduleHistoricalSync schedules ingestion of the current season's results
func (s *Scheduler) ScheduleHistoricalSync(cronExpression, sourceName string, year int) error {
	return s.addJob("historical_sync", cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		metrics, err := s.ingestionSvc.IngestSeason(ctx, sourceName, year)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled result sync failed")
			return
		}
		s.logger.WithField("metrics", metrics.String()).Info("Scheduled result sync completed")
	})
}

// ScheduleRetrain schedules periodic model retraining
func (s *Scheduler) ScheduleRetrain(cronExpression string) error {
	return s.addJob("retrain", cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		result, err := s.pipeline.Train(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled retrain failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"model_version": result.Bundle.Version,
			"test_mae":      result.TestMAE,
		}).Info("Scheduled retrain completed")
	})
}

// SchedulePredictionRefresh schedules regeneration of the prediction
// season's sets, picking up newly ingested qualifying sessions.
func (s *Scheduler) SchedulePredictionRefresh(cronExpression string, year int) error {
	return s.addJob("prediction_refresh", cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := s.pipeline.PredictSeason(ctx, year)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled prediction refresh failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"generated": len(result.Generated),
			"skipped":   len(result.Skipped),
		}).Info("Scheduled prediction refresh completed")
	})
}

func (s *Scheduler) addJob(name, cronExpression string, jobFunc func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("adding %s job: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"cron": cronExpression,
	}).Info("Job scheduled")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
