// Package main provides the entry point for the long-running pipeline service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/datasource"
	"github.com/yourusername/race-forecast/internal/health"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
	"github.com/yourusername/race-forecast/internal/scheduler"
	"github.com/yourusername/race-forecast/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the race forecast pipeline service",
	Long:  `Runs the full pipeline: scheduled result ingestion, model retraining, prediction refresh, plus health and metrics endpoints.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(loaded, region, secretName); err != nil {
			return err
		}
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	var err error
	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("initializing repositories: %w", err)
	}

	return nil
}

func runService(ctx context.Context) error {
	defer db.Close()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Race forecast pipeline starting")

	pipeline := service.NewPipelineService(cfg, repos, appLog)
	if err := pipeline.LoadActiveModel(ctx); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("loading active model: %w", err)
		}
		appLog.Warn("No active model yet; predictions unavailable until first training run")
	}

	ingestion := service.NewIngestionService(buildSources(cfg), repos.Telemetry, appLog)

	jobs := scheduler.NewScheduler(ingestion, pipeline, appLog)
	if err := scheduleJobs(jobs); err != nil {
		return err
	}
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Logger:      appLog,
		DB:          db,
		Model:       pipeline,
	})
	if err := healthServer.Start(serviceCtx); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}
	healthServer.SetReady(true)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer()
	}

	appLog.WithFields(logrus.Fields{
		"jobs":     len(jobs.Entries()),
		"next_run": jobs.GetNextRun(),
	}).Info("Pipeline service running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		appLog.WithField("signal", sig).Info("Shutdown signal received")
	case <-serviceCtx.Done():
		appLog.Info("Context cancelled")
	}

	healthServer.SetReady(false)
	cancel()

	if err := jobs.Stop(); err != nil {
		appLog.WithError(err).Error("Error stopping scheduler")
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error stopping metrics server")
		}
	}

	appLog.Info("Race forecast pipeline shut down")
	return nil
}

func scheduleJobs(jobs *scheduler.Scheduler) error {
	schedule := cfg.Ingestion.Schedule
	sourceName := cfg.Ingestion.Sources[0].Name

	if err := jobs.ScheduleHistoricalSync(schedule.HistoricalSync, sourceName, cfg.Data.PredictionYear); err != nil {
		return err
	}
	if err := jobs.ScheduleRetrain(schedule.Retrain); err != nil {
		return err
	}
	if err := jobs.SchedulePredictionRefresh(schedule.PredictionRefresh, cfg.Data.PredictionYear); err != nil {
		return err
	}
	return nil
}

func startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		appLog.WithFields(logrus.Fields{
			"port": cfg.Metrics.Port,
			"path": cfg.Metrics.Path,
		}).Info("Metrics server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()

	return server
}

func buildSources(cfg *config.Config) []datasource.SessionSource {
	httpLogger := log.New(os.Stdout, "datasource: ", log.LstdFlags)
	httpClient := datasource.NewRateLimitedHTTPClient(datasource.DefaultHTTPClientConfig(), httpLogger)

	sources := make([]datasource.SessionSource, 0, len(cfg.Ingestion.Sources))
	for _, sourceCfg := range cfg.Ingestion.Sources {
		switch sourceCfg.Name {
		case "jolpica":
			sources = append(sources, datasource.NewJolpicaClient(httpClient, sourceCfg.BaseURL, sourceCfg.Enabled, httpLogger))
		}
	}
	return sources
}
