// Package main provides the entry point for the results ingestion CLI tool.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/datasource"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/repository"
	"github.com/yourusername/race-forecast/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		sourceName = flag.String("source", "jolpica", "Configured data source to pull from")
		startYear  = flag.Int("start-year", 0, "First season to ingest")
		endYear    = flag.Int("end-year", 0, "Last season to ingest (defaults to start year)")
		round      = flag.Int("round", 0, "Single round to ingest instead of a full season")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfigWithSecrets(*configPath)
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *startYear == 0 {
		*startYear = cfg.Data.TrainingStartYear
	}
	if *endYear == 0 {
		*endYear = *startYear
	}

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	sources := buildSources(cfg)
	ingestion := service.NewIngestionService(sources, repos.Telemetry, appLog)

	if *round > 0 {
		if err := ingestion.IngestRound(ctx, *sourceName, *startYear, *round); err != nil {
			appLog.WithError(err).Fatal("Round ingestion failed")
		}
		appLog.WithFields(logrus.Fields{"year": *startYear, "round": *round}).Info("Round ingested")
		return
	}

	metrics, err := ingestion.IngestHistorical(ctx, *sourceName, *startYear, *endYear)
	if err != nil {
		appLog.WithError(err).Fatal("Historical ingestion failed")
	}

	appLog.WithFields(logrus.Fields{
		"source":  *sourceName,
		"span":    *endYear - *startYear + 1,
		"metrics": metrics.String(),
	}).Info("Historical ingestion completed")
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

func loadConfigWithSecrets(path string) *config.Config {
	bootLog := logrus.New()

	cfg, err := config.Load(path)
	if err != nil {
		bootLog.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			bootLog.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			bootLog.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		bootLog.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
