// Package main provides the entry point for the season backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-forecast/internal/backtest"
	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/repository"
	"github.com/yourusername/race-forecast/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		year       = flag.Int("year", 0, "Season year to evaluate (defaults to configured prediction year)")
		csvOutput  = flag.String("csv", "", "Optional path for a CSV export of per-event metrics")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfigWithSecrets(*configPath)
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *year == 0 {
		*year = cfg.Data.PredictionYear
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

	pipeline := service.NewPipelineService(cfg, repos, appLog)
	if err := pipeline.LoadActiveModel(ctx); err != nil {
		appLog.WithError(err).Fatal("No active model available; run train first")
	}

	appLog.WithFields(logrus.Fields{
		"year":               *year,
		"position_tolerance": cfg.Evaluation.PositionTolerance,
		"workers":            cfg.Evaluation.Workers,
	}).Info("Starting season backtest")

	report, err := pipeline.Backtest(ctx, *year)
	if err != nil {
		appLog.WithError(err).Fatal("Backtest failed")
	}

	fmt.Print(backtest.GenerateConsoleReport(report))

	if *csvOutput != "" {
		if err := backtest.GenerateCSVExport(report, *csvOutput); err != nil {
			appLog.WithError(err).Fatal("Failed to write CSV export")
		}
		appLog.WithField("path", *csvOutput).Info("CSV export written")
	}
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
