// Package main provides the entry point for the model training CLI tool.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/repository"
	"github.com/yourusername/race-forecast/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		startYear  = flag.Int("start-year", 0, "Override training start year")
		endYear    = flag.Int("end-year", 0, "Override training end year")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfigWithSecrets(*configPath)
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *startYear > 0 {
		cfg.Data.TrainingStartYear = *startYear
	}
	if *endYear > 0 {
		cfg.Data.TrainingEndYear = *endYear
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

	appLog.WithFields(logrus.Fields{
		"training_range": cfg.TrainingDataRange(),
		"model_version":  cfg.Model.Version,
	}).Info("Starting training run")

	result, err := pipeline.Train(ctx)
	if err != nil {
		appLog.WithError(err).Fatal("Training failed")
	}

	appLog.WithFields(logrus.Fields{
		"model_version": result.Bundle.Version,
		"train_rows":    result.TrainRows,
		"test_rows":     result.TestRows,
		"train_mae":     result.TrainMAE,
		"test_mae":      result.TestMAE,
		"test_rmse":     result.TestRMSE,
		"duration":      result.Duration.String(),
	}).Info("Training run completed and model activated")
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
