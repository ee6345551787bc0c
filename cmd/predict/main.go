// Package main provides the entry point for the prediction CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-forecast/internal/config"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/logger"
	"github.com/yourusername/race-forecast/internal/models"
	"github.com/yourusername/race-forecast/internal/repository"
	"github.com/yourusername/race-forecast/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		year       = flag.Int("year", 0, "Season year (defaults to configured prediction year)")
		grandPrix  = flag.String("grand-prix", "", "Grand prix name; empty runs the full season")
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

	if *grandPrix != "" {
		runEvent(ctx, pipeline, *year, *grandPrix, appLog)
		return
	}
	runSeason(ctx, pipeline, *year, appLog)
}

func runEvent(ctx context.Context, pipeline *service.PipelineService, year int, grandPrix string, appLog *logrus.Logger) {
	set, err := pipeline.Predict(ctx, year, grandPrix)
	if err != nil {
		appLog.WithError(err).Fatal("Prediction failed")
	}
	printPredictionSet(set)
}

func runSeason(ctx context.Context, pipeline *service.PipelineService, year int, appLog *logrus.Logger) {
	result, err := pipeline.PredictSeason(ctx, year)
	if err != nil {
		appLog.WithError(err).Fatal("Season prediction failed")
	}

	fmt.Printf("Season %d: %d events predicted, %d skipped\n", year, len(result.Generated), len(result.Skipped))
	for _, event := range result.Generated {
		fmt.Printf("  predicted  %s\n", event)
	}
	for event, reason := range result.Skipped {
		fmt.Printf("  skipped    %s: %s\n", event, reason)
	}
}

func printPredictionSet(set *models.PredictionSet) {
	fmt.Printf("\n%s %d (%s, model %s, mae %.2fs)\n", set.GrandPrix, set.Year, set.Session, set.ModelVersion, set.MAEScore)
	fmt.Println("Pos  Driver  Qualifying  Predicted Race Time")
	for _, prediction := range set.Predictions {
		fmt.Printf("%3d  %-6s  %9.3fs  %12.3fs\n",
			prediction.Position, prediction.DriverAbbr, prediction.QualifyingTime, prediction.PredictedRaceTimeSeconds)
	}
	fmt.Printf("Podium: %v\n", set.Podium)
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
