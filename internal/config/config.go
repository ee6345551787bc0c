// Package config provides configuration management for the race forecast pipeline.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Data       DataConfig       `mapstructure:"data" validate:"required"`
	Model      ModelConfig      `mapstructure:"model" validate:"required"`
	Prediction PredictionConfig `mapstructure:"prediction" validate:"required"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" validate:"required"`
	Ingestion  IngestionConfig  `mapstructure:"ingestion" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// DataConfig represents historical data selection configuration
type DataConfig struct {
	TrainingStartYear int     `mapstructure:"training_start_year" validate:"required,gte=1950"`
	TrainingEndYear   int     `mapstructure:"training_end_year" validate:"required,gte=1950"`
	PredictionYear    int     `mapstructure:"prediction_year" validate:"required,gte=1950"`
	MinQualifyingTime float64 `mapstructure:"min_qualifying_time" validate:"required,gt=0"`
	MaxQualifyingTime float64 `mapstructure:"max_qualifying_time" validate:"required,gt=0"`
}

// ModelConfig represents gradient boosting hyperparameters and training settings
type ModelConfig struct {
	Version            string  `mapstructure:"version" validate:"required"`
	NEstimators        int     `mapstructure:"n_estimators" validate:"required,gt=0"`
	LearningRate       float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth           int     `mapstructure:"max_depth" validate:"required,gt=0"`
	MinSamplesSplit    int     `mapstructure:"min_samples_split" validate:"required,gte=2"`
	MinSamplesLeaf     int     `mapstructure:"min_samples_leaf" validate:"required,gte=1"`
	Subsample          float64 `mapstructure:"subsample" validate:"required,gt=0,lte=1"`
	Seed               int64   `mapstructure:"seed"`
	TestSize           float64 `mapstructure:"test_size" validate:"required,gt=0,lt=1"`
	MinTrainingSamples int     `mapstructure:"min_training_samples" validate:"required,gt=0"`
	TargetMAE          float64 `mapstructure:"target_mae" validate:"required,gt=0"`
}

// PredictionConfig represents prediction generation configuration
type PredictionConfig struct {
	Session         string `mapstructure:"session" validate:"required,session"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int    `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// CacheTTL returns the prediction cache TTL as a duration
func (c *PredictionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// EvaluationConfig represents backtest evaluation configuration
type EvaluationConfig struct {
	PositionTolerance int `mapstructure:"position_tolerance" validate:"required,gte=0"`
	Workers           int `mapstructure:"workers" validate:"required,gt=0"`
}

// IngestionConfig represents results ingestion configuration
type IngestionConfig struct {
	Sources  []DataSourceConfig `mapstructure:"sources" validate:"required,min=1"`
	Schedule ScheduleConfig     `mapstructure:"schedule" validate:"required"`
}

// DataSourceConfig represents a single results API source
type DataSourceConfig struct {
	Name      string `mapstructure:"name" validate:"required"`
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	Enabled   bool   `mapstructure:"enabled"`
	BatchSize int    `mapstructure:"batch_size" validate:"omitempty,gt=0"`
	APIKey    string `mapstructure:"api_key"`
}

// ScheduleConfig represents pipeline job scheduling
type ScheduleConfig struct {
	HistoricalSync    string `mapstructure:"historical_sync" validate:"required"`
	Retrain           string `mapstructure:"retrain" validate:"required"`
	PredictionRefresh string `mapstructure:"prediction_refresh" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// TrainingDataRange returns the configured training span as "start-end"
func (c *Config) TrainingDataRange() string {
	return fmt.Sprintf("%d-%d", c.Data.TrainingStartYear, c.Data.TrainingEndYear)
}
