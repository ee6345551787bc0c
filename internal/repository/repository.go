package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/race-forecast/internal/database"
)

// isNoRows reports whether a pgx query returned no rows
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Repositories holds all repository implementations
type Repositories struct {
	Telemetry  TelemetryRepository
	Prediction PredictionRepository
	Model      ModelRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Telemetry:  NewPostgresTelemetryRepository(db),
		Prediction: NewPostgresPredictionRepository(db),
		Model:      NewPostgresModelRepository(db),
	}, nil
}
