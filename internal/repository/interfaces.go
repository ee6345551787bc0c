package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/race-forecast/internal/models"
)

// TelemetryRepository defines operations on stored session results
type TelemetryRepository interface {
	// GetSessionResults returns all driver rows for a session type across a
	// span of seasons (inclusive)
	GetSessionResults(ctx context.Context, startYear, endYear int, session string) ([]models.SessionResult, error)

	// GetEventSessionResults returns driver rows for one event and session
	GetEventSessionResults(ctx context.Context, year int, grandPrix, session string) ([]models.SessionResult, error)

	// ListEvents returns the grand prix names of a season in round order
	ListEvents(ctx context.Context, year int) ([]string, error)

	// UpsertSessionResults stores the full result payload for one session,
	// replacing any previous payload for the same event and session
	UpsertSessionResults(ctx context.Context, year, round int, grandPrix, session string, results []models.SessionResult) error
}

// PredictionRepository defines operations on stored prediction sets
type PredictionRepository interface {
	// Upsert inserts or replaces the set keyed on
	// (year, grand_prix, session, model_version)
	Upsert(ctx context.Context, set *models.PredictionSet) error

	// Get retrieves one prediction set by its upsert key
	Get(ctx context.Context, year int, grandPrix, session, modelVersion string) (*models.PredictionSet, error)

	// GetByYear retrieves all prediction sets for a season and model version
	GetByYear(ctx context.Context, year int, modelVersion string) ([]*models.PredictionSet, error)

	// Delete removes one prediction set by its upsert key
	Delete(ctx context.Context, year int, grandPrix, session, modelVersion string) error
}

// ModelRepository defines operations on persisted model artifacts
type ModelRepository interface {
	// Create inserts a new model artifact
	Create(ctx context.Context, artifact *models.ModelArtifact) error

	// GetByID retrieves an artifact by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error)

	// GetByVersion retrieves a specific artifact version
	GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error)

	// GetActive retrieves the currently active artifact for a model name
	GetActive(ctx context.Context, name string) (*models.ModelArtifact, error)

	// SetActive activates an artifact and deactivates other versions
	SetActive(ctx context.Context, id uuid.UUID) error
}
