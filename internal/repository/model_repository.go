package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/models"
)

// PostgresModelRepository implements ModelRepository for PostgreSQL
type PostgresModelRepository struct {
	db *database.DB
}

// NewPostgresModelRepository creates a new model repository
func NewPostgresModelRepository(db *database.DB) ModelRepository {
	return &PostgresModelRepository{db: db}
}

// Create inserts a new model artifact
func (m *PostgresModelRepository) Create(ctx context.Context, artifact *models.ModelArtifact) error {
	query := `
		INSERT INTO model_artifacts (id, name, version, model_type, bundle, metrics, trained_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := m.db.GetPool().Exec(ctx, query,
		artifact.ID, artifact.Name, artifact.Version, artifact.ModelType,
		artifact.Bundle, artifact.Metrics, artifact.TrainedAt, artifact.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}

	return nil
}

// GetByID retrieves an artifact by ID
func (m *PostgresModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, model_type, bundle, metrics, trained_at, active, created_at, updated_at
		FROM model_artifacts WHERE id = $1
	`

	artifact := &models.ModelArtifact{}
	err := m.db.GetPool().QueryRow(ctx, query, id).Scan(
		&artifact.ID, &artifact.Name, &artifact.Version, &artifact.ModelType,
		&artifact.Bundle, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
		&artifact.CreatedAt, &artifact.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model artifact: %w", err)
	}

	return artifact, nil
}

// GetByVersion retrieves a specific artifact version
func (m *PostgresModelRepository) GetByVersion(ctx context.Context, name, version string) (*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, model_type, bundle, metrics, trained_at, active, created_at, updated_at
		FROM model_artifacts
		WHERE name = $1 AND version = $2
		ORDER BY trained_at DESC
		LIMIT 1
	`

	artifact := &models.ModelArtifact{}
	err := m.db.GetPool().QueryRow(ctx, query, name, version).Scan(
		&artifact.ID, &artifact.Name, &artifact.Version, &artifact.ModelType,
		&artifact.Bundle, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
		&artifact.CreatedAt, &artifact.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model artifact by version: %w", err)
	}

	return artifact, nil
}

// GetActive retrieves the currently active artifact for a model name
func (m *PostgresModelRepository) GetActive(ctx context.Context, name string) (*models.ModelArtifact, error) {
	query := `
		SELECT id, name, version, model_type, bundle, metrics, trained_at, active, created_at, updated_at
		FROM model_artifacts
		WHERE name = $1 AND active = true
		ORDER BY trained_at DESC
		LIMIT 1
	`

	artifact := &models.ModelArtifact{}
	err := m.db.GetPool().QueryRow(ctx, query, name).Scan(
		&artifact.ID, &artifact.Name, &artifact.Version, &artifact.ModelType,
		&artifact.Bundle, &artifact.Metrics, &artifact.TrainedAt, &artifact.Active,
		&artifact.CreatedAt, &artifact.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active model artifact: %w", err)
	}

	return artifact, nil
}

// SetActive activates an artifact and deactivates other versions
func (m *PostgresModelRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	// First get the artifact to find its name
	artifact, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Start transaction
	tx, err := m.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Deactivate all other versions of this model
	_, err = tx.Exec(ctx, "UPDATE model_artifacts SET active = false WHERE name = $1 AND id != $2", artifact.Name, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate other versions: %w", err)
	}

	// Activate this version
	_, err = tx.Exec(ctx, "UPDATE model_artifacts SET active = true, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to activate model artifact: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
