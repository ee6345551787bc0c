package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/race-forecast/internal/database"
	"github.com/yourusername/race-forecast/internal/models"
)

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// predictionPayload is the stored JSONB document for one prediction set
type predictionPayload struct {
	Predictions []models.DriverPrediction `json:"predictions"`
	Podium      []string                  `json:"podium"`
	Metadata    models.ModelMetadata      `json:"model_metadata"`
}

// Upsert inserts or replaces the set keyed on (year, grand_prix, session, model_version)
func (r *PostgresPredictionRepository) Upsert(ctx context.Context, set *models.PredictionSet) error {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}

	payload, err := json.Marshal(predictionPayload{
		Predictions: set.Predictions,
		Podium:      set.Podium,
		Metadata:    set.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal prediction payload: %w", err)
	}

	features, err := json.Marshal(set.FeaturesUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal features list: %w", err)
	}

	query := `
		INSERT INTO race_predictions
			(id, year, grand_prix, session, model_version, training_data_range, features_used, mae_score, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (year, grand_prix, session, model_version)
		DO UPDATE SET
			training_data_range = EXCLUDED.training_data_range,
			features_used = EXCLUDED.features_used,
			mae_score = EXCLUDED.mae_score,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		set.ID, set.Year, set.GrandPrix, set.Session, set.ModelVersion,
		set.TrainingDataRange, features, set.MAEScore, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction set: %w", err)
	}

	return nil
}

// Get retrieves one prediction set by its upsert key
func (r *PostgresPredictionRepository) Get(ctx context.Context, year int, grandPrix, session, modelVersion string) (*models.PredictionSet, error) {
	query := `
		SELECT id, year, grand_prix, session, model_version, training_data_range, features_used, mae_score, payload, created_at, updated_at
		FROM race_predictions
		WHERE year = $1 AND grand_prix = $2 AND session = $3 AND model_version = $4
	`

	row := r.db.GetPool().QueryRow(ctx, query, year, grandPrix, session, modelVersion)
	set, err := scanPredictionSet(row.Scan)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query prediction set: %w", err)
	}

	return set, nil
}

// GetByYear retrieves all prediction sets for a season and model version
func (r *PostgresPredictionRepository) GetByYear(ctx context.Context, year int, modelVersion string) ([]*models.PredictionSet, error) {
	query := `
		SELECT id, year, grand_prix, session, model_version, training_data_range, features_used, mae_score, payload, created_at, updated_at
		FROM race_predictions
		WHERE year = $1 AND model_version = $2
		ORDER BY grand_prix ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, year, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction sets: %w", err)
	}
	defer rows.Close()

	var sets []*models.PredictionSet
	for rows.Next() {
		set, err := scanPredictionSet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction set: %w", err)
		}
		sets = append(sets, set)
	}

	return sets, rows.Err()
}

// Delete removes one prediction set by its upsert key
func (r *PostgresPredictionRepository) Delete(ctx context.Context, year int, grandPrix, session, modelVersion string) error {
	query := `
		DELETE FROM race_predictions
		WHERE year = $1 AND grand_prix = $2 AND session = $3 AND model_version = $4
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, year, grandPrix, session, modelVersion)
	if err != nil {
		return fmt.Errorf("failed to delete prediction set: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// scanPredictionSet scans one row into a PredictionSet, decoding JSONB columns
func scanPredictionSet(scan func(dest ...any) error) (*models.PredictionSet, error) {
	set := &models.PredictionSet{}
	var features, payload []byte

	err := scan(
		&set.ID, &set.Year, &set.GrandPrix, &set.Session, &set.ModelVersion,
		&set.TrainingDataRange, &features, &set.MAEScore, &payload,
		&set.CreatedAt, &set.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(features, &set.FeaturesUsed); err != nil {
		return nil, fmt.Errorf("failed to parse features list: %w", err)
	}

	var doc predictionPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prediction payload: %w", err)
	}
	set.Predictions = doc.Predictions
	set.Podium = doc.Podium
	set.Metadata = doc.Metadata

	return set, nil
}
