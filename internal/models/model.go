package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModelArtifact represents a persisted model bundle with its metadata.
// Bundle holds the serialized regressor together with its feature names;
// the two are stored as one document and never separated.
type ModelArtifact struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Name      string          `db:"name" json:"name" validate:"required"`
	Version   string          `db:"version" json:"version" validate:"required"`
	ModelType string          `db:"model_type" json:"model_type" validate:"required"`
	Bundle    json.RawMessage `db:"bundle" json:"bundle"`
	Metrics   json.RawMessage `db:"metrics" json:"metrics"`
	TrainedAt time.Time       `db:"trained_at" json:"trained_at" validate:"required"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActive checks if the artifact is the currently active model
func (m *ModelArtifact) IsActive() bool {
	return m.Active
}

// GetMetric retrieves a metric value from the Metrics JSON
func (m *ModelArtifact) GetMetric(name string) (float64, bool) {
	if m.Metrics == nil {
		return 0, false
	}

	var metrics map[string]float64
	if err := json.Unmarshal(m.Metrics, &metrics); err != nil {
		return 0, false
	}

	v, ok := metrics[name]
	return v, ok
}
