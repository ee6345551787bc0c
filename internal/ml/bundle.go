package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/race-forecast/internal/models"
)

// ModelType identifies the bundled estimator in persisted artifacts
const ModelType = "gradient_boosting_regressor"

// Bundle packages a fitted regressor with the feature schema and the
// evaluation metrics recorded at training time. The model and its feature
// names travel together; scoring against a different schema is refused.
type Bundle struct {
	Name              string             `json:"name"`
	Version           string             `json:"version"`
	TrainedOn         string             `json:"trained_on"`
	FeatureNames      []string           `json:"feature_names"`
	MAE               float64            `json:"mae"`
	RMSE              float64            `json:"rmse"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	TrainedAt         time.Time          `json:"trained_at"`
	Model             *Regressor         `json:"model"`
}

// Predict scores a feature vector ordered per the bundle's schema
func (b *Bundle) Predict(values []float64) (float64, error) {
	if len(values) != len(b.FeatureNames) {
		return 0, fmt.Errorf("expected %d features, got %d: %w", len(b.FeatureNames), len(values), ErrDimensionMismatch)
	}
	return b.Model.Predict(values)
}

// ValidateSchema checks the bundle's features against the expected columns
func (b *Bundle) ValidateSchema(expected []string) error {
	if len(b.FeatureNames) != len(expected) {
		return &models.SchemaMismatchError{Expected: expected, Got: b.FeatureNames}
	}
	for i := range expected {
		if b.FeatureNames[i] != expected[i] {
			return &models.SchemaMismatchError{Expected: expected, Got: b.FeatureNames}
		}
	}
	return nil
}

// RoundedMetadata builds presentation metadata with the MAE rounded to two
// decimal places and importances to four.
func (b *Bundle) RoundedMetadata() models.ModelMetadata {
	importance := make(map[string]float64, len(b.FeatureImportance))
	for name, v := range b.FeatureImportance {
		importance[name], _ = decimal.NewFromFloat(v).Round(4).Float64()
	}
	mae, _ := decimal.NewFromFloat(b.MAE).Round(2).Float64()

	return models.ModelMetadata{
		Version:           b.Version,
		TrainedOn:         b.TrainedOn,
		Features:          b.FeatureNames,
		MAE:               mae,
		FeatureImportance: importance,
	}
}

// Artifact converts the bundle into a persistable model artifact
func (b *Bundle) Artifact() (*models.ModelArtifact, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshalling bundle: %w", err)
	}
	metrics, err := json.Marshal(map[string]float64{
		"mae":  b.MAE,
		"rmse": b.RMSE,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling metrics: %w", err)
	}

	return &models.ModelArtifact{
		ID:        uuid.New(),
		Name:      b.Name,
		Version:   b.Version,
		ModelType: ModelType,
		Bundle:    raw,
		Metrics:   metrics,
		TrainedAt: b.TrainedAt,
	}, nil
}

// MarshalBundle serializes a bundle to JSON
func MarshalBundle(b *Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBundle deserializes a bundle and sanity-checks the model
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshalling bundle: %w", err)
	}
	if b.Model == nil || len(b.Model.Trees) == 0 {
		return nil, ErrNotFitted
	}
	return &b, nil
}

// SaveBundle writes a bundle to disk
func SaveBundle(b *Bundle, path string) error {
	data, err := MarshalBundle(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle file: %w", err)
	}
	return nil
}

// LoadBundle reads a bundle from disk
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle file: %w", err)
	}
	return UnmarshalBundle(data)
}
