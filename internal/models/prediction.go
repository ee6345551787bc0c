package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DriverPrediction represents a single driver's predicted race outcome
type DriverPrediction struct {
	Position                 int                `json:"position" validate:"required,gt=0"`
	DriverAbbr               string             `json:"driver_abbr" validate:"required"`
	DriverName               string             `json:"driver_name"`
	Team                     string             `json:"team"`
	PredictedRaceTimeSeconds float64            `json:"predicted_race_time_seconds" validate:"required,gt=0"`
	QualifyingTime           float64            `json:"qualifying_time"`
	QualifyingPosition       *int               `json:"qualifying_position,omitempty"`
	Features                 map[string]float64 `json:"features,omitempty"`
}

// ModelMetadata describes the model that produced a prediction set
type ModelMetadata struct {
	Version           string             `json:"version" validate:"required"`
	TrainedOn         string             `json:"trained_on"`
	Features          []string           `json:"features" validate:"required,min=1"`
	MAE               float64            `json:"mae"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// PredictionSet represents a full ranked prediction for one event. Sets are
// upserted keyed on (year, grand_prix, session, model_version).
type PredictionSet struct {
	ID                uuid.UUID          `db:"id" json:"id"`
	Year              int                `db:"year" json:"year" validate:"required,gte=1950"`
	GrandPrix         string             `db:"grand_prix" json:"grand_prix" validate:"required"`
	Session           string             `db:"session" json:"session" validate:"required,session"`
	ModelVersion      string             `db:"model_version" json:"model_version" validate:"required"`
	TrainingDataRange string             `db:"training_data_range" json:"training_data_range"`
	FeaturesUsed      []string           `db:"features_used" json:"features_used" validate:"required,min=1"`
	MAEScore          float64            `db:"mae_score" json:"mae_score"`
	Predictions       []DriverPrediction `json:"predictions" validate:"required,min=1,dive"`
	Podium            []string           `json:"podium" validate:"max=3"`
	Metadata          ModelMetadata      `json:"model_metadata"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// Key returns the upsert key for this prediction set
func (p *PredictionSet) Key() string {
	return fmt.Sprintf("%d:%s:%s:%s", p.Year, p.GrandPrix, p.Session, p.ModelVersion)
}

// Winner returns the predicted winner's abbreviation, or "" for an empty set
func (p *PredictionSet) Winner() string {
	if len(p.Predictions) == 0 {
		return ""
	}
	return p.Predictions[0].DriverAbbr
}

// PredictionFor returns the prediction for a driver, or nil if absent
func (p *PredictionSet) PredictionFor(driverAbbr string) *DriverPrediction {
	for i := range p.Predictions {
		if p.Predictions[i].DriverAbbr == driverAbbr {
			return &p.Predictions[i]
		}
	}
	return nil
}
