package ml

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yourusername/race-forecast/internal/features"
	"github.com/yourusername/race-forecast/internal/models"
)

func fittedBundle(t *testing.T) *Bundle {
	t.Helper()
	x, y := syntheticRaceData(120)
	model := NewRegressor(DefaultParams())
	if err := model.Fit(x, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return &Bundle{
		Name:              ModelName,
		Version:           "v1.0",
		TrainedOn:         "2018-2024",
		FeatureNames:      []string{features.ColQualifyingTime},
		MAE:               17.456,
		RMSE:              21.9,
		FeatureImportance: map[string]float64{features.ColQualifyingTime: 1.0},
		TrainedAt:         time.Now().UTC(),
		Model:             model,
	}
}

func TestBundleRoundtrip(t *testing.T) {
	bundle := fittedBundle(t)
	path := filepath.Join(t.TempDir(), "model.json")

	if err := SaveBundle(bundle, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadBundle(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Version != bundle.Version || len(loaded.Model.Trees) != len(bundle.Model.Trees) {
		t.Fatalf("loaded bundle differs: %s, %d trees", loaded.Version, len(loaded.Model.Trees))
	}

	// Loaded model scores identically to the original
	x := []float64{84.2}
	want, err := bundle.Predict(x)
	if err != nil {
		t.Fatalf("original predict: %v", err)
	}
	got, err := loaded.Predict(x)
	if err != nil {
		t.Fatalf("loaded predict: %v", err)
	}
	if want != got {
		t.Errorf("expected %v, got %v after roundtrip", want, got)
	}
}

func TestUnmarshalBundleRejectsUnfitted(t *testing.T) {
	_, err := UnmarshalBundle([]byte(`{"name":"race-outcome","version":"v1.0","model":{"trees":[]}}`))
	if !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}

	_, err = UnmarshalBundle([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error on malformed bundle")
	}
}

func TestBundleValidateSchema(t *testing.T) {
	bundle := fittedBundle(t)

	if err := bundle.ValidateSchema([]string{features.ColQualifyingTime}); err != nil {
		t.Fatalf("expected matching schema to validate, got %v", err)
	}

	err := bundle.ValidateSchema([]string{"sector_one_time"})
	var mismatch *models.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if len(mismatch.Got) != 1 || mismatch.Got[0] != features.ColQualifyingTime {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}

	if err := bundle.ValidateSchema([]string{"a", "b"}); err == nil {
		t.Error("expected length mismatch to fail validation")
	}
}

func TestBundlePredictWrongWidth(t *testing.T) {
	bundle := fittedBundle(t)

	_, err := bundle.Predict([]float64{1, 2})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBundleRoundedMetadata(t *testing.T) {
	bundle := fittedBundle(t)
	bundle.FeatureImportance = map[string]float64{features.ColQualifyingTime: 0.987654}

	meta := bundle.RoundedMetadata()
	if meta.MAE != 17.46 {
		t.Errorf("expected MAE rounded to 17.46, got %v", meta.MAE)
	}
	if meta.FeatureImportance[features.ColQualifyingTime] != 0.9877 {
		t.Errorf("expected importance rounded to 0.9877, got %v", meta.FeatureImportance[features.ColQualifyingTime])
	}
	if meta.Version != "v1.0" || meta.TrainedOn != "2018-2024" {
		t.Errorf("unexpected metadata identity: %+v", meta)
	}
}

func TestBundleArtifact(t *testing.T) {
	bundle := fittedBundle(t)

	artifact, err := bundle.Artifact()
	if err != nil {
		t.Fatalf("artifact failed: %v", err)
	}

	if artifact.Name != ModelName || artifact.ModelType != ModelType {
		t.Errorf("unexpected artifact identity: %s %s", artifact.Name, artifact.ModelType)
	}
	if mae, ok := artifact.GetMetric("mae"); !ok || mae != 17.456 {
		t.Errorf("expected mae metric 17.456, got %v (%v)", mae, ok)
	}

	restored, err := UnmarshalBundle(artifact.Bundle)
	if err != nil {
		t.Fatalf("restoring bundle from artifact: %v", err)
	}
	if restored.Version != bundle.Version {
		t.Errorf("restored version %s, want %s", restored.Version, bundle.Version)
	}
}
