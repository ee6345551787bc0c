// Package ml implements gradient-boosted regression trees for race time
// prediction, along with model bundle persistence and a prediction cache.
package ml

import "errors"

// Model errors
var (
	ErrNotFitted         = errors.New("model has not been fitted")
	ErrEmptyTrainingSet  = errors.New("training set is empty")
	ErrDimensionMismatch = errors.New("feature vector length does not match model")
)
