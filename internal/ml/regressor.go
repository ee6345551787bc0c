package ml

import (
	"math"
	"math/rand"
)

// Params controls gradient boosting. Defaults mirror the values the pipeline
// ships with; the config layer can override any of them.
type Params struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	Seed            int64   `json:"seed"`
}

// DefaultParams returns the standard boosting parameters
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Subsample:       0.8,
		Seed:            42,
	}
}

// Regressor is a gradient-boosted ensemble of regression trees. The zero
// value is unfitted; Fit must succeed before Predict is usable.
type Regressor struct {
	Params      Params      `json:"params"`
	Init        float64     `json:"init"`
	Trees       []*treeNode `json:"trees"`
	Importances []float64   `json:"importances"`
	NumFeatures int         `json:"num_features"`
}

// NewRegressor creates an unfitted regressor with the given parameters
func NewRegressor(params Params) *Regressor {
	return &Regressor{Params: params}
}

// Fit trains the ensemble on the feature matrix and targets. Training is
// deterministic for a fixed seed: the subsample drawn for each stage comes
// from a single seeded source.
func (r *Regressor) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(y) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return ErrDimensionMismatch
	}

	r.NumFeatures = len(x[0])
	r.Importances = make([]float64, r.NumFeatures)
	r.Trees = make([]*treeNode, 0, r.Params.NEstimators)

	// Initial prediction is the target mean
	r.Init = mean(y)

	rng := rand.New(rand.NewSource(r.Params.Seed))

	preds := make([]float64, len(y))
	for i := range preds {
		preds[i] = r.Init
	}

	residuals := make([]float64, len(y))
	all := make([]int, len(y))
	for i := range all {
		all[i] = i
	}

	nSub := int(float64(len(y)) * r.Params.Subsample)
	if nSub < 1 {
		nSub = 1
	}

	treeP := treeParams{
		MaxDepth:        r.Params.MaxDepth,
		MinSamplesSplit: r.Params.MinSamplesSplit,
		MinSamplesLeaf:  r.Params.MinSamplesLeaf,
	}

	for stage := 0; stage < r.Params.NEstimators; stage++ {
		for i := range y {
			residuals[i] = y[i] - preds[i]
		}

		indices := all
		if nSub < len(y) {
			perm := rng.Perm(len(y))
			indices = perm[:nSub]
		}

		tree := buildTree(x, residuals, indices, 0, treeP, r.Importances)
		r.Trees = append(r.Trees, tree)

		for i := range preds {
			preds[i] += r.Params.LearningRate * tree.predict(x[i])
		}
	}

	r.normalizeImportances()
	return nil
}

// normalizeImportances scales importances to sum to one. When no split ever
// reduced impurity the mass is spread uniformly.
func (r *Regressor) normalizeImportances() {
	var total float64
	for _, v := range r.Importances {
		total += v
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(r.Importances))
		for i := range r.Importances {
			r.Importances[i] = uniform
		}
		return
	}
	for i := range r.Importances {
		r.Importances[i] /= total
	}
}

// Predict scores a single feature vector
func (r *Regressor) Predict(x []float64) (float64, error) {
	if len(r.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != r.NumFeatures {
		return 0, ErrDimensionMismatch
	}

	pred := r.Init
	for _, tree := range r.Trees {
		pred += r.Params.LearningRate * tree.predict(x)
	}
	return pred, nil
}

// PredictBatch scores each row of the matrix
func (r *Regressor) PredictBatch(x [][]float64) ([]float64, error) {
	preds := make([]float64, len(x))
	for i, row := range x {
		pred, err := r.Predict(row)
		if err != nil {
			return nil, err
		}
		preds[i] = pred
	}
	return preds, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MAE is the mean absolute error between predictions and targets
func MAE(preds, targets []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		sum += math.Abs(preds[i] - targets[i])
	}
	return sum / float64(len(preds))
}

// RMSE is the root mean squared error between predictions and targets
func RMSE(preds, targets []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		d := preds[i] - targets[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(preds)))
}
