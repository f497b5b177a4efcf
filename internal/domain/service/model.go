package service

// Model is the capability boundary for a deployed LGD scorer. Different
// model families (beta regression, tree ensembles) sit behind this single
// interface; the prediction adapter is the sole caller and never depends on
// a concrete family.
type Model interface {
	// ID identifies the model version being validated.
	ID() string

	// Predict scores one feature table row per exposure and returns one LGD
	// per row, in order. Outputs are expected in [0,1]; the adapter clamps
	// and enforces the contract.
	Predict(features []map[string]float64) ([]float64, error)
}

// Seedable is implemented by models with stochastic components. The adapter
// applies a fixed evaluation seed before scoring so runs are repeatable.
type Seedable interface {
	SetSeed(seed int64)
}
