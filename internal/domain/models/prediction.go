package models

import "time"

// Prediction is a point LGD estimate for one exposure from one model.
// One prediction per (exposure, model, as-of date); never mutated, only
// superseded by a newer prediction with a later AsOf.
type Prediction struct {
	ExposureID string             `json:"exposure_id"`
	ModelID    string             `json:"model_id"`
	LGD        float64            `json:"lgd"` // clamped to [0,1] by the adapter
	AsOf       time.Time          `json:"as_of"`
	Features   map[string]float64 `json:"features,omitempty"` // feature snapshot used for scoring
}
