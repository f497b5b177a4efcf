package models

// ResultsRequest filters the stored validation results.
type ResultsRequest struct {
	ModelID string `query:"model_id" validate:"required"`
	Limit   int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// VerdictsRequest pages through the append-only verdict history.
type VerdictsRequest struct {
	ModelID string `query:"model_id" validate:"required"`
	Limit   int    `query:"limit" default:"20" validate:"gte=1,lte=200"`
}
