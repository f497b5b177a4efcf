package models

import "time"

// ReasonCode is the closed enumeration of documented override reasons.
// Records carrying any other code fall into the residual bucket.
type ReasonCode string

const (
	ReasonCollateralRevaluation ReasonCode = "collateral_revaluation"
	ReasonDataCorrection        ReasonCode = "data_correction"
	ReasonExpertJudgment        ReasonCode = "expert_judgment"
	ReasonLegalSettlement       ReasonCode = "legal_settlement"
	ReasonCureEvent             ReasonCode = "cure_event"

	// ReasonResidual labels overrides whose code is outside the enumeration.
	ReasonResidual ReasonCode = "residual"
)

// Valid reports whether the code belongs to the documented enumeration.
func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonCollateralRevaluation, ReasonDataCorrection, ReasonExpertJudgment,
		ReasonLegalSettlement, ReasonCureEvent:
		return true
	}
	return false
}

// OverrideRecord captures a human override of a model-native LGD.
type OverrideRecord struct {
	ExposureID  string     `json:"exposure_id" validate:"required"`
	ModelLGD    float64    `json:"model_lgd" validate:"gte=0,lte=1"`
	OverrideLGD float64    `json:"override_lgd" validate:"gte=0,lte=1"`
	Reason      ReasonCode `json:"reason" validate:"required"`
	Approver    string     `json:"approver" validate:"required"`
	Timestamp   time.Time  `json:"timestamp"`
}
