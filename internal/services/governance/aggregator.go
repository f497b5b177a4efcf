package governance

import (
	"fmt"
	"time"

	"LGDPulse/internal/domain/models"
	"LGDPulse/internal/services/stability"
)

// Input collects the component outputs of one monitoring cycle. A nil
// component means the check could not run; its dimension is omitted from the
// verdict and the verdict is marked degraded.
type Input struct {
	Quality     []models.QualityReport
	Calibration *models.CalibrationResult
	Stability   *models.StabilityResult
	Sensitivity *models.SensitivityResult
	Overrides   *models.OverrideResult
}

// Aggregator reduces component results into the per-dimension governance
// verdict. It is pure: no clocks, no I/O, same input same verdict.
type Aggregator struct{}

// New creates a governance aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes the worst-of status per governance dimension and the
// overall verdict. Low-sample results never move a dimension. A single
// breached PSI quarter holds policy compliance at amber; two consecutive
// breached quarters force red.
func (a *Aggregator) Aggregate(runID, modelID string, at time.Time, in Input) models.GovernanceVerdict {
	verdict := models.GovernanceVerdict{
		RunID:      runID,
		ModelID:    modelID,
		Timestamp:  at,
		Dimensions: make(map[models.Dimension]models.Status),
	}

	if len(in.Quality) > 0 {
		status := models.StatusGreen
		for _, report := range in.Quality {
			status = status.Worse(report.Status)
		}
		verdict.Dimensions[models.DimensionDataQuality] = status
	} else {
		a.degrade(&verdict, models.DimensionDataQuality)
	}

	if in.Calibration != nil {
		verdict.Dimensions[models.DimensionModelFit] = worstActionable(in.Calibration.Results)
	} else {
		a.degrade(&verdict, models.DimensionModelFit)
	}

	if in.Overrides != nil {
		verdict.Dimensions[models.DimensionOverrideVolume] = worstActionable(in.Overrides.Results)
	} else {
		a.degrade(&verdict, models.DimensionOverrideVolume)
	}

	if in.Stability != nil || in.Sensitivity != nil {
		verdict.Dimensions[models.DimensionPolicyCompliance] = a.policyCompliance(in)
	} else {
		a.degrade(&verdict, models.DimensionPolicyCompliance)
	}

	overall := models.StatusGreen
	for _, status := range verdict.Dimensions {
		overall = overall.Worse(status)
	}
	verdict.Overall = overall
	return verdict
}

// policyCompliance folds drift persistence and sensitivity outliers into one
// dimension. The escalation ladder for drift is time-based: one breached
// quarter is a warning, a second consecutive one is a finding.
func (a *Aggregator) policyCompliance(in Input) models.Status {
	status := models.StatusGreen
	if in.Stability != nil {
		switch {
		case stability.MaxStreak(in.Stability) >= 2:
			status = status.Worse(models.StatusRed)
		case anyRed(in.Stability.Results):
			status = status.Worse(models.StatusAmber)
		}
	}
	if in.Sensitivity != nil {
		status = status.Worse(worstActionable(in.Sensitivity.Results))
	}
	return status
}

func (a *Aggregator) degrade(v *models.GovernanceVerdict, dim models.Dimension) {
	v.Degraded = true
	v.Notes = append(v.Notes, fmt.Sprintf("%s: component unavailable, dimension omitted", dim))
}

func worstActionable(results []models.ValidationResult) models.Status {
	status := models.StatusGreen
	for _, r := range results {
		if !r.Actionable() {
			continue
		}
		status = status.Worse(r.Status)
	}
	return status
}

func anyRed(results []models.ValidationResult) bool {
	for _, r := range results {
		if r.Actionable() && r.Status == models.StatusRed {
			return true
		}
	}
	return false
}
