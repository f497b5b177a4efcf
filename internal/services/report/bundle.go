package report

import (
	"time"

	"LGDPulse/internal/domain/models"
)

// Inputs are the component outputs assembled into one bundle. Nil components
// were skipped; their names belong in Skipped.
type Inputs struct {
	Quality     []models.QualityReport
	Calibration *models.CalibrationResult
	Stability   *models.StabilityResult
	Sensitivity *models.SensitivityResult
	Overrides   *models.OverrideResult
	Verdict     models.GovernanceVerdict
	ChangeLog   models.ChangeLogEntry
	Skipped     []string
}

// Assemble produces the immutable result bundle handed to external reporting
// and visualization collaborators. The bundle is a value; callers own their
// copy and nothing here retains it.
func Assemble(runID, modelID string, at time.Time, in Inputs) *models.ReportBundle {
	return &models.ReportBundle{
		RunID:       runID,
		ModelID:     modelID,
		GeneratedAt: at,
		Quality:     in.Quality,
		Calibration: in.Calibration,
		Stability:   in.Stability,
		Sensitivity: in.Sensitivity,
		Overrides:   in.Overrides,
		Verdict:     in.Verdict,
		ChangeLog:   in.ChangeLog,
		Skipped:     in.Skipped,
	}
}
