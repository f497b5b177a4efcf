package governance

import (
	"testing"
	"time"

	"LGDPulse/internal/domain/models"
)

func green(metric string) models.ValidationResult {
	return models.ValidationResult{Metric: metric, Status: models.StatusGreen}
}

func fullInput() Input {
	return Input{
		Quality: []models.QualityReport{{
			Snapshot: "s1", Status: models.StatusGreen,
			Results: []models.ValidationResult{green("missingness_ltv")},
		}},
		Calibration: &models.CalibrationResult{
			Results: []models.ValidationResult{green("calibration_mae")},
		},
		Stability: &models.StabilityResult{
			Results: []models.ValidationResult{green("psi_ltv")},
		},
		Sensitivity: &models.SensitivityResult{
			Results: []models.ValidationResult{green("sensitivity_ltv")},
		},
		Overrides: &models.OverrideResult{
			Results: []models.ValidationResult{green("override_volume")},
		},
	}
}

func TestAggregateAllGreen(t *testing.T) {
	v := New().Aggregate("run-1", "m1", time.Now(), fullInput())
	if v.Overall != models.StatusGreen || v.Degraded {
		t.Fatalf("verdict = %+v", v)
	}
	if len(v.Dimensions) != 4 {
		t.Fatalf("dimensions = %d, want 4", len(v.Dimensions))
	}
	for dim, status := range v.Dimensions {
		if status != models.StatusGreen {
			t.Fatalf("%s = %s, want green", dim, status)
		}
	}
}

func TestAggregateWorstOfDominates(t *testing.T) {
	in := fullInput()
	in.Calibration.Results = append(in.Calibration.Results, models.ValidationResult{
		Metric: "calibration_bias", Segment: "corporate", Status: models.StatusRed,
	})

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if v.Dimensions[models.DimensionModelFit] != models.StatusRed {
		t.Fatalf("model fit = %s, want red", v.Dimensions[models.DimensionModelFit])
	}
	if v.Overall != models.StatusRed {
		t.Fatalf("overall = %s, one red dimension must dominate", v.Overall)
	}
	// other dimensions stay untouched
	if v.Dimensions[models.DimensionDataQuality] != models.StatusGreen {
		t.Fatalf("data quality = %s", v.Dimensions[models.DimensionDataQuality])
	}
}

func TestAggregateLowSampleResultsIgnored(t *testing.T) {
	in := fullInput()
	in.Calibration.Results = append(in.Calibration.Results, models.ValidationResult{
		Metric: "calibration_bias", Segment: "sovereign",
		Status: models.StatusRed, Annotation: models.AnnotationLowSample,
	})

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if v.Dimensions[models.DimensionModelFit] != models.StatusGreen {
		t.Fatalf("low-sample red moved the dimension: %+v", v.Dimensions)
	}
	if v.Overall != models.StatusGreen {
		t.Fatalf("overall = %s, want green", v.Overall)
	}
}

func TestAggregateSingleBreachedQuarterIsAmber(t *testing.T) {
	in := fullInput()
	in.Stability = &models.StabilityResult{
		Cells: []models.FeaturePSI{
			{Feature: "ltv", Quarter: "2025Q1", PSI: 0.15, Status: models.StatusRed, BreachStreak: 1},
		},
		Results: []models.ValidationResult{
			{Metric: "psi_ltv", Segment: "2025Q1", Value: 0.15, Status: models.StatusRed},
		},
	}

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if v.Dimensions[models.DimensionPolicyCompliance] != models.StatusAmber {
		t.Fatalf("policy compliance = %s, want amber after one breached quarter",
			v.Dimensions[models.DimensionPolicyCompliance])
	}
}

func TestAggregateTwoConsecutiveBreachesAreRed(t *testing.T) {
	in := fullInput()
	in.Stability = &models.StabilityResult{
		Cells: []models.FeaturePSI{
			{Feature: "ltv", Quarter: "2025Q1", PSI: 0.15, Status: models.StatusRed, BreachStreak: 1},
			{Feature: "ltv", Quarter: "2025Q2", PSI: 0.18, Status: models.StatusRed, BreachStreak: 2},
		},
		Results: []models.ValidationResult{
			{Metric: "psi_ltv", Segment: "2025Q2", Value: 0.18, Status: models.StatusRed},
		},
	}

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if v.Dimensions[models.DimensionPolicyCompliance] != models.StatusRed {
		t.Fatalf("policy compliance = %s, want red after two consecutive breaches",
			v.Dimensions[models.DimensionPolicyCompliance])
	}
	if v.Overall != models.StatusRed {
		t.Fatalf("overall = %s, want red", v.Overall)
	}
}

func TestAggregateSensitivityOutlierFeedsPolicyCompliance(t *testing.T) {
	in := fullInput()
	in.Sensitivity.Results = []models.ValidationResult{
		{Metric: "sensitivity_ltv", Value: 0.2, Status: models.StatusRed},
	}

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if v.Dimensions[models.DimensionPolicyCompliance] != models.StatusRed {
		t.Fatalf("policy compliance = %s, want red",
			v.Dimensions[models.DimensionPolicyCompliance])
	}
}

func TestAggregateMissingComponentDegrades(t *testing.T) {
	in := fullInput()
	in.Calibration = nil

	v := New().Aggregate("run-1", "m1", time.Now(), in)
	if !v.Degraded {
		t.Fatalf("missing component must mark the verdict degraded")
	}
	if _, ok := v.Dimensions[models.DimensionModelFit]; ok {
		t.Fatalf("model fit dimension must be omitted, got %+v", v.Dimensions)
	}
	if len(v.Notes) == 0 {
		t.Fatalf("degraded verdict must carry a note")
	}
	if len(v.Dimensions) != 3 {
		t.Fatalf("dimensions = %d, want 3", len(v.Dimensions))
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	a := New()
	v1 := a.Aggregate("run-1", "m1", at, fullInput())
	v2 := a.Aggregate("run-1", "m1", at, fullInput())
	if v1.Overall != v2.Overall || len(v1.Dimensions) != len(v2.Dimensions) {
		t.Fatalf("verdicts differ: %+v vs %+v", v1, v2)
	}
	for dim, status := range v1.Dimensions {
		if v2.Dimensions[dim] != status {
			t.Fatalf("%s differs: %s vs %s", dim, status, v2.Dimensions[dim])
		}
	}
}
