package quality

import (
	"errors"
	"testing"
	"time"

	"LGDPulse/internal/domain/models"
)

func snapshotWith(records []models.ExposureRecord) *models.Snapshot {
	return &models.Snapshot{
		Name:    "test",
		Quarter: "2025Q1",
		AsOf:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Records: records,
	}
}

func record(id string, features map[string]float64) models.ExposureRecord {
	return models.ExposureRecord{
		ID:       id,
		Segment:  "corporate",
		Features: features,
		EAD:      1000,
	}
}

func TestCheckCleanSnapshotIsGreen(t *testing.T) {
	g := New(Config{RequiredFeatures: []string{"ltv"}, MaxMissingRate: 0.05})
	snap := snapshotWith([]models.ExposureRecord{
		record("a", map[string]float64{"ltv": 0.7}),
		record("b", map[string]float64{"ltv": 0.8}),
	})
	report, err := g.Check(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != models.StatusGreen {
		t.Fatalf("status = %s, want green", report.Status)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("unexpected issues: %+v", report.Issues)
	}
}

func TestCheckMissingRequiredFeatureIsSchemaError(t *testing.T) {
	g := New(Config{RequiredFeatures: []string{"ltv", "debt_ratio"}})
	snap := snapshotWith([]models.ExposureRecord{
		record("a", map[string]float64{"ltv": 0.7}),
	})
	_, err := g.Check(snap)
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Field != "debt_ratio" {
		t.Fatalf("schema error field = %q", se.Field)
	}
}

func TestCheckEmptySnapshotIsSchemaError(t *testing.T) {
	g := New(Config{})
	var se *models.SchemaError
	if _, err := g.Check(snapshotWith(nil)); !errors.As(err, &se) {
		t.Fatalf("expected SchemaError for empty snapshot, got %v", err)
	}
	if _, err := g.Check(nil); !errors.As(err, &se) {
		t.Fatalf("expected SchemaError for nil snapshot, got %v", err)
	}
}

func TestCheckDuplicateIDsAreRed(t *testing.T) {
	g := New(Config{})
	snap := snapshotWith([]models.ExposureRecord{
		record("a", map[string]float64{"ltv": 0.7}),
		record("a", map[string]float64{"ltv": 0.8}),
	})
	report, err := g.Check(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != models.StatusRed {
		t.Fatalf("status = %s, want red", report.Status)
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == "duplicate_id" && issue.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("duplicate issue not reported: %+v", report.Issues)
	}
}

func TestCheckMissingnessAboveThresholdIsAmber(t *testing.T) {
	g := New(Config{MaxMissingRate: 0.25})
	snap := snapshotWith([]models.ExposureRecord{
		record("a", map[string]float64{"ltv": 0.7, "debt_ratio": 0.3}),
		record("b", map[string]float64{"ltv": 0.8}),
		record("c", map[string]float64{"ltv": 0.9}),
		record("d", map[string]float64{"ltv": 0.6}),
	})
	report, err := g.Check(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != models.StatusAmber {
		t.Fatalf("status = %s, want amber", report.Status)
	}
	var issue *models.QualityIssue
	for i := range report.Issues {
		if report.Issues[i].Kind == "missingness" {
			issue = &report.Issues[i]
		}
	}
	if issue == nil || issue.Field != "debt_ratio" || issue.Count != 3 {
		t.Fatalf("missingness issue = %+v", issue)
	}
}

func TestCheckBoundViolationsAreFlagged(t *testing.T) {
	zero := 0.0
	g := New(Config{Bounds: map[string]models.FeatureBound{
		"ltv": {Min: &zero},
	}})
	snap := snapshotWith([]models.ExposureRecord{
		record("a", map[string]float64{"ltv": -0.1}),
		record("b", map[string]float64{"ltv": 0.8}),
	})
	report, err := g.Check(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != models.StatusAmber {
		t.Fatalf("status = %s, want amber", report.Status)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != "out_of_bounds" {
		t.Fatalf("issues = %+v", report.Issues)
	}
}
