package quality

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"LGDPulse/internal/domain/models"
)

// Config controls the quality gate checks.
type Config struct {
	// RequiredFeatures must be present somewhere in the snapshot; a feature
	// absent from every record is a schema error.
	RequiredFeatures []string

	// MaxMissingRate is the per-feature missingness threshold above which a
	// data quality warning is raised.
	MaxMissingRate float64

	// Bounds are documented physical ranges per feature; values outside are
	// soft violations.
	Bounds map[string]models.FeatureBound
}

// Gate validates snapshot shape, ranges and missingness before any
// statistic is computed. Check is a pure function of its input.
type Gate struct {
	cfg      Config
	validate *validator.Validate
}

// New creates a quality gate.
func New(cfg Config) *Gate {
	if cfg.MaxMissingRate <= 0 {
		cfg.MaxMissingRate = 0.05
	}
	return &Gate{cfg: cfg, validate: validator.New()}
}

// Check validates one snapshot. Missing required fields abort with a
// SchemaError; soft violations (missingness, outliers, duplicates) come
// back in the report so downstream stages can proceed degraded-but-flagged.
func (g *Gate) Check(snap *models.Snapshot) (*models.QualityReport, error) {
	if snap == nil {
		return nil, models.NewSchemaError("", "", "snapshot is nil")
	}
	if len(snap.Records) == 0 {
		return nil, models.NewSchemaError(snap.Name, "records", "is empty")
	}

	report := &models.QualityReport{
		Snapshot: snap.Name,
		Quarter:  snap.Quarter,
		Rows:     len(snap.Records),
		Status:   models.StatusGreen,
	}

	// Required features must appear in at least one record; a feature the
	// snapshot never carries is a schema problem, not a missingness one.
	present := map[string]bool{}
	for i := range snap.Records {
		for name := range snap.Records[i].Features {
			present[name] = true
		}
	}
	for _, name := range g.cfg.RequiredFeatures {
		if !present[name] {
			return nil, models.NewSchemaError(snap.Name, name, "is absent from all records")
		}
	}

	g.checkRecords(snap, report)
	g.checkMissingness(snap, report)
	g.checkBounds(snap, report)

	for _, r := range report.Results {
		report.Status = report.Status.Worse(r.Status)
	}
	return report, nil
}

func (g *Gate) checkRecords(snap *models.Snapshot, report *models.QualityReport) {
	seen := make(map[string]bool, len(snap.Records))
	dupes := 0
	invalid := 0
	for i := range snap.Records {
		rec := &snap.Records[i]
		if seen[rec.ID] {
			dupes++
		}
		seen[rec.ID] = true
		if err := g.validate.Struct(rec); err != nil {
			invalid++
		}
	}
	if dupes > 0 {
		report.Issues = append(report.Issues, models.QualityIssue{
			Field: "id", Kind: "duplicate_id", Count: dupes,
			Detail: "duplicate exposure identifiers rejected",
		})
		report.Results = append(report.Results, models.ValidationResult{
			Metric: "quality_duplicate_ids", Segment: snap.Quarter,
			Value: float64(dupes), Threshold: 0, Status: models.StatusRed,
		})
	}
	if invalid > 0 {
		report.Issues = append(report.Issues, models.QualityIssue{
			Field: "record", Kind: "invalid_record", Count: invalid,
			Detail: "record failed field validation",
		})
		report.Results = append(report.Results, models.ValidationResult{
			Metric: "quality_invalid_records", Segment: snap.Quarter,
			Value: float64(invalid), Threshold: 0, Status: models.StatusRed,
		})
	}
}

func (g *Gate) checkMissingness(snap *models.Snapshot, report *models.QualityReport) {
	total := len(snap.Records)
	for _, name := range snap.FeatureNames() {
		missing := 0
		for i := range snap.Records {
			if _, ok := snap.Records[i].Features[name]; !ok {
				missing++
			}
		}
		rate := float64(missing) / float64(total)
		status := models.StatusGreen
		if rate > g.cfg.MaxMissingRate {
			status = models.StatusAmber
			report.Issues = append(report.Issues, models.QualityIssue{
				Field: name, Kind: "missingness", Count: missing, Rate: rate,
			})
		}
		if missing > 0 || rate > g.cfg.MaxMissingRate {
			report.Results = append(report.Results, models.ValidationResult{
				Metric: fmt.Sprintf("quality_missingness_%s", name), Segment: snap.Quarter,
				Value: rate, Threshold: g.cfg.MaxMissingRate, Status: status,
			})
		}
	}
}

func (g *Gate) checkBounds(snap *models.Snapshot, report *models.QualityReport) {
	for name, bound := range g.cfg.Bounds {
		outside := 0
		for i := range snap.Records {
			if v, ok := snap.Records[i].Features[name]; ok && !bound.Contains(v) {
				outside++
			}
		}
		if outside == 0 {
			continue
		}
		rate := float64(outside) / float64(len(snap.Records))
		report.Issues = append(report.Issues, models.QualityIssue{
			Field: name, Kind: "out_of_bounds", Count: outside, Rate: rate,
		})
		report.Results = append(report.Results, models.ValidationResult{
			Metric: fmt.Sprintf("quality_bounds_%s", name), Segment: snap.Quarter,
			Value: rate, Threshold: 0, Status: models.StatusAmber,
		})
	}
}
