package models

import "time"

// Status is a traffic-light verdict against a documented threshold.
type Status string

const (
	StatusGreen Status = "green"
	StatusAmber Status = "amber"
	StatusRed   Status = "red"
)

// rank orders statuses for worst-of reductions. Red dominates Amber
// dominates Green.
func (s Status) rank() int {
	switch s {
	case StatusRed:
		return 2
	case StatusAmber:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two statuses.
func (s Status) Worse(other Status) Status {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// WorstStatus reduces a list of statuses to the most severe; empty input is Green.
func WorstStatus(statuses ...Status) Status {
	worst := StatusGreen
	for _, s := range statuses {
		worst = worst.Worse(s)
	}
	return worst
}

// AnnotationLowSample marks metrics computed on segments below the minimum
// count. Such results are reported but excluded from governance reductions.
const AnnotationLowSample = "low sample"

// ValidationResult is one metric measured against its threshold. Immutable
// once emitted for a run; consumed by the governance aggregator and the
// reporting facade only.
type ValidationResult struct {
	Metric     string  `json:"metric"`
	Segment    string  `json:"segment,omitempty"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold"`
	Status     Status  `json:"status"`
	Annotation string  `json:"annotation,omitempty"`
}

// Actionable reports whether the result should participate in governance
// reductions. Low-sample results are informational only.
func (r ValidationResult) Actionable() bool {
	return r.Annotation != AnnotationLowSample
}

// QualityIssue is one soft violation found by the quality gate.
type QualityIssue struct {
	Field  string  `json:"field"`
	Kind   string  `json:"kind"` // missingness, out_of_bounds, duplicate_id, invalid_record
	Detail string  `json:"detail,omitempty"`
	Count  int     `json:"count"`
	Rate   float64 `json:"rate,omitempty"`
}

// QualityReport enumerates soft violations so downstream stages can proceed
// on a degraded-but-flagged basis. Hard schema problems never reach a
// report; they abort the run as a SchemaError.
type QualityReport struct {
	Snapshot string             `json:"snapshot"`
	Quarter  string             `json:"quarter"`
	Rows     int                `json:"rows"`
	Issues   []QualityIssue     `json:"issues,omitempty"`
	Status   Status             `json:"status"`
	Results  []ValidationResult `json:"results,omitempty"`
}

// CalibrationBin is one row of the binned predicted-vs-actual table.
type CalibrationBin struct {
	Bin           int     `json:"bin"`
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanActual    float64 `json:"mean_actual"`
	Count         int     `json:"count"`
}

// CalibrationPeriod is one point of the back-testing time series. The band
// is a 95% normal-approximation interval on the realized mean.
type CalibrationPeriod struct {
	Quarter       string  `json:"quarter"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanRealized  float64 `json:"mean_realized"`
	BandLower     float64 `json:"band_lower"`
	BandUpper     float64 `json:"band_upper"`
	Count         int     `json:"count"`
}

// SegmentCalibration carries accuracy metrics for one portfolio segment.
type SegmentCalibration struct {
	Segment   string  `json:"segment"`
	Count     int     `json:"count"`
	MAE       float64 `json:"mae"`
	Bias      float64 `json:"bias"` // mean signed error, predicted minus realized
	LowSample bool    `json:"low_sample,omitempty"`
}

// BenchmarkRow is one row of an external industry LGD benchmark study.
type BenchmarkRow struct {
	Segment string  `json:"segment"`
	MeanLGD float64 `json:"mean_lgd"`
	Source  string  `json:"source,omitempty"`
}

// BenchmarkGap compares a portfolio segment against the external benchmark.
type BenchmarkGap struct {
	Segment      string  `json:"segment"`
	PortfolioLGD float64 `json:"portfolio_lgd"`
	BenchmarkLGD float64 `json:"benchmark_lgd"`
	Gap          float64 `json:"gap"`
}

// CalibrationResult is the output of the calibration analyzer.
type CalibrationResult struct {
	ModelID    string               `json:"model_id"`
	Pairs      int                  `json:"pairs"`
	MAE        float64              `json:"mae"`
	Bias       float64              `json:"bias"`
	Segments   []SegmentCalibration `json:"segments"`
	Deciles    []CalibrationBin     `json:"deciles"`
	TimeSeries []CalibrationPeriod  `json:"time_series"`
	Benchmark  []BenchmarkGap       `json:"benchmark,omitempty"`
	Results    []ValidationResult   `json:"results"`
}

// BinContribution is one bin's share of a PSI breach, feeding the waterfall
// visualization.
type BinContribution struct {
	Bin          int     `json:"bin"`
	Expected     float64 `json:"expected"`
	Actual       float64 `json:"actual"`
	Contribution float64 `json:"contribution"`
}

// FeaturePSI is one cell of the (feature x period) stability matrix.
type FeaturePSI struct {
	Feature       string            `json:"feature"`
	Quarter       string            `json:"quarter"`
	PSI           float64           `json:"psi"`
	Status        Status            `json:"status"`
	BreachStreak  int               `json:"breach_streak"` // consecutive breached quarters ending here
	Decomposition []BinContribution `json:"decomposition,omitempty"`
}

// StabilityResult is the output of the PSI engine.
type StabilityResult struct {
	BaselineQuarter string                   `json:"baseline_quarter"`
	Bins            map[string]BinDefinition `json:"bins"`
	Cells           []FeaturePSI             `json:"cells"`
	Results         []ValidationResult       `json:"results"`
}

// Matrix re-shapes the cells into feature -> quarter -> PSI.
func (s *StabilityResult) Matrix() map[string]map[string]float64 {
	m := make(map[string]map[string]float64)
	for _, c := range s.Cells {
		if m[c.Feature] == nil {
			m[c.Feature] = make(map[string]float64)
		}
		m[c.Feature][c.Quarter] = c.PSI
	}
	return m
}

// DriverSensitivity records the LGD response to a +/- one standard deviation
// shock of one driver, all others held fixed.
type DriverSensitivity struct {
	Driver         string  `json:"driver"`
	Std            float64 `json:"std"`
	DeltaUp        float64 `json:"delta_up"`
	DeltaDown      float64 `json:"delta_down"`
	MaxAbsDelta    float64 `json:"max_abs_delta"`
	NonPerturbable bool    `json:"non_perturbable,omitempty"`
	Outlier        bool    `json:"outlier,omitempty"`
}

// ScenarioShift is the point-in-time LGD shift of a named macro scenario
// versus the through-the-cycle baseline.
type ScenarioShift struct {
	Scenario    string  `json:"scenario"`
	BaselineLGD float64 `json:"baseline_lgd"` // TTC
	ShockedLGD  float64 `json:"shocked_lgd"`  // PIT
	Shift       float64 `json:"shift"`
}

// SensitivityResult is the output of the sensitivity engine. Drivers are in
// tornado order: ranked by absolute delta magnitude, descending.
type SensitivityResult struct {
	ModelID   string              `json:"model_id"`
	Drivers   []DriverSensitivity `json:"drivers"`
	Scenarios []ScenarioShift     `json:"scenarios,omitempty"`
	Results   []ValidationResult  `json:"results"`
}

// LGDSummary is the five-number summary (plus mean) driving a box plot.
type LGDSummary struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// ReasonStats aggregates active overrides under one reason code.
type ReasonStats struct {
	Reason      ReasonCode `json:"reason"`
	Count       int        `json:"count"`
	VolumeShare float64    `json:"volume_share"` // fraction of total predictions
	ModelLGD    LGDSummary `json:"model_lgd"`
	OverrideLGD LGDSummary `json:"override_lgd"`
}

// OverrideResult is the output of override reconciliation. AuditTrail holds
// superseded records in arrival order; it is append-only.
type OverrideResult struct {
	TotalRecords int                `json:"total_records"`
	Active       int                `json:"active"`
	VolumeShare  float64            `json:"volume_share"`
	ByReason     []ReasonStats      `json:"by_reason"`
	AuditTrail   []OverrideRecord   `json:"audit_trail,omitempty"`
	Results      []ValidationResult `json:"results"`
}

// Dimension is one governance dimension of the aggregate verdict.
type Dimension string

const (
	DimensionDataQuality      Dimension = "data_quality"
	DimensionModelFit         Dimension = "model_fit"
	DimensionOverrideVolume   Dimension = "override_volume"
	DimensionPolicyCompliance Dimension = "policy_compliance"
)

// GovernanceVerdict is the aggregate status per governance dimension plus
// the overall worst-of reduction. Created once per monitoring cycle and
// appended to the verdict log, never overwritten.
type GovernanceVerdict struct {
	RunID      string               `json:"run_id"`
	ModelID    string               `json:"model_id"`
	Timestamp  time.Time            `json:"timestamp"`
	Dimensions map[Dimension]Status `json:"dimensions"`
	Overall    Status               `json:"overall"`
	Degraded   bool                 `json:"degraded,omitempty"`
	Notes      []string             `json:"notes,omitempty"`
}

// ChangeLogEntry is the change-log record emitted with each cycle;
// persistence to a durable log is an external responsibility.
type ChangeLogEntry struct {
	Date         time.Time `json:"date"`
	ModelVersion string    `json:"model_version"`
	Description  string    `json:"description"`
	Approver     string    `json:"approver"`
}

// ReportBundle is the structured result bundle handed to external
// visualization and report generators.
type ReportBundle struct {
	RunID       string             `json:"run_id"`
	ModelID     string             `json:"model_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Quality     []QualityReport    `json:"quality,omitempty"`
	Calibration *CalibrationResult `json:"calibration,omitempty"`
	Stability   *StabilityResult   `json:"stability,omitempty"`
	Sensitivity *SensitivityResult `json:"sensitivity,omitempty"`
	Overrides   *OverrideResult    `json:"overrides,omitempty"`
	Verdict     GovernanceVerdict  `json:"verdict"`
	ChangeLog   ChangeLogEntry     `json:"change_log"`
	Skipped     []string           `json:"skipped,omitempty"` // checks skipped due to unavailable inputs
}

// AllResults flattens every component's validation results for sinks.
func (b *ReportBundle) AllResults() []ValidationResult {
	var out []ValidationResult
	for _, q := range b.Quality {
		out = append(out, q.Results...)
	}
	if b.Calibration != nil {
		out = append(out, b.Calibration.Results...)
	}
	if b.Stability != nil {
		out = append(out, b.Stability.Results...)
	}
	if b.Sensitivity != nil {
		out = append(out, b.Sensitivity.Results...)
	}
	if b.Overrides != nil {
		out = append(out, b.Overrides.Results...)
	}
	return out
}
