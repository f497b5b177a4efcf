package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"LGDPulse/internal/domain/models"
	"LGDPulse/internal/repository"
	"LGDPulse/internal/services/calibration"
	"LGDPulse/internal/services/governance"
	"LGDPulse/internal/services/override"
	"LGDPulse/internal/services/predict"
	"LGDPulse/internal/services/quality"
	"LGDPulse/internal/services/sensitivity"
	"LGDPulse/internal/services/stability"
	"LGDPulse/pkg/logger"
)

type linearModel struct {
	id    string
	base  float64
	coefs map[string]float64
	fail  bool
}

func (m *linearModel) ID() string { return m.id }

func (m *linearModel) Predict(features []map[string]float64) ([]float64, error) {
	if m.fail {
		return []float64{0.5}, nil // wrong shape for any batch larger than one
	}
	out := make([]float64, len(features))
	for i, f := range features {
		v := m.base
		for name, c := range m.coefs {
			v += c * f[name]
		}
		out[i] = v
	}
	return out, nil
}

type fakeSnapshots struct {
	snaps map[string]*models.Snapshot
}

func (f *fakeSnapshots) Snapshot(_ context.Context, quarter string) (*models.Snapshot, error) {
	snap, ok := f.snaps[quarter]
	if !ok {
		return nil, fmt.Errorf("quarter %s not found", quarter)
	}
	return snap, nil
}

func (f *fakeSnapshots) Quarters(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(f.snaps))
	for q := range f.snaps {
		out = append(out, q)
	}
	sort.Strings(out)
	return out, nil
}

type fakeOverrides struct {
	records []models.OverrideRecord
	err     error
}

func (f *fakeOverrides) Overrides(context.Context, string) ([]models.OverrideRecord, error) {
	return f.records, f.err
}

type fakeMacro struct {
	scenarios map[string]map[string]float64
	err       error
}

func (f *fakeMacro) Scenarios(context.Context) (map[string]map[string]float64, error) {
	return f.scenarios, f.err
}

type fakeBenchmarks struct {
	rows []models.BenchmarkRow
	err  error
}

func (f *fakeBenchmarks) Benchmarks(context.Context) ([]models.BenchmarkRow, error) {
	return f.rows, f.err
}

type captureSink struct {
	runID   string
	results []models.ValidationResult
}

func (s *captureSink) StoreResults(_ context.Context, runID, _ string, results []models.ValidationResult) error {
	s.runID = runID
	s.results = results
	return nil
}

func (s *captureSink) LatestResults(context.Context, string, int) ([]models.ValidationResult, error) {
	return s.results, nil
}

func (s *captureSink) Close() error { return nil }

type captureEmitter struct {
	results   int
	verdicts  int
	changeLog int
}

func (e *captureEmitter) EmitResults(_ context.Context, _, _ string, results []models.ValidationResult) error {
	e.results += len(results)
	return nil
}

func (e *captureEmitter) EmitVerdict(context.Context, models.GovernanceVerdict) error {
	e.verdicts++
	return nil
}

func (e *captureEmitter) EmitChangeLog(context.Context, models.ChangeLogEntry) error {
	e.changeLog++
	return nil
}

func (e *captureEmitter) Close() error { return nil }

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func portfolioSnapshot(quarter string, n int, model *linearModel) *models.Snapshot {
	snap := &models.Snapshot{
		Name:    "portfolio-" + quarter,
		Quarter: quarter,
		AsOf:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	for i := 0; i < n; i++ {
		ltv := float64(i) / float64(n)
		snap.Records = append(snap.Records, models.ExposureRecord{
			ID:               fmt.Sprintf("%s-e%d", quarter, i),
			Segment:          "corporate",
			Features:         map[string]float64{"ltv": ltv},
			EAD:              100,
			RealizedLGD:      model.base + model.coefs["ltv"]*ltv,
			RecoveriesClosed: true,
		})
	}
	return snap
}

func testEngines() Engines {
	return Engines{
		Gate:        quality.New(quality.Config{RequiredFeatures: []string{"ltv"}}),
		Adapter:     predict.NewAdapter(42, time.Second),
		Calibration: calibration.New(calibration.Config{MinSegmentCount: 10}),
		Stability:   stability.New(stability.Config{}),
		Sensitivity: sensitivity.New(sensitivity.Config{}, predict.NewAdapter(42, time.Second)),
		Overrides:   override.New(override.Config{}),
		Aggregator:  governance.New(),
	}
}

func testConfig() Config {
	return Config{
		ModelID:           "lgd-corp-v3",
		ModelVersion:      "3.1.0",
		BaselineQuarter:   "2024Q4",
		ChangeDescription: "quarterly monitoring",
		Approver:          "model risk committee",
	}
}

func healthyRun(t *testing.T) (*ValidationRun, *linearModel, *captureSink, *captureEmitter, *repository.MemoryVerdictLog) {
	t.Helper()
	model := &linearModel{id: "lgd-corp-v3", base: 0.2, coefs: map[string]float64{"ltv": 0.1}}
	snaps := &fakeSnapshots{snaps: map[string]*models.Snapshot{
		"2024Q4": portfolioSnapshot("2024Q4", 50, model),
		"2025Q1": portfolioSnapshot("2025Q1", 50, model),
	}}
	overrides := &fakeOverrides{records: []models.OverrideRecord{
		{ExposureID: "2025Q1-e1", ModelLGD: 0.22, OverrideLGD: 0.30,
			Reason: models.ReasonExpertJudgment, Approver: "j.doe", Timestamp: time.Now()},
	}}
	macro := &fakeMacro{scenarios: map[string]map[string]float64{"adverse": {"hpi": 0.5}}}
	bench := &fakeBenchmarks{rows: []models.BenchmarkRow{{Segment: "corporate", MeanLGD: 0.25}}}

	sink := &captureSink{}
	emitter := &captureEmitter{}
	verdicts := repository.NewMemoryVerdictLog()

	run := NewValidationRun(testConfig(), testEngines(),
		Sources{Snapshots: snaps, Overrides: overrides, Macro: macro, Benchmarks: bench},
		Sinks{Results: sink, Verdicts: verdicts, Emitter: emitter},
		quietLogger(t))
	return run, model, sink, emitter, verdicts
}

func TestExecuteHealthyCycleIsGreen(t *testing.T) {
	run, _, sink, emitter, verdicts := healthyRun(t)

	bundle, err := run.Execute(context.Background(), &linearModel{
		id: "lgd-corp-v3", base: 0.2, coefs: map[string]float64{"ltv": 0.1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Verdict.Overall != models.StatusGreen {
		t.Fatalf("overall = %s, verdict %+v", bundle.Verdict.Overall, bundle.Verdict)
	}
	if len(bundle.Verdict.Dimensions) != 4 || bundle.Verdict.Degraded {
		t.Fatalf("dimensions = %+v, degraded = %v", bundle.Verdict.Dimensions, bundle.Verdict.Degraded)
	}
	if len(bundle.Skipped) != 0 {
		t.Fatalf("skipped = %v, want none", bundle.Skipped)
	}
	if bundle.Calibration == nil || bundle.Stability == nil || bundle.Sensitivity == nil || bundle.Overrides == nil {
		t.Fatalf("bundle components missing: %+v", bundle)
	}
	if bundle.Calibration.MAE > 1e-9 {
		t.Fatalf("mae = %v, want 0 for a perfectly calibrated model", bundle.Calibration.MAE)
	}

	// persistence and emission happened
	if sink.runID != bundle.RunID || len(sink.results) == 0 {
		t.Fatalf("sink: run_id %q, %d results", sink.runID, len(sink.results))
	}
	if emitter.verdicts != 1 || emitter.changeLog != 1 || emitter.results == 0 {
		t.Fatalf("emitter: %+v", emitter)
	}
	history, err := verdicts.History(context.Background(), "lgd-corp-v3", 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("verdict history = %v (%v)", history, err)
	}
}

func TestExecuteMacroFailureDegradesNotAborts(t *testing.T) {
	run, _, _, _, _ := healthyRun(t)
	run.sources.Macro = &fakeMacro{err: &models.ExternalDependencyError{
		Source: "scenarios", Attempts: 3, Err: errors.New("upstream down"),
	}}

	bundle, err := run.Execute(context.Background(), &linearModel{
		id: "lgd-corp-v3", base: 0.2, coefs: map[string]float64{"ltv": 0.1},
	})
	if err != nil {
		t.Fatalf("macro failure must not abort the run: %v", err)
	}
	if len(bundle.Skipped) != 1 || bundle.Skipped[0] != "macro_scenarios" {
		t.Fatalf("skipped = %v", bundle.Skipped)
	}
	// sensitivity still ran without scenarios, so the dimension is intact
	if len(bundle.Sensitivity.Scenarios) != 0 {
		t.Fatalf("scenarios = %+v, want none", bundle.Sensitivity.Scenarios)
	}
	if _, ok := bundle.Verdict.Dimensions[models.DimensionPolicyCompliance]; !ok {
		t.Fatalf("policy compliance missing: %+v", bundle.Verdict.Dimensions)
	}
}

func TestExecuteOverrideFailureOmitsDimension(t *testing.T) {
	run, _, _, _, _ := healthyRun(t)
	run.sources.Overrides = &fakeOverrides{err: errors.New("override log unreachable")}

	bundle, err := run.Execute(context.Background(), &linearModel{
		id: "lgd-corp-v3", base: 0.2, coefs: map[string]float64{"ltv": 0.1},
	})
	if err != nil {
		t.Fatalf("override failure must not abort the run: %v", err)
	}
	if !bundle.Verdict.Degraded {
		t.Fatalf("verdict must be degraded: %+v", bundle.Verdict)
	}
	if _, ok := bundle.Verdict.Dimensions[models.DimensionOverrideVolume]; ok {
		t.Fatalf("override dimension must be omitted: %+v", bundle.Verdict.Dimensions)
	}
	found := false
	for _, s := range bundle.Skipped {
		if s == "override_reconciliation" {
			found = true
		}
	}
	if !found {
		t.Fatalf("skipped = %v", bundle.Skipped)
	}
}

func TestExecuteSchemaErrorAborts(t *testing.T) {
	run, _, _, _, _ := healthyRun(t)
	run.sources.Snapshots = &fakeSnapshots{snaps: map[string]*models.Snapshot{
		"2024Q4": {Name: "empty", Quarter: "2024Q4"}, // no records
	}}

	_, err := run.Execute(context.Background(), &linearModel{
		id: "lgd-corp-v3", base: 0.2, coefs: map[string]float64{"ltv": 0.1},
	})
	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
}

func TestExecuteContractViolationAborts(t *testing.T) {
	run, _, _, _, _ := healthyRun(t)

	_, err := run.Execute(context.Background(), &linearModel{id: "lgd-corp-v3", fail: true})
	var contractErr *models.ModelContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("error = %v, want ModelContractError", err)
	}
}

func TestExecuteMissingBaselineQuarterFails(t *testing.T) {
	run, model, _, _, _ := healthyRun(t)
	run.cfg.BaselineQuarter = "2023Q1"

	_, err := run.Execute(context.Background(), model)
	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want SchemaError for missing baseline", err)
	}
}
