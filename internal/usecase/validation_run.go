package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"LGDPulse/internal/domain/models"
	"LGDPulse/internal/domain/repository"
	domsvc "LGDPulse/internal/domain/service"
	"LGDPulse/internal/services/calibration"
	"LGDPulse/internal/services/governance"
	"LGDPulse/internal/services/override"
	"LGDPulse/internal/services/predict"
	"LGDPulse/internal/services/quality"
	"LGDPulse/internal/services/report"
	"LGDPulse/internal/services/sensitivity"
	"LGDPulse/internal/services/stability"
	"LGDPulse/pkg/logger"
	"LGDPulse/pkg/util"
)

// predictedLGDFeature is the synthetic output series tracked for drift next
// to the model inputs.
const predictedLGDFeature = "predicted_lgd"

// Config identifies the model under monitoring and the cycle window.
type Config struct {
	ModelID         string
	ModelVersion    string
	BaselineQuarter string

	// EvaluationQuarters restricts the cycle; empty means every quarter the
	// snapshot source has.
	EvaluationQuarters []string

	// ChangeDescription and Approver fill the change-log entry of the run.
	ChangeDescription string
	Approver          string
}

// Engines are the analytic components of a run, all pure or adapter-bounded.
type Engines struct {
	Gate        *quality.Gate
	Adapter     *predict.Adapter
	Calibration *calibration.Analyzer
	Stability   *stability.Engine
	Sensitivity *sensitivity.Engine
	Overrides   *override.Reconciler
	Aggregator  *governance.Aggregator
}

// Sources are the run inputs. Macro and Benchmarks may be nil; their checks
// are then skipped up front.
type Sources struct {
	Snapshots  repository.SnapshotSource
	Overrides  repository.OverrideSource
	Macro      repository.MacroSource
	Benchmarks repository.BenchmarkSource
}

// Sinks are the run outputs. Any of them may be nil; persistence and
// emission failures degrade the run but never void the verdict.
type Sinks struct {
	Results  repository.ResultSink
	Verdicts repository.VerdictLog
	Emitter  repository.ArtifactEmitter
	Metrics  repository.Metrics
}

// ValidationRun executes one full monitoring cycle: quality gate, scoring,
// fork-join analyzers, governance barrier, then reporting and emission.
type ValidationRun struct {
	cfg     Config
	engines Engines
	sources Sources
	sinks   Sinks
	log     *logger.Logger
}

// NewValidationRun wires a monitoring cycle.
func NewValidationRun(cfg Config, engines Engines, sources Sources, sinks Sinks, log *logger.Logger) *ValidationRun {
	return &ValidationRun{cfg: cfg, engines: engines, sources: sources, sinks: sinks, log: log}
}

// Execute runs the cycle for one model. SchemaError and ModelContractError
// abort; external input failures degrade. Every completed run yields a
// verdict, even a degraded one.
func (r *ValidationRun) Execute(ctx context.Context, m domsvc.Model) (*models.ReportBundle, error) {
	startedAt := time.Now()
	runID := fmt.Sprintf("%s-%s", r.cfg.ModelID, startedAt.UTC().Format("20060102T150405Z"))
	r.log.Info("validation run started",
		logger.String("run_id", runID),
		logger.String("model_id", r.cfg.ModelID),
		logger.String("baseline", r.cfg.BaselineQuarter))

	snaps, err := r.loadSnapshots(ctx)
	if err != nil {
		r.recordError("load_snapshots")
		return nil, err
	}

	qualityReports, err := r.runQualityGate(snaps)
	if err != nil {
		r.recordError("schema")
		return nil, err
	}

	sets, predictions, err := r.scoreSnapshots(ctx, m, snaps)
	if err != nil {
		r.recordError("model_contract")
		return nil, err
	}

	baseline := r.baselineSnapshot(snaps)
	if baseline == nil {
		return nil, models.NewSchemaError("", "quarter", fmt.Sprintf("baseline quarter %s not among snapshots", r.cfg.BaselineQuarter))
	}

	var skipped []string
	scenarios := r.fetchScenarios(ctx, &skipped)
	benchmarks := r.fetchBenchmarks(ctx, &skipped)
	overrideRecords := r.fetchOverrides(ctx, &skipped)

	// fork-join: the four analyzers share no mutable state and meet at the
	// governance barrier
	var (
		calResult   *models.CalibrationResult
		stabResult  *models.StabilityResult
		sensResult  *models.SensitivityResult
		ovrResult   *models.OverrideResult
		analyzersAt = time.Now()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer r.observeStage("calibration", time.Now())
		var err error
		calResult, err = r.engines.Calibration.Evaluate(r.cfg.ModelID, r.cfg.BaselineQuarter, snaps, predictions, benchmarks)
		return err
	})
	g.Go(func() error {
		defer r.observeStage("stability", time.Now())
		var err error
		stabResult, err = r.runStability(snaps, sets, baseline)
		return err
	})
	g.Go(func() error {
		defer r.observeStage("sensitivity", time.Now())
		var err error
		sensResult, err = r.engines.Sensitivity.Evaluate(gctx, m, baseline, scenarios)
		return err
	})
	g.Go(func() error {
		defer r.observeStage("overrides", time.Now())
		if overrideRecords == nil {
			return nil
		}
		ovrResult = r.engines.Overrides.Reconcile(overrideRecords, len(predictions))
		return nil
	})
	if err := g.Wait(); err != nil {
		r.recordError("analyzer")
		return nil, err
	}
	r.observeStage("analyzers_total", analyzersAt)

	verdict := r.engines.Aggregator.Aggregate(runID, r.cfg.ModelID, startedAt, governance.Input{
		Quality:     qualityReports,
		Calibration: calResult,
		Stability:   stabResult,
		Sensitivity: sensResult,
		Overrides:   ovrResult,
	})
	r.recordVerdict(verdict, stabResult)

	bundle := report.Assemble(runID, r.cfg.ModelID, startedAt, report.Inputs{
		Quality:     qualityReports,
		Calibration: calResult,
		Stability:   stabResult,
		Sensitivity: sensResult,
		Overrides:   ovrResult,
		Verdict:     verdict,
		ChangeLog: models.ChangeLogEntry{
			Date:         startedAt,
			ModelVersion: r.cfg.ModelVersion,
			Description:  r.cfg.ChangeDescription,
			Approver:     r.cfg.Approver,
		},
		Skipped: skipped,
	})

	r.persistAndEmit(ctx, bundle)
	r.observeStage("run_total", startedAt)
	r.log.Info("validation run finished",
		logger.String("run_id", runID),
		logger.String("overall", string(verdict.Overall)),
		logger.Bool("degraded", verdict.Degraded),
		logger.Duration("duration_ms", time.Since(startedAt)))
	return bundle, nil
}

func (r *ValidationRun) loadSnapshots(ctx context.Context) ([]*models.Snapshot, error) {
	defer r.observeStage("load_snapshots", time.Now())

	quarters := r.cfg.EvaluationQuarters
	if len(quarters) == 0 {
		var err error
		quarters, err = r.sources.Snapshots.Quarters(ctx)
		if err != nil {
			return nil, fmt.Errorf("list quarters: %w", err)
		}
	}
	if len(quarters) == 0 {
		return nil, models.NewSchemaError("", "quarter", "no snapshots available")
	}

	snaps := make([]*models.Snapshot, 0, len(quarters))
	for _, quarter := range quarters {
		snap, err := r.sources.Snapshots.Snapshot(ctx, quarter)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", quarter, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// runQualityGate validates every snapshot before any statistic is computed.
// A SchemaError aborts the run; soft violations ride along in the reports.
func (r *ValidationRun) runQualityGate(snaps []*models.Snapshot) ([]models.QualityReport, error) {
	defer r.observeStage("quality_gate", time.Now())

	reports := make([]models.QualityReport, 0, len(snaps))
	for _, snap := range snaps {
		rep, err := r.engines.Gate.Check(snap)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, nil
}

func (r *ValidationRun) scoreSnapshots(ctx context.Context, m domsvc.Model, snaps []*models.Snapshot) (map[string]*predict.Set, []models.Prediction, error) {
	defer r.observeStage("scoring", time.Now())

	sets := make(map[string]*predict.Set, len(snaps))
	var all []models.Prediction
	for _, snap := range snaps {
		set, err := r.engines.Adapter.Score(ctx, m, snap.AsOf, snap.Records)
		if err != nil {
			return nil, nil, err
		}
		sets[snap.Quarter] = set
		all = append(all, set.All()...)
	}
	return sets, all, nil
}

func (r *ValidationRun) baselineSnapshot(snaps []*models.Snapshot) *models.Snapshot {
	for _, snap := range snaps {
		if snap.Quarter == r.cfg.BaselineQuarter {
			return snap
		}
	}
	return nil
}

// runStability tracks drift over model inputs and the predicted LGD output,
// with bins frozen on the baseline quarter.
func (r *ValidationRun) runStability(snaps []*models.Snapshot, sets map[string]*predict.Set, baseline *models.Snapshot) (*models.StabilityResult, error) {
	populations := make([]stability.Population, 0, len(snaps))
	var basePop stability.Population
	for _, snap := range snaps {
		pop := stability.Population{Quarter: snap.Quarter, Values: map[string][]float64{}}
		for _, feature := range snap.FeatureNames() {
			pop.Values[feature] = snap.FeatureValues(feature)
		}
		if set := sets[snap.Quarter]; set != nil {
			lgds := make([]float64, 0, set.Len())
			set.Each(func(p models.Prediction) { lgds = append(lgds, p.LGD) })
			pop.Values[predictedLGDFeature] = lgds
		}
		if snap.Quarter == baseline.Quarter {
			basePop = pop
			continue
		}
		populations = append(populations, pop)
	}

	bins := r.engines.Stability.Freeze(basePop)
	return r.engines.Stability.Evaluate(bins, basePop, populations)
}

// fetchScenarios tolerates external failure: the scenario analysis is
// skipped and the run proceeds degraded.
func (r *ValidationRun) fetchScenarios(ctx context.Context, skipped *[]string) map[string]map[string]float64 {
	if r.sources.Macro == nil {
		*skipped = append(*skipped, "macro_scenarios")
		return nil
	}
	defer r.observeStage("fetch_scenarios", time.Now())
	scenarios, err := r.sources.Macro.Scenarios(ctx)
	if err != nil {
		r.logDependencyFailure("macro_scenarios", err)
		*skipped = append(*skipped, "macro_scenarios")
		return nil
	}
	return scenarios
}

func (r *ValidationRun) fetchBenchmarks(ctx context.Context, skipped *[]string) []models.BenchmarkRow {
	if r.sources.Benchmarks == nil {
		*skipped = append(*skipped, "benchmark_comparison")
		return nil
	}
	defer r.observeStage("fetch_benchmarks", time.Now())
	rows, err := r.sources.Benchmarks.Benchmarks(ctx)
	if err != nil {
		r.logDependencyFailure("benchmark_comparison", err)
		*skipped = append(*skipped, "benchmark_comparison")
		return nil
	}
	return rows
}

// fetchOverrides returns nil when the log is unavailable so the override
// dimension is omitted rather than reported empty.
func (r *ValidationRun) fetchOverrides(ctx context.Context, skipped *[]string) []models.OverrideRecord {
	if r.sources.Overrides == nil {
		*skipped = append(*skipped, "override_reconciliation")
		return nil
	}
	defer r.observeStage("fetch_overrides", time.Now())
	records, err := r.sources.Overrides.Overrides(ctx, r.cfg.ModelID)
	if err != nil {
		r.logDependencyFailure("override_reconciliation", err)
		*skipped = append(*skipped, "override_reconciliation")
		return nil
	}
	if records == nil {
		records = []models.OverrideRecord{}
	}
	return records
}

func (r *ValidationRun) logDependencyFailure(source string, err error) {
	var depErr *models.ExternalDependencyError
	if errors.As(err, &depErr) {
		r.log.Warn("external input unavailable, check skipped",
			logger.String("source", depErr.Source),
			logger.Int("attempts", depErr.Attempts),
			logger.Error(err))
	} else {
		r.log.Warn("input fetch failed, check skipped",
			logger.String("source", source),
			logger.Error(err))
	}
	r.recordError("external_dependency")
}

// persistAndEmit stores and publishes artifacts on a best-effort basis. The
// verdict exists regardless of sink availability.
func (r *ValidationRun) persistAndEmit(ctx context.Context, bundle *models.ReportBundle) {
	defer r.observeStage("persist_emit", time.Now())
	results := bundle.AllResults()

	if r.sinks.Results != nil {
		if err := r.sinks.Results.StoreResults(ctx, bundle.RunID, bundle.ModelID, results); err != nil {
			r.log.Error("result store failed", logger.String("run_id", bundle.RunID), logger.Error(err))
			r.recordError("result_store")
		}
	}
	if r.sinks.Verdicts != nil {
		if err := r.sinks.Verdicts.Append(ctx, bundle.Verdict); err != nil {
			r.log.Error("verdict append failed", logger.String("run_id", bundle.RunID), logger.Error(err))
			r.recordError("verdict_log")
		}
	}
	if r.sinks.Emitter != nil {
		if err := r.sinks.Emitter.EmitResults(ctx, bundle.RunID, bundle.ModelID, results); err != nil {
			r.log.Error("result emission failed", logger.String("run_id", bundle.RunID), logger.Error(err))
			r.recordError("emit_results")
		}
		if err := r.sinks.Emitter.EmitVerdict(ctx, bundle.Verdict); err != nil {
			r.log.Error("verdict emission failed", logger.String("run_id", bundle.RunID), logger.Error(err))
			r.recordError("emit_verdict")
		}
		if err := r.sinks.Emitter.EmitChangeLog(ctx, bundle.ChangeLog); err != nil {
			r.log.Error("changelog emission failed", logger.String("run_id", bundle.RunID), logger.Error(err))
			r.recordError("emit_changelog")
		}
	}
}

func (r *ValidationRun) observeStage(stage string, start time.Time) {
	if r.sinks.Metrics != nil {
		r.sinks.Metrics.RecordStageDuration(stage, time.Since(start).Seconds())
	}
}

func (r *ValidationRun) recordError(kind string) {
	if r.sinks.Metrics != nil {
		r.sinks.Metrics.RecordError(kind)
	}
}

func (r *ValidationRun) recordVerdict(v models.GovernanceVerdict, stab *models.StabilityResult) {
	if r.sinks.Metrics == nil {
		return
	}
	for dim, status := range v.Dimensions {
		r.sinks.Metrics.RecordVerdict(string(dim), string(status))
	}
	r.sinks.Metrics.RecordVerdict("overall", string(v.Overall))

	if stab == nil {
		return
	}
	latest := map[string]models.FeaturePSI{}
	for _, cell := range stab.Cells {
		prev, ok := latest[cell.Feature]
		if !ok || util.QuarterIndex(cell.Quarter) > util.QuarterIndex(prev.Quarter) {
			latest[cell.Feature] = cell
		}
	}
	for feature, cell := range latest {
		r.sinks.Metrics.RecordPSI(feature, cell.PSI)
	}
}
