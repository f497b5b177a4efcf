package repository

import (
	"context"

	"LGDPulse/internal/domain/models"
)

// SnapshotSource loads quarter-end portfolio snapshots. File parsing and
// storage format live behind this boundary.
type SnapshotSource interface {
	// Snapshot loads the portfolio state for a quarter (YYYYQ).
	Snapshot(ctx context.Context, quarter string) (*models.Snapshot, error)

	// Quarters lists available quarters in ascending order.
	Quarters(ctx context.Context) ([]string, error)
}

// OverrideSource loads the override log for a monitoring cycle.
type OverrideSource interface {
	Overrides(ctx context.Context, modelID string) ([]models.OverrideRecord, error)
}

// MacroSource provides named macro scenarios: scenario name -> macro
// variable -> shocked value.
type MacroSource interface {
	Scenarios(ctx context.Context) (map[string]map[string]float64, error)
}

// BenchmarkSource provides the external industry LGD benchmark study,
// consumed read-only by the calibration analyzer.
type BenchmarkSource interface {
	Benchmarks(ctx context.Context) ([]models.BenchmarkRow, error)
}

// ResultSink persists emitted validation results for later retrieval.
type ResultSink interface {
	StoreResults(ctx context.Context, runID, modelID string, results []models.ValidationResult) error
	LatestResults(ctx context.Context, modelID string, limit int) ([]models.ValidationResult, error)
	Close() error
}

// VerdictLog is the append-only governance verdict history, keyed by
// (run id, timestamp). Entries are never overwritten.
type VerdictLog interface {
	Append(ctx context.Context, v models.GovernanceVerdict) error
	History(ctx context.Context, modelID string, limit int) ([]models.GovernanceVerdict, error)
	Close() error
}

// ArtifactEmitter publishes run artifacts to external reporting consumers.
type ArtifactEmitter interface {
	EmitResults(ctx context.Context, runID, modelID string, results []models.ValidationResult) error
	EmitVerdict(ctx context.Context, v models.GovernanceVerdict) error
	EmitChangeLog(ctx context.Context, entry models.ChangeLogEntry) error
	Close() error
}

// Metrics records operational measurements for a run.
type Metrics interface {
	RecordStageDuration(stage string, seconds float64)
	RecordError(kind string)
	RecordVerdict(dimension, status string)
	RecordPSI(feature string, value float64)
}
