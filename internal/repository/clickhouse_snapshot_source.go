package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"LGDPulse/internal/domain/models"
	pkgch "LGDPulse/pkg/clickhouse"
	applogger "LGDPulse/pkg/logger"
)

// CHSnapshotSource implements SnapshotSource backed by ClickHouse. Features
// are stored as a JSON map column so portfolios with different driver sets
// share one table.
type CHSnapshotSource struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSnapshotSource(ch *pkgch.Client) *CHSnapshotSource {
	return &CHSnapshotSource{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSnapshotSource) SetLogger(l *applogger.Logger) { s.l = l }

// SnapshotSchema returns the idempotent DDL for the exposures table.
func SnapshotSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.exposures (
            quarter           LowCardinality(String),
            exposure_id       String,
            segment           LowCardinality(String),
            ead               Float64,
            realized_lgd      Float64,
            recoveries_closed UInt8,
            default_date      DateTime,
            features          String,
            as_of             DateTime
        ) ENGINE = MergeTree()
        ORDER BY (quarter, exposure_id)
    `, database),
	}
}

func (s *CHSnapshotSource) Snapshot(ctx context.Context, quarter string) (*models.Snapshot, error) {
	start := time.Now()
	const q = `
        SELECT exposure_id, segment, ead, realized_lgd, recoveries_closed, default_date, features, as_of
        FROM exposures
        WHERE quarter = ?
        ORDER BY exposure_id ASC
    `
	rows, err := s.db.QueryContext(ctx, q, quarter)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshot query error",
				applogger.String("quarter", quarter),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	snap := &models.Snapshot{
		Name:    "portfolio-" + quarter,
		Quarter: quarter,
	}
	for rows.Next() {
		var rec models.ExposureRecord
		var closed uint8
		var features string
		var asOf time.Time
		if err := rows.Scan(&rec.ID, &rec.Segment, &rec.EAD, &rec.RealizedLGD,
			&closed, &rec.DefaultDate, &features, &asOf); err != nil {
			return nil, fmt.Errorf("scan exposure: %w", err)
		}
		rec.RecoveriesClosed = closed != 0
		if features != "" {
			if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
				return nil, fmt.Errorf("decode features for %s: %w", rec.ID, err)
			}
		}
		if asOf.After(snap.AsOf) {
			snap.AsOf = asOf
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse snapshot ok",
			applogger.String("quarter", quarter),
			applogger.Int("rows", len(snap.Records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return snap, nil
}

func (s *CHSnapshotSource) Quarters(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT quarter FROM exposures ORDER BY quarter ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list quarters: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var quarter string
		if err := rows.Scan(&quarter); err != nil {
			return nil, fmt.Errorf("scan quarter: %w", err)
		}
		out = append(out, quarter)
	}
	return out, rows.Err()
}

// CHOverrideSource implements OverrideSource backed by ClickHouse.
type CHOverrideSource struct {
	db *sql.DB
}

func NewCHOverrideSource(ch *pkgch.Client) *CHOverrideSource {
	return &CHOverrideSource{db: ch.DB()}
}

// OverrideSchema returns the idempotent DDL for the overrides table.
func OverrideSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.overrides (
            model_id     LowCardinality(String),
            exposure_id  String,
            model_lgd    Float64,
            override_lgd Float64,
            reason       LowCardinality(String),
            approver     String,
            ts           DateTime
        ) ENGINE = MergeTree()
        ORDER BY (model_id, exposure_id, ts)
    `, database),
	}
}

func (s *CHOverrideSource) Overrides(ctx context.Context, modelID string) ([]models.OverrideRecord, error) {
	const q = `
        SELECT exposure_id, model_lgd, override_lgd, reason, approver, ts
        FROM overrides
        WHERE model_id = ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, q, modelID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	defer rows.Close()

	var out []models.OverrideRecord
	for rows.Next() {
		var rec models.OverrideRecord
		var reason string
		if err := rows.Scan(&rec.ExposureID, &rec.ModelLGD, &rec.OverrideLGD,
			&reason, &rec.Approver, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		rec.Reason = models.ReasonCode(reason)
		out = append(out, rec)
	}
	return out, rows.Err()
}
