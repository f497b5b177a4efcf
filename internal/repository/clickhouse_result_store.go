package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LGDPulse/internal/domain/models"
	pkgch "LGDPulse/pkg/clickhouse"
	applogger "LGDPulse/pkg/logger"
)

// CHResultStore implements ResultSink backed by ClickHouse.
type CHResultStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

// ResultSchema returns the idempotent DDL for the results table.
func ResultSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.validation_results (
            run_id     String,
            model_id   String,
            metric     String,
            segment    String,
            value      Float64,
            threshold  Float64,
            status     LowCardinality(String),
            annotation String,
            created_at DateTime
        ) ENGINE = MergeTree()
        ORDER BY (model_id, created_at, metric)
    `, database),
	}
}

func (s *CHResultStore) StoreResults(ctx context.Context, runID, modelID string, results []models.ValidationResult) error {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()

	// multi-row VALUES insert, chunked to bound statement size
	const chunkSize = 2000
	now := time.Now()
	for lo := 0; lo < len(results); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(results) {
			hi = len(results)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*9)
		for _, r := range results[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, runID, modelID, r.Metric, r.Segment,
				r.Value, r.Threshold, string(r.Status), r.Annotation, now)
		}
		q := "INSERT INTO validation_results (run_id, model_id, metric, segment, value, threshold, status, annotation, created_at) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_results insert error",
					applogger.String("run_id", runID),
					applogger.String("model_id", modelID),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store results: %w", err)
		}
	}
	if s.l != nil {
		s.l.Info("clickhouse store_results ok",
			applogger.String("run_id", runID),
			applogger.String("model_id", modelID),
			applogger.Int("rows", len(results)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHResultStore) LatestResults(ctx context.Context, modelID string, limit int) ([]models.ValidationResult, error) {
	const q = `
        SELECT metric, segment, value, threshold, status, annotation
        FROM validation_results
        WHERE model_id = ? AND run_id = (
            SELECT run_id FROM validation_results
            WHERE model_id = ? ORDER BY created_at DESC LIMIT 1
        )
        ORDER BY metric ASC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, modelID, modelID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_results query error",
				applogger.String("model_id", modelID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest results: %w", err)
	}
	defer rows.Close()

	out := make([]models.ValidationResult, 0, limit)
	for rows.Next() {
		var r models.ValidationResult
		var status string
		if err := rows.Scan(&r.Metric, &r.Segment, &r.Value, &r.Threshold, &status, &r.Annotation); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = models.Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHResultStore) Close() error {
	return nil // connection pool managed by pkg
}
