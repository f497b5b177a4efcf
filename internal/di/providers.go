package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"LGDPulse/internal/domain/models"
	"LGDPulse/internal/domain/repository"
	domsvc "LGDPulse/internal/domain/service"
	"LGDPulse/internal/handler/api"
	internalrepo "LGDPulse/internal/repository"
	"LGDPulse/internal/service/macrodata"
	"LGDPulse/internal/service/scorecard"
	"LGDPulse/internal/services/calibration"
	"LGDPulse/internal/services/governance"
	"LGDPulse/internal/services/override"
	"LGDPulse/internal/services/predict"
	"LGDPulse/internal/services/quality"
	"LGDPulse/internal/services/sensitivity"
	"LGDPulse/internal/services/stability"
	"LGDPulse/internal/usecase"
	"LGDPulse/pkg/cache"
	pkgch "LGDPulse/pkg/clickhouse"
	"LGDPulse/pkg/config"
	xhttp "LGDPulse/pkg/http"
	pkgkafka "LGDPulse/pkg/kafka"
	applogger "LGDPulse/pkg/logger"
	"LGDPulse/pkg/metrics"
	"LGDPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// exposure, override, and result tables. Returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db)}
	stmts = append(stmts, internalrepo.SnapshotSchema(db)...)
	stmts = append(stmts, internalrepo.OverrideSchema(db)...)
	stmts = append(stmts, internalrepo.ResultSchema(db)...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideRedisClient creates a Redis client. Returns nil when disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCache creates the read-through fetch cache: Redis when enabled,
// in-process memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}

	c, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideVerdictLog creates the append-only governance verdict history,
// Redis-backed when available.
func ProvideVerdictLog(cfg *config.Config, rdb *redis.Client) repository.VerdictLog {
	if rdb != nil {
		return internalrepo.NewRedisVerdictLog(rdb, "lgdpulse")
	}
	return internalrepo.NewMemoryVerdictLog()
}

// ProvideMacroClient creates the macro scenario and benchmark fetcher.
// Returns nil when no endpoint is configured; the dependent checks are then
// skipped up front.
func ProvideMacroClient(cfg *config.Config, cacheSvc cache.Service, log *applogger.Logger) *macrodata.Client {
	if cfg.MacroData.BaseURL == "" {
		return nil
	}
	return macrodata.New(macrodata.Config{
		BaseURL:       cfg.MacroData.BaseURL,
		ScenarioPath:  cfg.MacroData.ScenarioPath,
		BenchmarkPath: cfg.MacroData.BenchmarkPath,
		Timeout:       cfg.MacroData.Timeout,
		RetryMax:      cfg.MacroData.RetryMax,
		BackoffMin:    cfg.MacroData.BackoffMin,
		BackoffMax:    cfg.MacroData.BackoffMax,
		CacheTTL:      cfg.MacroData.CacheTTL,
	}, cacheSvc, log)
}

// ProvideModel builds the model under monitoring from its published
// scorecard coefficient table.
func ProvideModel(cfg *config.Config) (domsvc.Model, error) {
	return scorecard.New(cfg.Model.ID, cfg.Model.Scorecard.Intercept, cfg.Model.Scorecard.Coefficients)
}

// featureBounds converts configured bounds to the domain representation
// shared by the quality gate and the sensitivity engine.
func featureBounds(src map[string]config.Bound) map[string]models.FeatureBound {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]models.FeatureBound, len(src))
	for name, b := range src {
		out[name] = models.FeatureBound{Min: b.Min, Max: b.Max}
	}
	return out
}

// ProvideEngines builds the analytic components from configured thresholds.
func ProvideEngines(cfg *config.Config) usecase.Engines {
	bounds := featureBounds(cfg.Quality.Bounds)
	adapter := predict.NewAdapter(cfg.Model.Seed, cfg.Model.ScoringTimeout)

	return usecase.Engines{
		Gate: quality.New(quality.Config{
			RequiredFeatures: cfg.Quality.RequiredFeatures,
			MaxMissingRate:   cfg.Quality.MaxMissingRate,
			Bounds:           bounds,
		}),
		Adapter: adapter,
		Calibration: calibration.New(calibration.Config{
			MAEWarn:         cfg.Thresholds.MAEWarn,
			MAERed:          cfg.Thresholds.MAERed,
			BiasWarn:        cfg.Thresholds.BiasWarn,
			BiasRed:         cfg.Thresholds.BiasRed,
			MinSegmentCount: cfg.Thresholds.MinSegmentCount,
			Bins:            cfg.Thresholds.Bins,
			ConfidenceZ:     cfg.Thresholds.ConfidenceZ,
		}),
		Stability: stability.New(stability.Config{
			Bins:    cfg.Thresholds.Bins,
			Epsilon: cfg.Thresholds.PSIEpsilon,
			PSIRed:  cfg.Thresholds.PSIRed,
		}),
		Sensitivity: sensitivity.New(sensitivity.Config{
			DeltaWarn: cfg.Thresholds.SensitivityWarn,
			DeltaRed:  cfg.Thresholds.SensitivityRed,
			Bounds:    bounds,
		}, adapter),
		Overrides: override.New(override.Config{
			VolumeWarn: cfg.Thresholds.OverrideVolumeWarn,
			VolumeRed:  cfg.Thresholds.OverrideVolumeRed,
		}),
		Aggregator: governance.New(),
	}
}

// ProvideSources wires the run inputs. Exposure snapshots and the override
// log live in ClickHouse; the macro fetcher is optional.
func ProvideSources(cfg *config.Config, ch *pkgch.Client, macro *macrodata.Client) (usecase.Sources, error) {
	if ch == nil {
		return usecase.Sources{}, fmt.Errorf("clickhouse must be enabled: exposure snapshots live there")
	}

	src := usecase.Sources{
		Snapshots: internalrepo.NewCHSnapshotSource(ch),
		Overrides: internalrepo.NewCHOverrideSource(ch),
	}
	if macro != nil {
		src.Macro = macro
		src.Benchmarks = macro
	}
	return src, nil
}

// ProvideSinks wires the run outputs. Every sink is optional; the run
// degrades rather than fails when one is absent.
func ProvideSinks(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	verdicts repository.VerdictLog,
	m repository.Metrics,
	log *applogger.Logger,
) usecase.Sinks {
	sinks := usecase.Sinks{Verdicts: verdicts, Metrics: m}

	if ch != nil {
		store := internalrepo.NewCHResultStore(ch)
		store.SetLogger(log)
		sinks.Results = store
	}
	if producer != nil {
		sinks.Emitter = internalrepo.NewKafkaEmitter(producer,
			cfg.Kafka.ResultsTopic, cfg.Kafka.VerdictsTopic, cfg.Kafka.ChangeLogTopic)
	}
	return sinks
}

// ProvideValidationRun wires one monitoring cycle for the configured model.
func ProvideValidationRun(
	cfg *config.Config,
	engines usecase.Engines,
	sources usecase.Sources,
	sinks usecase.Sinks,
	log *applogger.Logger,
) *usecase.ValidationRun {
	return usecase.NewValidationRun(usecase.Config{
		ModelID:            cfg.Model.ID,
		ModelVersion:       cfg.Model.Version,
		BaselineQuarter:    cfg.Model.BaselineQuarter,
		EvaluationQuarters: cfg.Model.EvaluationQuarters,
		ChangeDescription:  cfg.Model.ChangeDescription,
		Approver:           cfg.Model.Approver,
	}, engines, sources, sinks, log)
}

// ProvideHTTPHandler creates the read-only results API handler.
func ProvideHTTPHandler(log *applogger.Logger, sinks usecase.Sinks) xhttp.Handler {
	return api.NewResultsHandler(log, sinks.Results, sinks.Verdicts)
}

// ProvideApp creates the application server and registers infrastructure
// clients for shutdown.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	run *usecase.ValidationRun,
	model domsvc.Model,
	handler xhttp.Handler,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	rdb *redis.Client,
) *server.App {
	app := server.New(cfg, log, run, model)
	app.SetHTTPHandler(handler)
	if ch != nil {
		app.AddCloser(ch)
	}
	if producer != nil {
		app.AddCloser(producer)
	}
	if rdb != nil {
		app.AddCloser(rdb)
	}
	return app
}
