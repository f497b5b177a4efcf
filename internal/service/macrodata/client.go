package macrodata

import (
	"context"
	"encoding/json"
	"time"

	"LGDPulse/internal/domain/models"
	"LGDPulse/pkg/cache"
	pkghttp "LGDPulse/pkg/http"
	"LGDPulse/pkg/logger"
)

const (
	scenarioCacheKey  = "macrodata:scenarios"
	benchmarkCacheKey = "macrodata:benchmarks"
)

// Config holds the fetcher endpoints and retry policy.
type Config struct {
	BaseURL       string
	ScenarioPath  string
	BenchmarkPath string
	Timeout       time.Duration
	RetryMax      int
	BackoffMin    time.Duration
	BackoffMax    time.Duration
	CacheTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 8 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
}

// Client fetches macro scenarios and the industry benchmark study from
// external HTTP services. Fetches are retried with exponential backoff; an
// exhausted retry loop surfaces as an ExternalDependencyError so the run can
// proceed degraded. Responses are cached read-through when a cache is wired.
type Client struct {
	cfg   Config
	http  *pkghttp.Client
	cache cache.Service
	log   *logger.Logger
}

// New creates a macro-data client. The cache may be nil.
func New(cfg Config, cacheSvc cache.Service, log *logger.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:   cfg,
		http:  pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		cache: cacheSvc,
		log:   log,
	}
}

// Scenarios returns scenario name -> macro variable -> shocked value.
func (c *Client) Scenarios(ctx context.Context) (map[string]map[string]float64, error) {
	var out map[string]map[string]float64
	if c.fromCache(ctx, scenarioCacheKey, &out) {
		return out, nil
	}
	if err := c.fetch(ctx, "scenarios", c.cfg.ScenarioPath, &out); err != nil {
		return nil, err
	}
	c.toCache(ctx, scenarioCacheKey, out)
	return out, nil
}

// Benchmarks returns the external industry LGD benchmark rows.
func (c *Client) Benchmarks(ctx context.Context) ([]models.BenchmarkRow, error) {
	var out []models.BenchmarkRow
	if c.fromCache(ctx, benchmarkCacheKey, &out) {
		return out, nil
	}
	if err := c.fetch(ctx, "benchmarks", c.cfg.BenchmarkPath, &out); err != nil {
		return nil, err
	}
	c.toCache(ctx, benchmarkCacheKey, out)
	return out, nil
}

// fetch retries with exponential backoff up to the configured attempt limit.
func (c *Client) fetch(ctx context.Context, source, path string, dest interface{}) error {
	backoff := c.cfg.BackoffMin
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryMax; attempt++ {
		err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    c.cfg.BaseURL + path,
		}, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		c.log.Warn("macro data fetch failed",
			logger.String("source", source),
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt == c.cfg.RetryMax {
			break
		}
		select {
		case <-ctx.Done():
			return &models.ExternalDependencyError{Source: source, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
	return &models.ExternalDependencyError{Source: source, Attempts: c.cfg.RetryMax, Err: lastErr}
}

// Cached values travel as JSON strings so the memory and redis backends
// behave identically.
func (c *Client) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}
	var raw string
	if err := c.cache.Get(ctx, key, &raw); err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (c *Client) toCache(ctx context.Context, key string, value interface{}) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(raw), c.cfg.CacheTTL); err != nil {
		c.log.Warn("macro data cache write failed", logger.String("key", key), logger.Error(err))
	}
}
