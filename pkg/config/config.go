package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"LGDPulse/pkg/util"
)

// Bound is a declared physical feature range; nil means unbounded on that
// side.
type Bound struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`

	Model struct {
		ID              string        `yaml:"id"`
		Version         string        `yaml:"version" default:"unversioned"`
		BaselineQuarter string        `yaml:"baseline_quarter"`
		Seed            int64         `yaml:"seed" default:"42"`
		ScoringTimeout  time.Duration `yaml:"scoring_timeout" default:"30s"`

		// EvaluationQuarters restricts the cycle window; empty means every
		// quarter the snapshot store has.
		EvaluationQuarters []string `yaml:"evaluation_quarters"`

		// ChangeDescription and Approver fill the change-log entry emitted
		// with each run.
		ChangeDescription string `yaml:"change_description" default:"quarterly monitoring run"`
		Approver          string `yaml:"approver"`

		// Scorecard is the fitted linear coefficient table of the model
		// under monitoring, as published in the model inventory.
		Scorecard struct {
			Intercept    float64            `yaml:"intercept"`
			Coefficients map[string]float64 `yaml:"coefficients"`
		} `yaml:"scorecard"`
	} `yaml:"model"`

	Thresholds struct {
		MAEWarn            float64 `yaml:"mae_warn" default:"0.048"`
		MAERed             float64 `yaml:"mae_red" default:"0.06"`
		BiasWarn           float64 `yaml:"bias_warn" default:"0.024"`
		BiasRed            float64 `yaml:"bias_red" default:"0.03"`
		PSIRed             float64 `yaml:"psi_red" default:"0.10"`
		PSIEpsilon         float64 `yaml:"psi_epsilon" default:"0.0001"`
		Bins               int     `yaml:"bins" default:"10"`
		MinSegmentCount    int     `yaml:"min_segment_count" default:"30"`
		ConfidenceZ        float64 `yaml:"confidence_z" default:"1.96"`
		OverrideVolumeWarn float64 `yaml:"override_volume_warn" default:"0.05"`
		OverrideVolumeRed  float64 `yaml:"override_volume_red" default:"0.10"`
		SensitivityWarn    float64 `yaml:"sensitivity_warn" default:"0.05"`
		SensitivityRed     float64 `yaml:"sensitivity_red" default:"0.10"`
	} `yaml:"thresholds"`

	Quality struct {
		RequiredFeatures []string         `yaml:"required_features"`
		MaxMissingRate   float64          `yaml:"max_missing_rate" default:"0.05"`
		Bounds           map[string]Bound `yaml:"bounds"`
	} `yaml:"quality"`

	MacroData struct {
		BaseURL       string        `yaml:"base_url"`
		ScenarioPath  string        `yaml:"scenario_path" default:"/v1/scenarios"`
		BenchmarkPath string        `yaml:"benchmark_path" default:"/v1/benchmarks"`
		Timeout       time.Duration `yaml:"timeout" default:"10s"`
		RetryMax      int           `yaml:"retry_max" default:"3"`
		BackoffMin    time.Duration `yaml:"backoff_min" default:"500ms"`
		BackoffMax    time.Duration `yaml:"backoff_max" default:"8s"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"1h"`
	} `yaml:"macrodata"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		ResultsTopic   string   `yaml:"results_topic" default:"lgd.validation.results"`
		VerdictsTopic  string   `yaml:"verdicts_topic" default:"lgd.governance.verdicts"`
		ChangeLogTopic string   `yaml:"changelog_topic" default:"lgd.model.changelog"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"gzip"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"lgdpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if v := os.Getenv("MODEL_ID"); v != "" {
		c.Model.ID = v
	}
	if v := os.Getenv("BASELINE_QUARTER"); v != "" {
		c.Model.BaselineQuarter = v
	}
	if v := os.Getenv("MACRODATA_BASE_URL"); v != "" {
		c.MacroData.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Model.ID == "" {
		return fmt.Errorf("model.id is required")
	}
	if !util.IsQuarter(c.Model.BaselineQuarter) {
		return fmt.Errorf("model.baseline_quarter must be YYYYQ, got '%s'", c.Model.BaselineQuarter)
	}
	if c.Thresholds.MAEWarn >= c.Thresholds.MAERed {
		return fmt.Errorf("thresholds.mae_warn must be below mae_red")
	}
	if c.Thresholds.BiasWarn >= c.Thresholds.BiasRed {
		return fmt.Errorf("thresholds.bias_warn must be below bias_red")
	}
	if c.Thresholds.OverrideVolumeWarn >= c.Thresholds.OverrideVolumeRed {
		return fmt.Errorf("thresholds.override_volume_warn must be below override_volume_red")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
