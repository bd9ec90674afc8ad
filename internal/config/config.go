// Package config assembles runtime configuration from environment
// variables, with an optional YAML file (SENATUS_CONFIG) layered on top for
// the rule tables and tuning knobs that do not fit a flat env surface.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Logging LoggingConfig
	Ingest  IngestConfig
	VLM     VLMConfig
	Metrics MetricsConfig
	Engine  EngineConfig
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// IngestConfig locates the activity database and its screenshot store.
type IngestConfig struct {
	DatabasePath   string
	ScreenshotsDir string
	EventLimit     int
}

// VLMConfig configures the vision-model endpoint. Any OpenAI-compatible
// server works; BaseURL selects it.
type VLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// EngineConfig carries the cascade tuning loaded from the YAML file. All
// fields are optional; zero values defer to the built-in defaults.
type EngineConfig struct {
	Thresholds struct {
		Immediate float64 `yaml:"immediate"`
		Batch     float64 `yaml:"batch"`
		Skip      float64 `yaml:"skip"`
	} `yaml:"thresholds"`

	MaxBatchSize        int `yaml:"max_batch_size"`
	BatchTimeoutSeconds int `yaml:"batch_timeout_seconds"`

	StaticFrame struct {
		Threshold   float64 `yaml:"threshold"`
		HistorySize int     `yaml:"history_size"`
	} `yaml:"static_frame"`

	AllowApps          []string `yaml:"allow_apps"`
	AllowTitleKeywords []string `yaml:"allow_title_keywords"`
	DenyApps           []string `yaml:"deny_apps"`
	DenyTitleKeywords  []string `yaml:"deny_title_keywords"`

	TimeRules []TimeRuleConfig `yaml:"time_rules"`

	AnalyzerWeights map[string]float64 `yaml:"analyzer_weights"`
}

// TimeRuleConfig is the YAML shape of one calendar rule.
type TimeRuleConfig struct {
	Name           string   `yaml:"name"`
	Start          string   `yaml:"start"`
	End            string   `yaml:"end"`
	Weekdays       []string `yaml:"weekdays"`
	Action         string   `yaml:"action"`
	WeightModifier float64  `yaml:"weight_modifier"`
}

const (
	defaultLogFormat   = "json"
	defaultDBPath      = "ManicTimeReports.db"
	defaultVLMBaseURL  = "http://localhost:11434/v1"
	defaultVLMModel    = "qwen2.5-vl"
	defaultVLMTimeout  = 120 * time.Second
	defaultMetricsAddr = ":9090"
)

// Load reads configuration from environment variables and, when
// SENATUS_CONFIG points at a YAML file, merges the engine tuning from it.
func Load() (Config, error) {
	cfg := Config{
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Ingest: IngestConfig{
			DatabasePath:   getEnv("SENATUS_DB_PATH", defaultDBPath),
			ScreenshotsDir: os.Getenv("SENATUS_SCREENSHOTS_DIR"),
		},
		VLM: VLMConfig{
			BaseURL: getEnv("SENATUS_VLM_BASE_URL", defaultVLMBaseURL),
			APIKey:  os.Getenv("SENATUS_VLM_API_KEY"),
			Model:   getEnv("SENATUS_VLM_MODEL", defaultVLMModel),
			Timeout: defaultVLMTimeout,
		},
		Metrics: MetricsConfig{
			Addr: getEnv("SENATUS_METRICS_ADDR", defaultMetricsAddr),
		},
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SENATUS_EVENT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid SENATUS_EVENT_LIMIT: must be a non-negative integer")
		}
		cfg.Ingest.EventLimit = n
	}

	if v := os.Getenv("SENATUS_VLM_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SENATUS_VLM_TIMEOUT_SECONDS: %w", err)
		}
		cfg.VLM.Timeout = d
	}

	if v := os.Getenv("SENATUS_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SENATUS_METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = enabled
	}

	if path := os.Getenv("SENATUS_CONFIG"); path != "" {
		engine, err := loadEngineFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Engine = engine
	}

	return cfg, nil
}

func loadEngineFile(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var engine EngineConfig
	if err := yaml.Unmarshal(data, &engine); err != nil {
		return EngineConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return engine, nil
}

// ParseWeekday maps a config weekday name onto time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(name) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
