package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultExercise          = "squats"
	DefaultAlpha             = 0.4
	DefaultMinVisibility     = 0.5
	DefaultHTTPAddr          = ":8080"
	DefaultBroadcastInterval = 200 * time.Millisecond
	DefaultResultTTL         = 30 * time.Second
)

// Config is the top-level analyzer configuration.
type Config struct {
	Session   SessionConfig             `yaml:"session"`
	Server    ServerConfig              `yaml:"server"`
	History   HistoryConfig             `yaml:"history"`
	Exercises map[string]ExerciseConfig `yaml:"exercises"`
}

// SessionConfig selects the exercise and tunes per-frame analysis.
type SessionConfig struct {
	// Exercise is the registry name of the movement to analyse.
	Exercise string `yaml:"exercise"`

	// Alpha is the EMA smoothing factor in (0, 1]. Higher tracks faster.
	Alpha float64 `yaml:"alpha"`

	// MinVisibility is the landmark confidence below which a joint counts
	// as not tracked.
	MinVisibility float64 `yaml:"min_visibility"`

	// FrameSkip processes every FrameSkip+1-th frame; 0 processes all.
	FrameSkip int `yaml:"frame_skip"`
}

// ServerConfig holds the renderer-facing HTTP settings.
type ServerConfig struct {
	// HTTPAddr is the listen address for the REST API and WebSocket hub.
	// Empty disables the server.
	HTTPAddr string `yaml:"http_addr"`

	// BroadcastInterval controls how often results are pushed to clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// ResultTTL is how long the last result of a session stays visible
	// after frames stop arriving.
	ResultTTL time.Duration `yaml:"result_ttl"`
}

// HistoryConfig configures session history persistence.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `yaml:"path"`
}

// ExerciseConfig overrides one exercise's default thresholds.
type ExerciseConfig struct {
	Metrics map[string]MetricConfig `yaml:"metrics"`
	Rep     RepConfig               `yaml:"rep"`
}

// MetricConfig holds the zone bands for one metric.
type MetricConfig struct {
	Safe    *Range    `yaml:"safe"`
	Caution RangeList `yaml:"caution"`
	Reason  string    `yaml:"reason"`
}

// RepConfig overrides the repetition cycle. Nil fields keep the exercise's
// default.
type RepConfig struct {
	Trigger        string         `yaml:"trigger"`
	DescendBelow   *float64       `yaml:"descend_below"`
	BottomBelow    *float64       `yaml:"bottom_below"`
	TopAbove       *float64       `yaml:"top_above"`
	MinBottomRise  *float64       `yaml:"min_bottom_rise"`
	MinBottomDwell *time.Duration `yaml:"min_bottom_dwell"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Exercise:      DefaultExercise,
			Alpha:         DefaultAlpha,
			MinVisibility: DefaultMinVisibility,
		},
		Server: ServerConfig{
			HTTPAddr:          DefaultHTTPAddr,
			BroadcastInterval: DefaultBroadcastInterval,
			ResultTTL:         DefaultResultTTL,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	s := cfg.Session
	if s.Exercise == "" {
		return fmt.Errorf("session.exercise is required")
	}
	if !(s.Alpha > 0 && s.Alpha <= 1) {
		return fmt.Errorf("session.alpha must be in (0, 1], got %v", s.Alpha)
	}
	if s.MinVisibility < 0 || s.MinVisibility > 1 {
		return fmt.Errorf("session.min_visibility must be in [0, 1], got %v", s.MinVisibility)
	}
	if s.FrameSkip < 0 {
		return fmt.Errorf("session.frame_skip must not be negative")
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.ResultTTL <= 0 {
		return fmt.Errorf("server.result_ttl must be positive")
	}
	for name, ex := range cfg.Exercises {
		for metric, m := range ex.Metrics {
			if m.Safe == nil {
				return fmt.Errorf("exercises.%s.metrics.%s: safe is required", name, metric)
			}
			if m.Safe.Lo > m.Safe.Hi {
				return fmt.Errorf("exercises.%s.metrics.%s: safe range %v has lo > hi", name, metric, *m.Safe)
			}
			for i, r := range m.Caution {
				if r.Lo > r.Hi {
					return fmt.Errorf("exercises.%s.metrics.%s: caution[%d] %v has lo > hi", name, metric, i, r)
				}
			}
		}
		if d := ex.Rep.MinBottomDwell; d != nil && *d < 0 {
			return fmt.Errorf("exercises.%s.rep.min_bottom_dwell must not be negative", name)
		}
		if r := ex.Rep.MinBottomRise; r != nil && *r < 0 {
			return fmt.Errorf("exercises.%s.rep.min_bottom_rise must not be negative", name)
		}
	}
	return nil
}
