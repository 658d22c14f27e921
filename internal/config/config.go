// Package config handles YAML configuration for awslimits.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/internal/queue"
)

// Config is the root configuration structure.
type Config struct {
	Region          string `yaml:"region_name"`
	AccessKeyID     string `yaml:"aws_access_key_id"`
	SecretAccessKey string `yaml:"aws_secret_access_key"`
	Profile         string `yaml:"profile"`
	Hostname        string `yaml:"hostname"`

	Resources []string `yaml:"resources"`
	Limits    []string `yaml:"limits"`

	IntervalStr string        `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
	OneShot     bool          `yaml:"one_shot"`

	Queue    QueueConfig    `yaml:"queue"`
	Emitters EmittersConfig `yaml:"emitters"`
	OTEL     OTELConfig     `yaml:"otel"`
	Log      LogConfig      `yaml:"log"`
}

// QueueConfig holds the emission queue settings.
type QueueConfig struct {
	Size int `yaml:"size"`
}

// EmittersConfig selects where queued items go.
type EmittersConfig struct {
	Log        bool             `yaml:"log"`
	Wavefront  WavefrontConfig  `yaml:"wavefront"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// Any reports whether at least one emitter is enabled.
func (e EmittersConfig) Any() bool {
	return e.Log || e.Wavefront.Address != "" || e.Prometheus.Listen != ""
}

// WavefrontConfig holds the Wavefront proxy or direct-ingestion URL.
// An empty address disables the emitter.
type WavefrontConfig struct {
	Address string `yaml:"address"`
}

// PrometheusConfig holds the /metrics listener. An empty address disables it.
type PrometheusConfig struct {
	Listen string `yaml:"listen"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"service_name"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	if err := parseInterval(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and no region.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	_ = parseInterval(cfg)
	return cfg
}

func applyDefaults(cfg *Config) error {
	if cfg.Hostname == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		cfg.Hostname = host
	}
	if cfg.Resources == nil {
		cfg.Resources = familyNames(aggregate.Families())
	}
	if cfg.Limits == nil {
		cfg.Limits = familyNames(aggregate.LimitFamilies())
	}
	if cfg.IntervalStr == "" {
		cfg.IntervalStr = "5m"
	}
	if cfg.Queue.Size == 0 {
		cfg.Queue.Size = queue.DefaultSize
	}
	if !cfg.Emitters.Any() {
		cfg.Emitters.Log = true
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "awslimits"
	}
	if cfg.OTEL.Traces.Enabled && cfg.OTEL.Traces.SampleRate == 0 {
		cfg.OTEL.Traces.SampleRate = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}

func familyNames(families []aggregate.Family) []string {
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.String()
	}
	return names
}

func parseInterval(cfg *Config) error {
	d, err := time.ParseDuration(cfg.IntervalStr)
	if err != nil {
		return fmt.Errorf("parse interval %q: %w", cfg.IntervalStr, err)
	}
	cfg.Interval = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("region_name is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("aws_access_key_id and aws_secret_access_key must be set together")
	}
	if _, err := parseFamilies("resources", c.Resources); err != nil {
		return err
	}
	limits, err := parseFamilies("limits", c.Limits)
	if err != nil {
		return err
	}
	for _, f := range limits {
		if !f.HasLimits() {
			return fmt.Errorf("limits: %s has no account limits", f)
		}
	}
	if !c.Emitters.Any() {
		return errors.New("emitters: at least one of log, wavefront.address or prometheus.listen is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive (got %s)", c.IntervalStr)
	}
	if c.Queue.Size <= 0 {
		return fmt.Errorf("queue: size must be positive (got %d)", c.Queue.Size)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}

// ResourceFamilies returns the parsed usage families in configured order.
func (c *Config) ResourceFamilies() ([]aggregate.Family, error) {
	return parseFamilies("resources", c.Resources)
}

// LimitFamilies returns the parsed limit families in configured order.
func (c *Config) LimitFamilies() ([]aggregate.Family, error) {
	return parseFamilies("limits", c.Limits)
}

func parseFamilies(field string, names []string) ([]aggregate.Family, error) {
	seen := make(map[aggregate.Family]bool, len(names))
	families := make([]aggregate.Family, 0, len(names))
	for _, name := range names {
		f, err := aggregate.ParseFamily(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if seen[f] {
			return nil, fmt.Errorf("%s: duplicate family %s", field, f)
		}
		seen[f] = true
		families = append(families, f)
	}
	return families, nil
}
