package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"upkeep/internal/engine/health"
	"upkeep/internal/engine/status"
)

// Config models upkeep.yml.
type Config struct {
	Scheduling struct {
		DropFirstOccurrence bool `yaml:"drop_first_occurrence"`
	} `yaml:"scheduling"`
	Status  status.Thresholds   `yaml:"status"`
	Palette status.Palette      `yaml:"palette"`
	Penalty health.Coefficients `yaml:"penalty"`
	Jobs    struct {
		Enabled           bool          `yaml:"enabled"`
		SweepInterval     time.Duration `yaml:"sweep_interval"`
		EmergencyInterval time.Duration `yaml:"emergency_interval"`
	} `yaml:"jobs"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with upk config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := c.Status.Validate(); err != nil {
		return err
	}
	if err := c.Palette.Validate(); err != nil {
		return err
	}
	if err := c.Penalty.Validate(); err != nil {
		return err
	}
	if c.Jobs.Enabled {
		if c.Jobs.SweepInterval <= 0 {
			return fmt.Errorf("config.jobs.sweep_interval must be > 0 when jobs are enabled")
		}
		if c.Jobs.EmergencyInterval <= 0 {
			return fmt.Errorf("config.jobs.emergency_interval must be > 0 when jobs are enabled")
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "upkeep.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `scheduling:
  # Discard the earliest event of every generated schedule.
  drop_first_occurrence: false

status:
  complete_within_days: 3
  overdue_within_days: 10
  incomplete_after_days: 10

palette:
  upcoming:
    A: "oklch(76.5% 0.177 163.223)"
    B: "oklch(85.2% 0.199 91.936)"
    C: "oklch(70.7% 0.165 254.624)"
    D: "oklch(71.4% 0.2063 306.703)"
  complete:
    A: "oklch(43.2% 0.095 166.913)"
    B: "oklch(68.1% 0.162 75.834)"
    C: "oklch(42.4% 0.199 265.638)"
    D: "oklch(43.8% 0.218 303.724)"
  incomplete: "oklch(44.4% 0.177 26.899)"
  emergency: "#000"

penalty:
  levels:
    A: 1
    B: 2
    C: 3
    D: 4
  statuses:
    complete: 0
    overdue: 0.5
    incomplete: 1

jobs:
  enabled: true
  sweep_interval: 24h
  emergency_interval: 1h

log:
  level: info
`
